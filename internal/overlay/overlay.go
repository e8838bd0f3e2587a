// Package overlay produces the preloader text shown while the scene is
// hidden.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Status tracks what the preloader should say. It is written by the
// loading goroutines and read by the render thread.
type Status struct {
	mu       sync.Mutex
	loaded   int
	total    int
	complete bool
	node     string
	failed   error
}

func NewStatus(node string) *Status {
	return &Status{node: node}
}

func (s *Status) Progress(_ string, loaded, total int) {
	s.mu.Lock()
	s.loaded, s.total = loaded, total
	s.mu.Unlock()
}

func (s *Status) Complete() {
	s.mu.Lock()
	s.complete = true
	s.mu.Unlock()
}

func (s *Status) Fail(err error) {
	s.mu.Lock()
	s.failed = err
	s.mu.Unlock()
}

// Message is the current preloader line.
func (s *Status) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.failed != nil:
		return fmt.Sprintf("Loading failed: %v", s.failed)
	case s.complete && s.node != "":
		return fmt.Sprintf("Waiting for %s…", s.node)
	case s.complete:
		return "Starting…"
	case s.total == 0:
		return "Loading…"
	}
	return fmt.Sprintf("Loading… %d/%d", s.loaded, s.total)
}

// Face is the font the overlay is drawn with.
var Face font.Face = basicfont.Face7x13

// Rasterize draws text in white on a transparent image just large enough
// to hold it. The red channel doubles as coverage.
func Rasterize(text string) *image.RGBA {
	d := &font.Drawer{Face: Face}
	width := d.MeasureString(text).Ceil()
	if width == 0 {
		width = 1
	}
	m := Face.Metrics()
	height := (m.Ascent + m.Descent).Ceil()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	d.Dst = img
	d.Src = image.NewUniform(color.RGBA{255, 255, 255, 255})
	d.Dot = fixed.Point26_6{X: 0, Y: m.Ascent}
	d.DrawString(text)
	return img
}
