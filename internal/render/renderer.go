// Package render walks a scene and issues draws to a Device. The Device
// owns the graphics API; the Renderer owns sizing, clear color and order.
package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/janessatran/portal/internal/colorx"
	"github.com/janessatran/portal/internal/scene"
)

// Frame describes the target of one render.
type Frame struct {
	// Width and Height are the drawing buffer size in physical pixels.
	Width, Height int
	ClearColor    colorx.RGB
}

// Device draws primitives. Implementations are not safe for concurrent use
// and are only called from the render thread.
type Device interface {
	Begin(f Frame)
	DrawMesh(p *scene.Primitive, m scene.Material, model, view, proj mgl32.Mat4)
	DrawPoints(p *scene.Points, view, proj mgl32.Mat4)
	End()
}

type Camera interface {
	View() mgl32.Mat4
	Projection() mgl32.Mat4
}

// Stats counts the draws issued by one Render.
type Stats struct {
	Meshes int
	Points int
}

type Renderer struct {
	dev        Device
	log        *zap.Logger
	width      int
	height     int
	pixelRatio float32
	clear      colorx.RGB
}

func New(dev Device, log *zap.Logger) *Renderer {
	return &Renderer{dev: dev, log: log.Named("render"), pixelRatio: 1}
}

// SetSize sets the canvas size in logical pixels.
func (r *Renderer) SetSize(w, h int) {
	r.width, r.height = w, h
}

func (r *Renderer) Size() (int, int) { return r.width, r.height }

// SetPixelRatio sets the physical-to-logical pixel ratio. Non-positive
// ratios fall back to 1.
func (r *Renderer) SetPixelRatio(ratio float32) {
	if ratio <= 0 || math.IsNaN(float64(ratio)) {
		ratio = 1
	}
	r.pixelRatio = ratio
}

func (r *Renderer) PixelRatio() float32 { return r.pixelRatio }

func (r *Renderer) SetClearColor(c colorx.RGB) { r.clear = c }

func (r *Renderer) ClearColor() colorx.RGB { return r.clear }

// DrawingBufferSize is the canvas size scaled by the pixel ratio.
func (r *Renderer) DrawingBufferSize() (int, int) {
	w := int(math.Floor(float64(float32(r.width) * r.pixelRatio)))
	h := int(math.Floor(float64(float32(r.height) * r.pixelRatio)))
	return w, h
}

func (r *Renderer) frame() Frame {
	w, h := r.DrawingBufferSize()
	return Frame{Width: w, Height: h, ClearColor: r.clear}
}

// Clear fills the drawing buffer with the clear color and draws nothing.
func (r *Renderer) Clear() {
	r.dev.Begin(r.frame())
	r.dev.End()
}

// Render draws every mesh that has a material bound, then the point
// clouds, which blend over the opaque scene.
func (r *Renderer) Render(sc *scene.Scene, cam Camera) Stats {
	var st Stats
	r.dev.Begin(r.frame())
	view, proj := cam.View(), cam.Projection()

	sc.Traverse(func(n *scene.Node) {
		if n.Material == nil || len(n.Primitives) == 0 {
			return
		}
		model := n.World()
		for _, p := range n.Primitives {
			r.dev.DrawMesh(p, n.Material, model, view, proj)
			st.Meshes++
		}
	})
	for _, pts := range sc.Points {
		if len(pts.Positions) == 0 {
			continue
		}
		r.dev.DrawPoints(pts, view, proj)
		st.Points++
	}

	r.dev.End()
	return st
}
