// Package portal assembles the portal scene and drives it frame by frame.
// Experience is owned by the render thread; other goroutines reach it
// through a Queue.
package portal

import (
	"image"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/janessatran/portal/internal/camera"
	"github.com/janessatran/portal/internal/colorx"
	"github.com/janessatran/portal/internal/debug"
	"github.com/janessatran/portal/internal/render"
	"github.com/janessatran/portal/internal/scene"
)

// Colors the scene is authored with.
var (
	LampColor          = colorx.MustParse("hsla(37, 69%, 81%, 1)")
	PortalFlatColor    = colorx.MustParse("hsla(157, 100%, 94%, 1)")
	PortalInitialStart = colorx.FromHex(0xcca3a3)
	PortalInitialEnd   = colorx.FromHex(0x7659a1)
)

type Options struct {
	Effects bool

	Width, Height int
	// PixelRatio is the display's device pixel ratio.
	PixelRatio    float32
	MaxPixelRatio float32

	FireflyCount int
	FireflySize  float32

	// Debug control defaults. The clear color applies at once; the portal
	// colors only once their control is changed.
	ClearColor       colorx.RGB
	PortalColorStart colorx.RGB
	PortalColorEnd   colorx.RGB

	Rand *rand.Rand
}

type Experience struct {
	log      *zap.Logger
	opts     Options
	renderer *render.Renderer
	camera   *camera.Perspective
	orbit    *camera.Orbit
	scene    scene.Scene

	baked     *scene.BakedMaterial
	poleLight *scene.BasicMaterial
	portal    scene.Material
	fireflies *scene.Points

	params   debug.Params
	controls []debug.Control
}

func New(dev render.Device, opts Options, log *zap.Logger) *Experience {
	if opts.MaxPixelRatio <= 0 {
		opts.MaxPixelRatio = 2
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 720
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e := &Experience{
		log:      log.Named("portal"),
		opts:     opts,
		renderer: render.New(dev, log),
		baked:    &scene.BakedMaterial{FlipY: false, SRGB: true},
		poleLight: &scene.BasicMaterial{
			Color: LampColor,
			Side:  scene.DoubleSide,
		},
		params: debug.Params{
			ClearColor:       opts.ClearColor,
			PortalColorStart: opts.PortalColorStart,
			PortalColorEnd:   opts.PortalColorEnd,
			FireflySize:      opts.FireflySize,
		},
		controls: debug.ControlsFor(opts.Effects),
	}

	e.camera = camera.NewPerspective(45, float32(opts.Width)/float32(opts.Height), 0.1, 100)
	e.camera.Position = mgl32.Vec3{-5, 4, -5}
	e.orbit = camera.NewOrbit(e.camera)
	e.orbit.EnableDamping = true

	pr := e.clampPixelRatio(opts.PixelRatio)
	e.renderer.SetSize(opts.Width, opts.Height)
	e.renderer.SetPixelRatio(pr)
	e.renderer.SetClearColor(opts.ClearColor)

	if opts.Effects {
		e.portal = &scene.PortalMaterial{
			ColorStart: PortalInitialStart,
			ColorEnd:   PortalInitialEnd,
			Side:       scene.DoubleSide,
		}
		e.fireflies = scene.NewFireflies(opts.FireflyCount, opts.Rand, &scene.FirefliesMaterial{
			PixelRatio:  pr,
			Size:        opts.FireflySize,
			Transparent: true,
			DepthWrite:  false,
			Blending:    scene.AdditiveBlending,
		})
		e.scene.AddPoints(e.fireflies)
	} else {
		e.portal = &scene.BasicMaterial{Color: PortalFlatColor, Side: scene.DoubleSide}
	}
	return e
}

func (e *Experience) clampPixelRatio(dpr float32) float32 {
	if dpr <= 0 {
		dpr = 1
	}
	if dpr > e.opts.MaxPixelRatio {
		return e.opts.MaxPixelRatio
	}
	return dpr
}

// Materials are the shared materials a model is assembled with.
func (e *Experience) Materials() scene.Materials {
	return scene.Materials{Baked: e.baked, PoleLight: e.poleLight, Portal: e.portal}
}

// AddModel adds an assembled model to the scene.
func (e *Experience) AddModel(root *scene.Node) {
	e.scene.Add(root)
}

// SetBakedTexture binds the decoded baked lighting texture.
func (e *Experience) SetBakedTexture(img *image.NRGBA) {
	e.baked.Map = img
}

// Resize follows a window size change. Zero sizes, as reported for a
// minimized window, are ignored.
func (e *Experience) Resize(width, height int, dpr float32) {
	if width <= 0 || height <= 0 {
		return
	}
	e.camera.SetAspect(float32(width) / float32(height))
	e.renderer.SetSize(width, height)
	pr := e.clampPixelRatio(dpr)
	e.renderer.SetPixelRatio(pr)
	if e.fireflies != nil {
		e.fireflies.Material.PixelRatio = pr
	}
	e.log.Debug("resized", zap.Int("width", width), zap.Int("height", height), zap.Float32("pixelRatio", pr))
}

// Tick advances shader time to elapsed seconds, steps the orbit controls
// and renders one frame.
func (e *Experience) Tick(elapsed float32) render.Stats {
	if e.fireflies != nil {
		e.fireflies.Material.Time = elapsed
	}
	if pm, ok := e.portal.(*scene.PortalMaterial); ok {
		pm.Time = elapsed
	}
	e.orbit.Update()
	return e.renderer.Render(&e.scene, e.camera)
}

// Clear paints the clear color only, for frames where the canvas is hidden.
func (e *Experience) Clear() {
	e.renderer.Clear()
}

// Apply validates and applies one debug control change.
func (e *Experience) Apply(c debug.Change) error {
	return debug.Apply(&e.params, c, e.controls, e)
}

func (e *Experience) Controls() []debug.Control { return e.controls }

func (e *Experience) Params() debug.Params { return e.params }

func (e *Experience) SetClearColor(c colorx.RGB) { e.renderer.SetClearColor(c) }

func (e *Experience) SetPortalColorStart(c colorx.RGB) {
	if pm, ok := e.portal.(*scene.PortalMaterial); ok {
		pm.ColorStart = c
	}
}

func (e *Experience) SetPortalColorEnd(c colorx.RGB) {
	if pm, ok := e.portal.(*scene.PortalMaterial); ok {
		pm.ColorEnd = c
	}
}

func (e *Experience) SetFireflySize(v float32) {
	if e.fireflies != nil {
		e.fireflies.Material.Size = v
	}
}

func (e *Experience) Camera() *camera.Perspective { return e.camera }

func (e *Experience) Orbit() *camera.Orbit { return e.orbit }

func (e *Experience) Renderer() *render.Renderer { return e.renderer }

// Fireflies is nil without effects.
func (e *Experience) Fireflies() *scene.Points { return e.fireflies }

func (e *Experience) PortalMaterial() scene.Material { return e.portal }
