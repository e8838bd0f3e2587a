package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"github.com/janessatran/portal/internal/assets"
	"github.com/janessatran/portal/internal/colorx"
	"github.com/janessatran/portal/internal/config"
	"github.com/janessatran/portal/internal/overlay"
	"github.com/janessatran/portal/internal/portal"
	"github.com/janessatran/portal/internal/readiness"
	"github.com/janessatran/portal/internal/remote"
	"github.com/janessatran/portal/internal/render/glbackend"
	"github.com/janessatran/portal/internal/scene"
	"github.com/janessatran/portal/internal/shaders"
)

const (
	queueSize = 64
	textScale = 2
)

// presenter is the window's side of the readiness gate. The gate runs on
// its own goroutine, so every flag is read by the render loop.
type presenter struct {
	canvas    atomic.Bool
	preloader atomic.Bool
	resize    atomic.Bool
}

func (p *presenter) SetCanvasVisible(v bool)    { p.canvas.Store(v) }
func (p *presenter) SetPreloaderVisible(v bool) { p.preloader.Store(v) }
func (p *presenter) DispatchResize()            { p.resize.Store(true) }

func createWindow(cfg *config.Config) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Samples, 4)
	glfw.WindowHint(glfw.SRGBCapable, glfw.True)

	if cfg.Fullscreen {
		monitor := glfw.GetPrimaryMonitor()
		mode := monitor.GetVideoMode()
		return glfw.CreateWindow(mode.Width, mode.Height, cfg.Title, monitor, nil)
	}
	return glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
}

// pixelRatio is framebuffer pixels per window unit, the desktop
// counterpart of a browser's devicePixelRatio.
func pixelRatio(window *glfw.Window) float32 {
	w, _ := window.GetSize()
	fbW, _ := window.GetFramebufferSize()
	if w <= 0 || fbW <= 0 {
		return 1
	}
	return float32(fbW) / float32(w)
}

func experienceOptions(cfg *config.Config, width, height int, dpr float32) (portal.Options, error) {
	clearColor, err1 := colorx.Parse(cfg.ClearColor)
	start, err2 := colorx.Parse(cfg.PortalColorStart)
	end, err3 := colorx.Parse(cfg.PortalColorEnd)
	if err := errors.Join(err1, err2, err3); err != nil {
		return portal.Options{}, fmt.Errorf("debug colors: %w", err)
	}
	return portal.Options{
		Effects:          cfg.Effects,
		Width:            width,
		Height:           height,
		PixelRatio:       dpr,
		MaxPixelRatio:    float32(cfg.MaxPixelRatio),
		FireflyCount:     cfg.FireflyCount,
		FireflySize:      float32(cfg.FireflySize),
		ClearColor:       clearColor,
		PortalColorStart: start,
		PortalColorEnd:   end,
		Rand:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// assetItems decodes and assembles off the render thread and posts only
// the finished results to it.
func assetItems(ctx context.Context, cfg *config.Config, exp *portal.Experience, q *portal.Queue, gate *readiness.Gate) []assets.Item {
	mats := exp.Materials()
	return []assets.Item{
		{
			Name:   "model",
			Source: cfg.Model,
			Decode: func(data []byte) error {
				doc, err := assets.DecodeModel(data, cfg.DecoderPath)
				if err != nil {
					return err
				}
				root, err := scene.FromDocument(doc)
				if err != nil {
					return err
				}
				if err := scene.Assemble(root, mats, gate.ObserveNode); err != nil {
					return err
				}
				return q.Post(ctx, func() { exp.AddModel(root) })
			},
		},
		{
			Name:   "baked",
			Source: cfg.BakedTexture,
			Decode: func(data []byte) error {
				img, err := assets.DecodeTexture(data)
				if err != nil {
					return err
				}
				return q.Post(ctx, func() { exp.SetBakedTexture(img) })
			},
		},
	}
}

// spawnPanel starts the debug panel as a child process. It is killed when
// ctx is done.
func spawnPanel(ctx context.Context, url, configPath string, log *zap.Logger) {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	args := []string{"-panel", url}
	if configPath != "" {
		args = append(args, "-config", configPath)
	}
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		log.Error("failed to start debug panel", zap.Error(err))
		return
	}
	log.Info("debug panel started", zap.Int("pid", cmd.Process.Pid))
	go func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			log.Warn("debug panel exited", zap.Error(err))
		}
	}()
}

func runScene(cfg *config.Config, configPath string, log *zap.Logger) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}
	defer glfw.Terminate()

	window, err := createWindow(cfg)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	gl.Enable(gl.MULTISAMPLE)
	log.Info("OpenGL initialized", zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))))

	device, err := glbackend.New(shaders.NewLoader(cfg.ShaderDir), log)
	if err != nil {
		return err
	}
	defer device.Close()

	text, err := glbackend.NewTextRenderer()
	if err != nil {
		return fmt.Errorf("failed to create text renderer: %w", err)
	}
	defer text.Close()

	width, height := window.GetSize()
	opts, err := experienceOptions(cfg, width, height, pixelRatio(window))
	if err != nil {
		return err
	}
	exp := portal.New(device, opts, log)
	queue := portal.NewQueue(queueSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pres := &presenter{}
	gateNode := ""
	if cfg.PreloaderGate {
		gateNode = cfg.GateNode
	}
	gate := readiness.New(pres, readiness.Options{
		Node:         gateNode,
		PollInterval: cfg.PollInterval.Std(),
		Timeout:      cfg.ReadyTimeout.Std(),
	}, log)
	status := overlay.NewStatus(gateNode)

	go func() {
		if err := gate.Run(ctx); err != nil && ctx.Err() == nil {
			status.Fail(err)
		}
	}()

	manager := assets.NewManager(cfg.AssetDir, assets.Listeners{gate, status}, log,
		assets.WithFetchTimeout(cfg.FetchTimeout.Std()))
	go func() {
		if err := manager.LoadAll(ctx, assetItems(ctx, cfg, exp, queue, gate)); err != nil && ctx.Err() == nil {
			log.Error("failed to load assets", zap.Error(err))
			status.Fail(err)
		}
	}()

	if cfg.Debug {
		srv := remote.NewServer(portal.NewBridge(queue, exp), log)
		url, err := remote.Listen(ctx, cfg.ControlAddr, srv)
		if err != nil {
			log.Error("debug controls unavailable", zap.Error(err))
		} else {
			spawnPanel(ctx, url, configPath, log)
		}
	}

	var reloads <-chan []string
	if cfg.ShaderDir != "" {
		w, err := shaders.NewWatcher(cfg.ShaderDir, 0, log)
		if err != nil {
			log.Warn("shader hot reload disabled", zap.Error(err))
		} else {
			reloads = w.Changes()
			go w.Run(ctx)
		}
	}

	resize := func() {
		w, h := window.GetSize()
		exp.Resize(w, h, pixelRatio(window))
	}
	window.SetSizeCallback(func(_ *glfw.Window, _, _ int) { resize() })
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, _, _ int) { resize() })

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	orbit := exp.Orbit()
	var dragging bool
	var lastX, lastY float64
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		dragging = action == glfw.Press
		lastX, lastY = w.GetCursorPos()
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if dragging {
			_, h := w.GetSize()
			orbit.Rotate(float32(x-lastX), float32(y-lastY), h)
		}
		lastX, lastY = x, y
	})
	window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		orbit.Zoom(float32(yoff))
	})

	start := time.Now()
	for !window.ShouldClose() {
		// Read before draining: a reveal implies its model is already queued.
		visible := pres.canvas.Load()
		queue.Drain()

		select {
		case names := <-reloads:
			device.Reload(names)
		default:
		}
		if pres.resize.CompareAndSwap(true, false) {
			resize()
		}

		fbWidth, fbHeight := window.GetFramebufferSize()
		device.SetFramebufferSize(fbWidth, fbHeight)

		if visible {
			exp.Tick(float32(time.Since(start).Seconds()))
		} else {
			exp.Clear()
		}
		if pres.preloader.Load() {
			text.SetViewport(fbWidth, fbHeight)
			text.RenderCentered(status.Message(), textScale*pixelRatio(window), colorx.White)
		}

		window.SwapBuffers()
		glfw.PollEvents()
	}
	log.Info("window closed")
	return nil
}
