// Package readiness decides when the rendered scene may be shown.
//
// The scene is revealed once every tracked asset has been fetched and, when
// a gate node is configured, once that node has been seen in the decoded
// model. Until then the canvas stays hidden behind the preloader.
package readiness

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotReady is returned by Run when the ready timeout elapses first.
var ErrNotReady = errors.New("readiness: scene did not become ready")

// Surface is the presentation the gate drives.
type Surface interface {
	SetCanvasVisible(visible bool)
	SetPreloaderVisible(visible bool)
	// DispatchResize asks the presentation to re-run its resize handling.
	DispatchResize()
}

// Ticker abstracts time.Ticker so tests can advance time by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ *time.Ticker }

func (t stdTicker) C() <-chan time.Time { return t.Ticker.C }

func NewStdTicker(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} }

type Options struct {
	// Node is the name that must be observed before reveal. Empty disables
	// the node half of the condition.
	Node string
	// PollInterval spaces the diagnostics logged while waiting for Node.
	PollInterval time.Duration
	// Timeout bounds the wait for Node after fetching completes. Zero waits forever.
	Timeout time.Duration

	NewTicker func(time.Duration) Ticker
	After     func(time.Duration) <-chan time.Time
}

type Gate struct {
	log     *zap.Logger
	surface Surface
	opts    Options

	mu       sync.Mutex
	fetched  bool
	nodeSeen bool
	revealed bool

	fetchedCh chan struct{}
	nodeCh    chan struct{}
	ready     chan struct{}
}

// New hides the canvas, shows the preloader and returns the gate.
func New(surface Surface, opts Options, log *zap.Logger) *Gate {
	if opts.NewTicker == nil {
		opts.NewTicker = NewStdTicker
	}
	if opts.After == nil {
		opts.After = time.After
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	g := &Gate{
		log:       log.Named("readiness"),
		surface:   surface,
		opts:      opts,
		fetchedCh: make(chan struct{}),
		nodeCh:    make(chan struct{}),
		ready:     make(chan struct{}),
	}
	surface.SetPreloaderVisible(true)
	surface.SetCanvasVisible(false)
	return g
}

// Progress records one finished item. The canvas is kept hidden until reveal.
func (g *Gate) Progress(item string, loaded, total int) {
	g.mu.Lock()
	done := g.revealed || g.fetched
	g.mu.Unlock()
	if done {
		return
	}
	g.log.Debug("asset progress", zap.String("item", item), zap.Int("loaded", loaded), zap.Int("total", total))
	g.surface.SetCanvasVisible(false)
}

// Complete records that every tracked asset has been fetched.
func (g *Gate) Complete() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetched {
		return
	}
	g.fetched = true
	close(g.fetchedCh)
}

// ObserveNode is fed every node name found while assembling the scene.
func (g *Gate) ObserveNode(name string) {
	if g.opts.Node == "" || name != g.opts.Node {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.nodeSeen {
		return
	}
	g.nodeSeen = true
	close(g.nodeCh)
}

// Ready is closed once the scene has been revealed.
func (g *Gate) Ready() <-chan struct{} { return g.ready }

func (g *Gate) Fetched() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetched
}

func (g *Gate) NodeSeen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodeSeen
}

func (g *Gate) Revealed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.revealed
}

// Run blocks until the scene is revealed, ctx is cancelled, or the ready
// timeout elapses. While fetching is complete but the gate node is still
// missing, a diagnostic is logged on every poll interval.
func (g *Gate) Run(ctx context.Context) error {
	select {
	case <-g.fetchedCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.log.Info("assets loaded")

	if g.opts.Node == "" {
		g.reveal()
		return nil
	}

	var timeout <-chan time.Time
	if g.opts.Timeout > 0 {
		timeout = g.opts.After(g.opts.Timeout)
	}
	ticker := g.opts.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.nodeCh:
			g.reveal()
			return nil
		case <-ticker.C():
			// The node may have arrived in the same instant as the tick.
			if g.NodeSeen() {
				g.reveal()
				return nil
			}
			g.log.Warn("gate node not observed yet",
				zap.String("node", g.opts.Node),
				zap.Duration("interval", g.opts.PollInterval))
		case <-timeout:
			g.log.Error("scene never became ready",
				zap.String("node", g.opts.Node),
				zap.Duration("timeout", g.opts.Timeout))
			return ErrNotReady
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Gate) reveal() {
	g.mu.Lock()
	if g.revealed {
		g.mu.Unlock()
		return
	}
	g.revealed = true
	g.mu.Unlock()

	g.log.Info("scene ready")
	g.surface.DispatchResize()
	g.surface.SetCanvasVisible(true)
	g.surface.SetPreloaderVisible(false)
	close(g.ready)
}
