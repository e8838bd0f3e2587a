// Package assets fetches and decodes the files the portal scene needs.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Listener receives loading events, in the manner of a loading manager:
// one Progress per finished item, then a single Complete.
type Listener interface {
	Progress(item string, loaded, total int)
	Complete()
}

// Listeners fans events out to several listeners in order.
type Listeners []Listener

func (ls Listeners) Progress(item string, loaded, total int) {
	for _, l := range ls {
		l.Progress(item, loaded, total)
	}
}

func (ls Listeners) Complete() {
	for _, l := range ls {
		l.Complete()
	}
}

// Item is one tracked resource. Decode runs on the fetching goroutine
// before the item counts as loaded.
type Item struct {
	Name   string
	Source string
	Decode func(data []byte) error
}

type Manager struct {
	log      *zap.Logger
	root     string
	client   *http.Client
	timeout  time.Duration
	listener Listener
}

type Option func(*Manager)

func WithHTTPClient(c *http.Client) Option { return func(m *Manager) { m.client = c } }

// WithFetchTimeout bounds the retries of a remote fetch. Zero retries until
// the context ends.
func WithFetchTimeout(d time.Duration) Option { return func(m *Manager) { m.timeout = d } }

func NewManager(root string, listener Listener, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		log:      log.Named("assets"),
		root:     root,
		client:   http.DefaultClient,
		listener: listener,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadAll fetches and decodes every item concurrently. The first failure
// cancels the remaining fetches and is returned; Complete is only reported
// when every item succeeded.
func (m *Manager) LoadAll(ctx context.Context, items []Item) error {
	var (
		mu     sync.Mutex
		loaded int
		total  = len(items)
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, it := range items {
		g.Go(func() error {
			start := time.Now()
			data, err := m.Fetch(ctx, it.Source)
			if err != nil {
				return fmt.Errorf("load %s: %w", it.Name, err)
			}
			if it.Decode != nil {
				if err := it.Decode(data); err != nil {
					return fmt.Errorf("decode %s: %w", it.Name, err)
				}
			}
			mu.Lock()
			loaded++
			n := loaded
			m.listener.Progress(it.Name, n, total)
			mu.Unlock()
			m.log.Debug("item loaded",
				zap.String("item", it.Name),
				zap.Int("bytes", len(data)),
				zap.Duration("took", time.Since(start)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.listener.Complete()
	return nil
}

// Fetch reads a local file (relative to the asset root) or an http(s) URL.
func (m *Manager) Fetch(ctx context.Context, source string) ([]byte, error) {
	if isRemote(source) {
		return m.fetchRemote(ctx, source)
	}
	path := source
	if !filepath.IsAbs(path) && m.root != "" {
		path = filepath.Join(m.root, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (m *Manager) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = m.timeout

	var data []byte
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := m.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("GET %s: %s", url, resp.Status)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("GET %s: %s", url, resp.Status))
		}
		data, err = io.ReadAll(resp.Body)
		return err
	}
	notify := func(err error, wait time.Duration) {
		m.log.Warn("fetch failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, err
	}
	return data, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
