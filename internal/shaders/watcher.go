package shaders

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce absorbs the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports which programs changed on disk. Editors often write a
// file several times per save, so events are debounced and delivered as
// one sorted batch of program names.
type Watcher struct {
	log      *zap.Logger
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	changes  chan []string
}

func NewWatcher(dir string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		log:      log.Named("shaders"),
		watcher:  fw,
		dir:      dir,
		debounce: debounce,
		changes:  make(chan []string, 1),
	}, nil
}

// Changes delivers batches of changed program names.
func (w *Watcher) Changes() <-chan []string { return w.changes }

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	w.log.Info("watching shader sources", zap.String("dir", w.dir))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := map[string]struct{}{}

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name, ok := programOf(ev)
			if !ok {
				continue
			}
			w.log.Debug("shader change detected", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			pending[name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", zap.Error(err))

		case <-timer.C:
			batch := make([]string, 0, len(pending))
			for name := range pending {
				batch = append(batch, name)
			}
			sort.Strings(batch)
			pending = map[string]struct{}{}
			select {
			case w.changes <- batch:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func programOf(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return "", false
	}
	base := filepath.Base(ev.Name)
	ext := filepath.Ext(base)
	if ext != ".vert" && ext != ".frag" {
		return "", false
	}
	return strings.TrimSuffix(base, ext), true
}
