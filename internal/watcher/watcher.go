package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/scanner"
	"github.com/seekspace/seekd/internal/store"
)

// DefaultDebounce is the quiet window before a reindex pass triggers.
const DefaultDebounce = 3 * time.Second

// passState tracks one source's reindex state. A source is either idle or
// running; events during a run queue exactly one follow-up pass, so a storm
// of events costs at most one extra pass.
type passState struct {
	running bool
	queued  bool
}

// Watcher watches auto-reindex sources and triggers incremental passes.
type Watcher struct {
	reindexer Reindexer
	meta      store.MetadataStore
	debounce  time.Duration
	logger    *slog.Logger

	fsw   *fsnotify.Watcher
	owner *scanner.Owner

	mu         sync.Mutex
	debouncers map[int64]*Debouncer
	states     map[int64]*passState
	sources    map[int64]*store.Source

	wg      sync.WaitGroup
	stopped bool
}

// New creates a Watcher. debounce <= 0 uses DefaultDebounce.
func New(meta store.MetadataStore, reindexer Reindexer, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, seekerrors.DependencyFailed("create filesystem watcher", err)
	}
	return &Watcher{
		reindexer:  reindexer,
		meta:       meta,
		debounce:   debounce,
		logger:     logger,
		fsw:        fsw,
		debouncers: make(map[int64]*Debouncer),
		states:     make(map[int64]*passState),
		sources:    make(map[int64]*store.Source),
	}, nil
}

// Start watches all enabled auto-reindex sources and blocks until the
// context is cancelled. Running passes finish before Start returns; a
// cancelled context never interrupts a pass mid-batch.
func (w *Watcher) Start(ctx context.Context) error {
	sources, err := w.meta.ListSources(ctx, store.SourceFilter{EnabledOnly: true})
	if err != nil {
		return err
	}

	var watched []*store.Source
	for _, src := range sources {
		if !src.AutoReindex {
			continue
		}
		if err := w.watchSource(ctx, src); err != nil {
			w.logger.Warn("cannot watch source",
				slog.String("path", src.Path), slog.String("error", err.Error()))
			continue
		}
		watched = append(watched, src)
	}
	w.owner = scanner.NewOwner(watched)

	if len(watched) == 0 {
		w.logger.Info("no auto-reindex sources, watcher idle")
	} else {
		w.logger.Info("watching sources", slog.Int("count", len(watched)))
	}

	w.loop(ctx)

	w.mu.Lock()
	w.stopped = true
	for _, d := range w.debouncers {
		d.Stop()
	}
	w.mu.Unlock()

	_ = w.fsw.Close()
	w.wg.Wait()
	return nil
}

// watchSource adds recursive watches for a source root and starts its
// debouncer drain.
func (w *Watcher) watchSource(ctx context.Context, src *store.Source) error {
	err := filepath.WalkDir(src.Path, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if skipWatchDir(d.Name()) && path != src.Path {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
	if err != nil {
		return err
	}

	deb := NewDebouncer(w.debounce)
	w.mu.Lock()
	w.debouncers[src.ID] = deb
	w.states[src.ID] = &passState{}
	w.sources[src.ID] = src
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for batch := range deb.Output() {
			w.logger.Debug("change batch ready",
				slog.Int64("source_id", src.ID), slog.Int("events", len(batch)))
			w.trigger(ctx, src.ID)
		}
	}()
	return nil
}

// loop dispatches raw fsnotify events to per-source debouncers.
func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	src := w.owner.Resolve(event.Name)
	if src == nil {
		return
	}

	op := mapOp(event.Op)

	// New directories join the watch set so files created inside them are
	// seen.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipWatchDir(info.Name()) {
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Debug("cannot watch new directory",
					slog.String("path", event.Name), slog.String("error", err.Error()))
			}
		}
	}

	w.mu.Lock()
	deb := w.debouncers[src.ID]
	w.mu.Unlock()
	if deb == nil {
		return
	}

	deb.Add(FileEvent{
		Path:      event.Name,
		Operation: op,
		Timestamp: time.Now(),
	})
}

// trigger starts an incremental pass for a source, or queues one if a pass
// is already running.
func (w *Watcher) trigger(ctx context.Context, sourceID int64) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	state := w.states[sourceID]
	src := w.sources[sourceID]
	if state.running {
		state.queued = true
		w.mu.Unlock()
		return
	}
	state.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			if _, err := w.reindexer.IndexSource(ctx, src, false); err != nil && ctx.Err() == nil {
				w.logger.Warn("watch-triggered pass failed",
					slog.Int64("source_id", sourceID),
					slog.String("error", err.Error()))
			}

			w.mu.Lock()
			if state.queued && ctx.Err() == nil {
				state.queued = false
				w.mu.Unlock()
				continue
			}
			state.running = false
			w.mu.Unlock()
			return
		}
	}()
}

func mapOp(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Remove):
		return OpDelete
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpModify
	}
}

// skipWatchDir filters directories never worth watching.
func skipWatchDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	switch name {
	case "node_modules", "vendor", "dist", "build", "__pycache__", "target":
		return true
	}
	return false
}
