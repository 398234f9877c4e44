package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/rag/index"
	"github.com/akolanti/PdfRAG/internal/rag/ingest"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

// Target is the part of rag.Service the watcher drives.
type Target interface {
	IngestFile(ctx context.Context, path, sourceID, title string) (index.UpsertResult, error)
	RemoveSource(ctx context.Context, sourceID string) (int, error)
}

type action int

const (
	actionNone action = iota
	actionIngest
	actionRemove
)

// Watcher keeps the index in step with a directory: new and changed files are
// ingested after a quiet period, deleted or renamed ones are removed.
type Watcher struct {
	dir      string
	debounce time.Duration
	target   Target
	logger   *logger_i.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func New(cfg config.WatchConfig, target Target) *Watcher {
	return &Watcher{
		dir:      cfg.Dir,
		debounce: cfg.Debounce.Std(),
		target:   target,
		logger:   logger_i.NewLogger("Watcher"),
		pending:  make(map[string]*time.Timer),
	}
}

// Scan ingests every supported file already in the directory. Failures are
// logged and skipped.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, err
	}
	ingested := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ingested, ctx.Err()
		}
		path := filepath.Join(w.dir, entry.Name())
		if entry.IsDir() || !watchable(path) {
			continue
		}
		if w.ingest(ctx, path) {
			ingested++
		}
	}
	return ingested, nil
}

// Run scans the directory, then follows its events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	// watch before scanning so files landing mid-scan are not missed
	count, err := w.Scan(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("watching directory", "dir", w.dir, "ingested", count)

	defer w.drain()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	switch classify(event) {
	case actionIngest:
		w.schedule(ctx, event.Name)
	case actionRemove:
		w.cancel(event.Name)
		w.remove(ctx, event.Name)
	}
}

func classify(event fsnotify.Event) action {
	if !watchable(event.Name) {
		return actionNone
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return actionRemove
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return actionNone
		}
		return actionIngest
	}
	return actionNone
}

func watchable(path string) bool {
	name := filepath.Base(path)
	return !strings.HasPrefix(name, ".") && ingest.Supported(name)
}

// schedule restarts the quiet period for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
	w.pending[path] = timer
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

func (w *Watcher) drain() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) ingest(ctx context.Context, path string) bool {
	sourceID := ingest.SourceIDFor(path)
	res, err := w.target.IngestFile(ctx, path, sourceID, "")
	if err != nil {
		w.logger.Warn("could not ingest file", "path", path, "error", err)
		return false
	}
	w.logger.Info("file ingested", "sourceId", sourceID, "chunks", res.Chunks, "embedded", res.Embedded)
	return true
}

func (w *Watcher) remove(ctx context.Context, path string) {
	sourceID := ingest.SourceIDFor(path)
	removed, err := w.target.RemoveSource(ctx, sourceID)
	if err != nil {
		w.logger.Warn("could not remove source", "sourceId", sourceID, "error", err)
		return
	}
	w.logger.Info("source removed", "sourceId", sourceID, "chunks", removed)
}
