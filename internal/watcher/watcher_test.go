package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/index"
)

type mockTarget struct {
	OnIngestFile func(ctx context.Context, path, sourceID, title string) (index.UpsertResult, error)

	mu       sync.Mutex
	ingested []string
	removed  []string
}

func (m *mockTarget) IngestFile(ctx context.Context, path, sourceID, title string) (index.UpsertResult, error) {
	m.mu.Lock()
	m.ingested = append(m.ingested, sourceID)
	m.mu.Unlock()
	if m.OnIngestFile != nil {
		return m.OnIngestFile(ctx, path, sourceID, title)
	}
	return index.UpsertResult{SourceID: sourceID, Chunks: 1, Embedded: 1}, nil
}

func (m *mockTarget) RemoveSource(ctx context.Context, sourceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, sourceID)
	return 1, nil
}

func (m *mockTarget) snapshot() (ingested, removed []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ingested...), append([]string(nil), m.removed...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	existing := writeFile(t, dir, "notes.txt", "hello")
	hidden := writeFile(t, dir, ".notes.txt", "hello")
	image := writeFile(t, dir, "photo.png", "png")
	sub := filepath.Join(dir, "sub.txt")
	require.NoError(t, os.Mkdir(sub, 0o755))

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want action
	}{
		{"create", existing, fsnotify.Create, actionIngest},
		{"write", existing, fsnotify.Write, actionIngest},
		{"remove", filepath.Join(dir, "gone.pdf"), fsnotify.Remove, actionRemove},
		{"rename", filepath.Join(dir, "moved.pdf"), fsnotify.Rename, actionRemove},
		{"chmod", existing, fsnotify.Chmod, actionNone},
		{"hidden file", hidden, fsnotify.Create, actionNone},
		{"unsupported type", image, fsnotify.Create, actionNone},
		{"directory", sub, fsnotify.Create, actionNone},
		{"create of a vanished file", filepath.Join(dir, "tmp.txt"), fsnotify.Create, actionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(fsnotify.Event{Name: tt.path, Op: tt.op}))
		})
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.pdf", "not really a pdf")
	writeFile(t, dir, "c.png", "skip")
	writeFile(t, dir, ".d.txt", "skip")

	target := &mockTarget{
		OnIngestFile: func(_ context.Context, _, sourceID, _ string) (index.UpsertResult, error) {
			if sourceID == "b.pdf" {
				return index.UpsertResult{}, ragErrors.Content("extract", nil, "no text")
			}
			return index.UpsertResult{SourceID: sourceID}, nil
		},
	}
	w := New(config.WatchConfig{Dir: dir}, target)

	count, err := w.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	ingested, _ := target.snapshot()
	assert.ElementsMatch(t, []string{"a.txt", "b.pdf"}, ingested)
}

func TestScan_MissingDirectory(t *testing.T) {
	w := New(config.WatchConfig{Dir: filepath.Join(t.TempDir(), "missing")}, &mockTarget{})
	_, err := w.Scan(context.Background())
	assert.Error(t, err)
}

func TestSchedule_Debounces(t *testing.T) {
	target := &mockTarget{}
	w := New(config.WatchConfig{Debounce: config.Duration(20 * time.Millisecond)}, target)

	for i := 0; i < 5; i++ {
		w.schedule(context.Background(), "/data/report.pdf")
	}
	assert.Eventually(t, func() bool {
		ingested, _ := target.snapshot()
		return len(ingested) == 1
	}, time.Second, 5*time.Millisecond)
	w.drain()

	ingested, _ := target.snapshot()
	assert.Equal(t, []string{"report.pdf"}, ingested)
}

func TestCancel_DropsPendingIngest(t *testing.T) {
	target := &mockTarget{}
	w := New(config.WatchConfig{Debounce: config.Duration(time.Hour)}, target)
	w.schedule(context.Background(), "/data/report.pdf")
	w.handle(context.Background(), fsnotify.Event{Name: "/data/report.pdf", Op: fsnotify.Remove})
	w.drain()

	ingested, removed := target.snapshot()
	assert.Empty(t, ingested)
	assert.Equal(t, []string{"report.pdf"}, removed)
}

func TestRun_FollowsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "existing.txt", "already here")
	target := &mockTarget{}
	w := New(config.WatchConfig{Dir: dir, Debounce: config.Duration(10 * time.Millisecond)}, target)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		ingested, _ := target.snapshot()
		return len(ingested) == 1
	}, 2*time.Second, 10*time.Millisecond)

	path := writeFile(t, dir, "new.txt", "fresh")
	assert.Eventually(t, func() bool {
		ingested, _ := target.snapshot()
		return contains(ingested, "new.txt")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		_, removed := target.snapshot()
		return contains(removed, "new.txt")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
