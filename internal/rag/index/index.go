// Package index holds the in-memory vector index. Reads go through an
// atomically swapped generation and never take a lock.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/data/keyLock"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/metrics"
	"github.com/akolanti/PdfRAG/internal/rag/embedding"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("index")

type UpsertResult struct {
	SourceID string `json:"source_id"`
	Chunks   int    `json:"chunks"`
	Embedded int    `json:"embedded"`
	Reused   int    `json:"reused"`
	Removed  int    `json:"removed"`
	Version  uint64 `json:"version"`
}

type Index struct {
	embedder      embedding.Embedder
	storage       vectorDB.Storage
	collection    string
	dimension     int
	batchSize     int
	concurrency   int
	maxInputChars int

	current     atomic.Pointer[generation]
	sourceLocks *keyLock.KeyLock
	// swapMu orders swaps from different sources; it is held only while
	// the next generation is assembled from the current one.
	swapMu sync.Mutex
}

// New builds an empty index. storage may be nil for a purely in-memory index.
func New(embedder embedding.Embedder, storage vectorDB.Storage, cfg config.Config) *Index {
	ix := &Index{
		embedder:      embedder,
		storage:       storage,
		collection:    cfg.VectorStore.Collection,
		dimension:     embedder.Dimension(),
		batchSize:     max(cfg.Embedding.BatchSize, 1),
		concurrency:   max(cfg.Embedding.Concurrency, 1),
		maxInputChars: cfg.Embedding.MaxInputChars,
		sourceLocks:   keyLock.New(),
	}
	ix.current.Store(emptyGeneration())
	return ix
}

func (ix *Index) Dimension() int { return ix.dimension }

func (ix *Index) Collection() string { return ix.collection }

// Hydrate prepares the storage collection and loads it as the current generation.
func (ix *Index) Hydrate(ctx context.Context) error {
	if ix.storage == nil {
		return nil
	}
	start := time.Now()
	if err := ix.storage.EnsureCollection(ctx, ix.collection, ix.dimension); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	entries, err := ix.storage.LoadAll(ctx, ix.collection)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}

	valid := entries[:0]
	for _, e := range entries {
		if len(e.Vector) != ix.dimension {
			logger.Warn("skipping stored entry with wrong dimension", "chunk_id", e.ChunkID, "got", len(e.Vector))
			continue
		}
		valid = append(valid, e)
	}

	ix.swapMu.Lock()
	g := buildGeneration(ix.current.Load().version+1, valid)
	ix.current.Store(g)
	ix.swapMu.Unlock()

	metrics.SetIndexedChunks(len(g.entries))
	metrics.CaptureExecutionMetrics("index_hydrate", time.Since(start))
	logger.Info("index hydrated", "collection", ix.collection, "chunks", len(g.entries), "sources", len(g.bySource))
	return nil
}

// Upsert replaces every entry of sourceID with chunks. On any failure the
// previous entries of the source stay untouched.
func (ix *Index) Upsert(ctx context.Context, sourceID string, chunks []commonModels.Chunk) (UpsertResult, error) {
	const op = "index.upsert"
	log := logger.FromContext(ctx).With("source_id", sourceID)

	if sourceID == "" {
		return UpsertResult{}, ragErrors.Validation(op, "source_id is required")
	}
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if c.SourceID != sourceID || c.Metadata.SourceID != sourceID {
			return UpsertResult{}, ragErrors.Validation(op, "chunk %s belongs to %q, not %q", c.ChunkID, c.SourceID, sourceID)
		}
		if c.ChunkID == "" {
			return UpsertResult{}, ragErrors.Validation(op, "chunk without id")
		}
		if _, dup := seen[c.ChunkID]; dup {
			return UpsertResult{}, ragErrors.Validation(op, "duplicate chunk id %s", c.ChunkID)
		}
		seen[c.ChunkID] = struct{}{}
	}

	unlock := ix.sourceLocks.Lock(sourceID)
	defer unlock()
	start := time.Now()

	prior := ix.current.Load()
	entries := make([]commonModels.IndexEntry, len(chunks))
	var pending []int
	for i, c := range chunks {
		entries[i] = commonModels.IndexEntry{ChunkID: c.ChunkID, Text: c.Text, Metadata: c.Metadata}
		if old, ok := prior.entries[c.ChunkID]; ok && old.entry.Text == c.Text && len(old.entry.Vector) == ix.dimension {
			entries[i].Vector = old.entry.Vector
			continue
		}
		if ix.maxInputChars > 0 && utf8.RuneCountInString(c.Text) > ix.maxInputChars {
			return UpsertResult{}, ragErrors.Capacity(op, "chunk %s has %d characters, limit is %d",
				c.ChunkID, utf8.RuneCountInString(c.Text), ix.maxInputChars)
		}
		pending = append(pending, i)
	}

	if err := ix.embedPending(ctx, entries, pending); err != nil {
		log.Error("embedding failed, keeping prior index state", "error", err)
		return UpsertResult{}, err
	}

	existing := make(map[string]struct{}, len(prior.bySource[sourceID]))
	for _, id := range prior.bySource[sourceID] {
		existing[id] = struct{}{}
	}
	if ix.storage != nil {
		stored, err := ix.storage.SourceChunkIDs(ctx, ix.collection, sourceID)
		if err != nil {
			log.Error("could not list stored chunks, keeping prior index state", "error", err)
			return UpsertResult{}, storageError(op, err)
		}
		for _, id := range stored {
			existing[id] = struct{}{}
		}
	}
	var stale []string
	for id := range existing {
		if _, keep := seen[id]; !keep {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)

	if ix.storage != nil {
		if err := ix.storage.Upsert(ctx, ix.collection, entries); err != nil {
			log.Error("storage upsert failed, keeping prior index state", "error", err)
			ix.discardWritten(ctx, entries, existing)
			return UpsertResult{}, storageError(op, err)
		}
		if err := ix.storage.DeleteIDs(ctx, ix.collection, stale); err != nil {
			log.Error("storage cleanup failed, keeping prior index state", "error", err)
			ix.discardWritten(ctx, entries, existing)
			return UpsertResult{}, storageError(op, err)
		}
	}

	ix.swapMu.Lock()
	next := ix.current.Load().withSource(sourceID, entries)
	ix.current.Store(next)
	ix.swapMu.Unlock()

	result := UpsertResult{
		SourceID: sourceID,
		Chunks:   len(entries),
		Embedded: len(pending),
		Reused:   len(entries) - len(pending),
		Removed:  len(stale),
		Version:  next.version,
	}
	metrics.SetIndexedChunks(len(next.entries))
	metrics.CaptureEmbeddingWork(result.Embedded, result.Reused)
	metrics.CaptureExecutionMetrics("index_upsert", time.Since(start))
	log.Info("source indexed", "chunks", result.Chunks, "embedded", result.Embedded,
		"reused", result.Reused, "removed", result.Removed, "version", result.Version)
	return result, nil
}

// discardWritten removes from storage the entries of an aborted upsert that
// were not stored before it. Whatever survives a failure here is listed by
// SourceChunkIDs and cleared on the next upsert of the source.
func (ix *Index) discardWritten(ctx context.Context, entries []commonModels.IndexEntry, existing map[string]struct{}) {
	var written []string
	for _, e := range entries {
		if _, ok := existing[e.ChunkID]; !ok {
			written = append(written, e.ChunkID)
		}
	}
	if len(written) == 0 {
		return
	}
	if err := ix.storage.DeleteIDs(context.WithoutCancel(ctx), ix.collection, written); err != nil {
		logger.FromContext(ctx).Warn("could not discard chunks of aborted upsert", "count", len(written), "error", err)
	}
}

// embedPending fills entries[i].Vector for every i in pending, batching and
// bounding concurrency. Any gap is reported with the ids left unembedded.
func (ix *Index) embedPending(ctx context.Context, entries []commonModels.IndexEntry, pending []int) error {
	const op = "index.embed"
	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for start := 0; start < len(pending); start += ix.batchSize {
		batch := pending[start:min(start+ix.batchSize, len(pending))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for j, i := range batch {
				texts[j] = entries[i].Text
			}
			vectors, err := ix.embedder.BatchEmbedding(gctx, texts)
			if err != nil {
				return err
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), len(batch))
			}
			for j, i := range batch {
				if len(vectors[j]) != ix.dimension {
					return fmt.Errorf("chunk %s: vector has dimension %d, want %d", entries[i].ChunkID, len(vectors[j]), ix.dimension)
				}
			}
			for j, i := range batch {
				entries[i].Vector = vectors[j]
			}
			return nil
		})
	}
	err := g.Wait()

	var missing []string
	for _, i := range pending {
		if entries[i].Vector == nil {
			missing = append(missing, entries[i].ChunkID)
		}
	}
	if err == nil && len(missing) == 0 {
		return nil
	}
	if err == nil {
		err = errors.New("embedder returned no vector")
	}
	if len(missing) == 0 {
		for _, i := range pending {
			missing = append(missing, entries[i].ChunkID)
		}
	}
	return ragErrors.IndexConsistency(op, missing, err)
}

// Delete removes every entry of sourceID and reports how many were dropped.
// Deleting an unknown source is not an error.
func (ix *Index) Delete(ctx context.Context, sourceID string) (int, error) {
	const op = "index.delete"
	if sourceID == "" {
		return 0, ragErrors.Validation(op, "source_id is required")
	}
	unlock := ix.sourceLocks.Lock(sourceID)
	defer unlock()

	removed := len(ix.current.Load().bySource[sourceID])
	if ix.storage != nil {
		if err := ix.storage.DeleteSource(ctx, ix.collection, sourceID); err != nil {
			return 0, storageError(op, err)
		}
	}
	if removed == 0 {
		return 0, nil
	}

	ix.swapMu.Lock()
	next := ix.current.Load().withSource(sourceID, nil)
	ix.current.Store(next)
	ix.swapMu.Unlock()

	metrics.SetIndexedChunks(len(next.entries))
	logger.FromContext(ctx).Info("source removed", "source_id", sourceID, "removed", removed, "version", next.version)
	return removed, nil
}

// Query returns at most k entries by cosine similarity.
func (ix *Index) Query(ctx context.Context, vector []float32, k int, filter vectorDB.Filter) ([]commonModels.ScoredEntry, error) {
	if err := ix.validateQuery(vector, k); err != nil {
		return nil, err
	}
	return ix.current.Load().search(vector, k, filter), nil
}

func (ix *Index) validateQuery(vector []float32, k int) error {
	const op = "index.query"
	if k <= 0 {
		return ragErrors.Validation(op, "k must be positive, got %d", k)
	}
	if len(vector) != ix.dimension {
		return ragErrors.Validation(op, "query vector has dimension %d, index expects %d", len(vector), ix.dimension)
	}
	return nil
}

func (ix *Index) Count(context.Context) (int, error) {
	return ix.Len(), nil
}

func (ix *Index) Len() int {
	return len(ix.current.Load().entries)
}

func (ix *Index) Has(sourceID string) bool {
	_, ok := ix.current.Load().bySource[sourceID]
	return ok
}

func (ix *Index) Stats() commonModels.IndexStats {
	g := ix.current.Load()
	sources := g.sourceIDs()
	return commonModels.IndexStats{
		TotalChunks:    len(g.entries),
		UniqueSources:  len(sources),
		Sources:        sources,
		CollectionName: ix.collection,
		Version:        g.version,
	}
}

// Source returns the chunks of one source ordered by chunk_index.
func (ix *Index) Source(sourceID string) ([]commonModels.Chunk, bool) {
	g := ix.current.Load()
	ids, ok := g.bySource[sourceID]
	if !ok {
		return nil, false
	}
	chunks := make([]commonModels.Chunk, len(ids))
	for i, id := range ids {
		chunks[i] = g.entries[id].entry.Chunk()
	}
	return chunks, true
}

func storageError(op string, err error) error {
	var e *ragErrors.Error
	if errors.As(err, &e) {
		return err
	}
	return ragErrors.Upstream(op, err, false)
}
