package retriever

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/metrics"
	"github.com/akolanti/PdfRAG/internal/rag/embedding"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("retriever")

// Searcher is the read side of the vector index.
type Searcher interface {
	Query(ctx context.Context, vector []float32, k int, filter vectorDB.Filter) ([]commonModels.ScoredEntry, error)
	Count(ctx context.Context) (int, error)
}

type Retriever struct {
	embedder embedding.Embedder
	searcher Searcher
	maxK     int
}

func New(embedder embedding.Embedder, searcher Searcher, maxK int) *Retriever {
	return &Retriever{embedder: embedder, searcher: searcher, maxK: maxK}
}

// Retrieve embeds query and returns up to k chunks, best first. Chunks scoring
// below scoreThreshold are dropped when a threshold is given.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, filter vectorDB.Filter, scoreThreshold *float32) ([]commonModels.RetrievedChunk, error) {
	const op = "retriever.retrieve"
	log := logger.FromContext(ctx)

	if k <= 0 {
		return nil, ragErrors.Validation(op, "k must be positive, got %d", k)
	}
	if r.maxK > 0 && k > r.maxK {
		return nil, ragErrors.Validation(op, "k must be at most %d, got %d", r.maxK, k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, ragErrors.Validation(op, "query is empty")
	}

	size, err := r.searcher.Count(ctx)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		log.Debug("index is empty, skipping embedding")
		return []commonModels.RetrievedChunk{}, nil
	}

	start := time.Now()
	vector, err := r.embedder.GetEmbedding(ctx, query)
	if err != nil {
		log.Error("query embedding failed", "error", err)
		return nil, err
	}
	metrics.CaptureExecutionMetrics("query_embedding", time.Since(start))

	matches, err := r.searcher.Query(ctx, vector, k, filter)
	if err != nil {
		return nil, err
	}

	out := make([]commonModels.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		if scoreThreshold != nil && m.Score < *scoreThreshold {
			continue
		}
		out = append(out, commonModels.RetrievedChunk{Chunk: m.Entry.Chunk(), Score: m.Score})
	}
	log.Debug("retrieved chunks", "k", k, "matches", len(matches), "kept", len(out))
	return out, nil
}
