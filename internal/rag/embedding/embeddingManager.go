package embedding

import (
	"context"

	"github.com/akolanti/PdfRAG/internal/rag/retry"
)

// Embedder maps text to fixed dimension vectors. BatchEmbedding returns one
// vector per input, in input order.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

type retrying struct {
	next   Embedder
	policy retry.Policy
}

// WithRetry wraps an embedder so transient upstream failures are retried
// with bounded backoff.
func WithRetry(next Embedder, policy retry.Policy) Embedder {
	return &retrying{next: next, policy: policy}
}

func (r *retrying) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return retry.Do(ctx, r.policy, "embed.query", func(ctx context.Context) ([]float32, error) {
		return r.next.GetEmbedding(ctx, query)
	})
}

func (r *retrying) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return retry.Do(ctx, r.policy, "embed.batch", func(ctx context.Context) ([][]float32, error) {
		return r.next.BatchEmbedding(ctx, texts)
	})
}

func (r *retrying) Dimension() int {
	return r.next.Dimension()
}
