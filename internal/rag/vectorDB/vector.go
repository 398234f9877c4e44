package vectorDB

import (
	"context"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
)

// Storage is the persistent mirror of the vector index. The in-memory index is
// authoritative for reads; storage is written before every swap and read back
// at startup.
type Storage interface {
	EnsureCollection(ctx context.Context, collection string, dimension int) error
	Upsert(ctx context.Context, collection string, entries []commonModels.IndexEntry) error
	Query(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]commonModels.ScoredEntry, error)
	DeleteSource(ctx context.Context, collection string, sourceID string) error
	DeleteIDs(ctx context.Context, collection string, chunkIDs []string) error
	// SourceChunkIDs lists the ids stored for one source, including leftovers
	// of writes that never reached the in-memory index.
	SourceChunkIDs(ctx context.Context, collection string, sourceID string) ([]string, error)
	LoadAll(ctx context.Context, collection string) ([]commonModels.IndexEntry, error)
	Count(ctx context.Context, collection string) (int, error)
	Close() error
}
