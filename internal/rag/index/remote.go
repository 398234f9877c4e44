package index

import (
	"context"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB"
)

// Remote answers queries straight from the storage backend without loading
// the collection into memory. One-shot CLI searches use it.
type Remote struct {
	ix *Index
}

func (ix *Index) Remote() *Remote {
	return &Remote{ix: ix}
}

func (r *Remote) Query(ctx context.Context, vector []float32, k int, filter vectorDB.Filter) ([]commonModels.ScoredEntry, error) {
	if err := r.ix.validateQuery(vector, k); err != nil {
		return nil, err
	}
	if r.ix.storage == nil {
		return r.ix.Query(ctx, vector, k, filter)
	}
	matches, err := r.ix.storage.Query(ctx, r.ix.collection, vector, k, filter)
	if err != nil {
		return nil, storageError("index.remoteQuery", err)
	}
	return matches, nil
}

func (r *Remote) Count(ctx context.Context) (int, error) {
	if r.ix.storage == nil {
		return r.ix.Len(), nil
	}
	n, err := r.ix.storage.Count(ctx, r.ix.collection)
	if err != nil {
		return 0, storageError("index.remoteCount", err)
	}
	return n, nil
}
