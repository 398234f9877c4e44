package qdrantDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/retry"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("Qdrant")

// pointNamespace maps content addressed chunk ids onto the uuid ids qdrant accepts.
var pointNamespace = uuid.MustParse("6f1c2a4e-93d5-4b8e-a1f7-2c0e9d4b7a31")

const (
	payloadChunkID  = "chunk_id"
	payloadText     = "text"
	scrollPageSize  = 256
	deleteBatchSize = 512
	// tieSlack extra hits are fetched so equal scores at the k-th position
	// can still be ordered by chunk_index before the cut.
	tieSlack = 16
)

type Store struct {
	client *qdrant.Client
}

var _ vectorDB.Storage = (*Store)(nil)

func New(cfg config.QdrantConfig) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		APIKey:   cfg.APIKey,
		UseTLS:   cfg.UseTLS,
		PoolSize: uint(cfg.PoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate", "host", cfg.Host, "port", cfg.Port, "error", err)
		return nil, ragErrors.Configuration("qdrant.connect", "could not create client for %s:%d: %v", cfg.Host, cfg.Port, err)
	}
	return &Store{client: client}, nil
}

func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func (s *Store) Close() error {
	logger.Info("Shutting down Qdrant")
	return s.client.Close()
}

func (s *Store) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if collection == "" {
		return ragErrors.Configuration("qdrant.ensureCollection", "empty collection name")
	}
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return upstream("qdrant.collectionExists", err)
	}
	if exists {
		return s.checkDimension(ctx, collection, dimension)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return upstream("qdrant.createCollection", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection,
		FieldName:      vectorDB.FieldSourceID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		logger.Warn("could not index source_id payload", "collection", collection, "error", err)
	}
	logger.Info("created collection", "collection", collection, "dimension", dimension)
	return nil
}

func (s *Store) checkDimension(ctx context.Context, collection string, dimension int) error {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return upstream("qdrant.collectionInfo", err)
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != 0 && size != uint64(dimension) {
		return ragErrors.Configuration("qdrant.ensureCollection",
			"collection %q holds %d-dimensional vectors, embedder produces %d", collection, size, dimension)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, entries []commonModels.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(e.ChunkID)),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadChunkID:           e.ChunkID,
				payloadText:              e.Text,
				vectorDB.FieldSourceID:   e.Metadata.SourceID,
				vectorDB.FieldPage:       e.Metadata.Page,
				vectorDB.FieldTitle:      e.Metadata.Title,
				vectorDB.FieldChunkIndex: e.Metadata.ChunkIndex,
			}),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return upstream("qdrant.upsert", fmt.Errorf("upsert of %d points failed: %w", len(points), err))
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, k int, filter vectorDB.Filter) ([]commonModels.ScoredEntry, error) {
	log := logger.FromContext(ctx)
	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         toQdrantFilter(filter),
		Limit:          qdrant.PtrOf(queryLimit(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		log.Error("Error querying Qdrant", "error", err)
		return nil, upstream("qdrant.query", err)
	}

	matches := make([]commonModels.ScoredEntry, 0, len(result))
	for _, hit := range result {
		matches = append(matches, commonModels.ScoredEntry{
			Entry: entryFromPayload(hit.GetPayload(), nil),
			Score: hit.GetScore(),
		})
	}
	log.Debug("qdrant matches", "count", len(matches))
	return vectorDB.Rank(matches, k), nil
}

func queryLimit(k int) uint64 {
	return uint64(k) + tieSlack
}

func (s *Store) DeleteSource(ctx context.Context, collection string, sourceID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(vectorDB.FieldSourceID, sourceID)},
		}),
	})
	if err != nil {
		return upstream("qdrant.deleteSource", err)
	}
	return nil
}

func (s *Store) DeleteIDs(ctx context.Context, collection string, chunkIDs []string) error {
	for start := 0; start < len(chunkIDs); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(chunkIDs))
		ids := make([]*qdrant.PointId, 0, end-start)
		for _, id := range chunkIDs[start:end] {
			ids = append(ids, qdrant.NewID(PointID(id)))
		}
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         qdrant.NewPointsSelector(ids...),
		})
		if err != nil {
			return upstream("qdrant.deleteIDs", err)
		}
	}
	return nil
}

// SourceChunkIDs scrolls the points of one source, payload only.
func (s *Store) SourceChunkIDs(ctx context.Context, collection string, sourceID string) ([]string, error) {
	var (
		ids    []string
		offset *qdrant.PointId
	)
	for {
		resp, err := s.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{qdrant.NewMatch(vectorDB.FieldSourceID, sourceID)},
			},
			Offset:      offset,
			Limit:       qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload: qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, upstream("qdrant.sourceChunkIDs", err)
		}
		for _, p := range resp.GetResult() {
			ids = append(ids, p.GetPayload()[payloadChunkID].GetStringValue())
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			return ids, nil
		}
	}
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, upstream("qdrant.count", err)
	}
	return int(n), nil
}

// LoadAll pages through the whole collection, vectors included.
func (s *Store) LoadAll(ctx context.Context, collection string) ([]commonModels.IndexEntry, error) {
	var (
		entries []commonModels.IndexEntry
		offset  *qdrant.PointId
	)
	for {
		resp, err := s.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, upstream("qdrant.scroll", err)
		}
		for _, p := range resp.GetResult() {
			entries = append(entries, entryFromPayload(p.GetPayload(), denseVector(p.GetVectors())))
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	logger.Info("loaded collection", "collection", collection, "points", len(entries))
	return entries, nil
}

func denseVector(v *qdrant.VectorsOutput) []float32 {
	out := v.GetVector()
	if out == nil {
		return nil
	}
	if dense := out.GetDense(); dense != nil {
		return dense.GetData()
	}
	return out.GetData()
}

func entryFromPayload(payload map[string]*qdrant.Value, vector []float32) commonModels.IndexEntry {
	return commonModels.IndexEntry{
		ChunkID: payload[payloadChunkID].GetStringValue(),
		Text:    payload[payloadText].GetStringValue(),
		Vector:  vector,
		Metadata: commonModels.ChunkMetadata{
			SourceID:   payload[vectorDB.FieldSourceID].GetStringValue(),
			Page:       int(payload[vectorDB.FieldPage].GetIntegerValue()),
			Title:      payload[vectorDB.FieldTitle].GetStringValue(),
			ChunkIndex: int(payload[vectorDB.FieldChunkIndex].GetIntegerValue()),
		},
	}
}

func toQdrantFilter(f vectorDB.Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}
	var must []*qdrant.Condition
	if f.SourceID != nil {
		must = append(must, qdrant.NewMatch(vectorDB.FieldSourceID, *f.SourceID))
	}
	if f.Title != nil {
		must = append(must, qdrant.NewMatch(vectorDB.FieldTitle, *f.Title))
	}
	if f.Page != nil {
		must = append(must, qdrant.NewMatchInt(vectorDB.FieldPage, int64(*f.Page)))
	}
	if f.ChunkIndex != nil {
		must = append(must, qdrant.NewMatchInt(vectorDB.FieldChunkIndex, int64(*f.ChunkIndex)))
	}
	return &qdrant.Filter{Must: must}
}

func upstream(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return ragErrors.Upstream(op, err, false)
	}
	return ragErrors.Upstream(op, err, retry.TransientGRPC(err) || retry.TransientNetwork(err))
}
