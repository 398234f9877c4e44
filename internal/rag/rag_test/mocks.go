package rag_test

import (
	"context"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/conversation"
	"github.com/akolanti/PdfRAG/internal/data/store"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/rag"
	"github.com/akolanti/PdfRAG/internal/rag/index"
	"github.com/akolanti/PdfRAG/internal/rag/ingest"
	"github.com/akolanti/PdfRAG/internal/rag/llm"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB"
)

// TestRAG is a real rag.Service over an in-memory index with mocked providers.
type TestRAG struct {
	Service  rag.Service
	Embedder *MockEmbedder
	LLM      *MockLLM
	Index    *index.Index
}

func NewTestRAG(cfg config.Config) TestRAG {
	emb := &MockEmbedder{}
	model := &MockLLM{}
	ix := index.New(emb, nil, cfg)
	svc := rag.NewService(rag.Dependencies{
		Index:         ix,
		Embedder:      emb,
		LLM:           model,
		Conversations: conversation.NewService(store.InitSessionStore()),
		Extractor:     ingest.NewExtractor(cfg.Ingest),
		Config:        cfg,
	})
	return TestRAG{Service: svc, Embedder: emb, LLM: model, Index: ix}
}

const MockDimension = 256

// HashVector is a bag-of-words embedding: texts sharing words point the same way.
func HashVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,;:!?")))
		v[h.Sum32()%uint32(dim)]++
	}
	return v
}

// MockEmbedder implements embedding.Embedder
type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, texts []string) ([][]float32, error)
	Dim              int

	QueryCalls atomic.Int64
	BatchCalls atomic.Int64
	Embedded   atomic.Int64
}

func (m *MockEmbedder) Dimension() int {
	if m.Dim == 0 {
		return MockDimension
	}
	return m.Dim
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	m.BatchCalls.Add(1)
	m.Embedded.Add(int64(len(texts)))
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = HashVector(t, m.Dimension())
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	m.QueryCalls.Add(1)
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return HashVector(query, m.Dimension()), nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt llm.Prompt) (string, error)

	mu      sync.Mutex
	Prompts []llm.Prompt
}

func (m *MockLLM) Name() string { return "mock" }

func (m *MockLLM) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

func (m *MockLLM) LastPrompt() llm.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return llm.Prompt{}
	}
	return m.Prompts[len(m.Prompts)-1]
}

// MockStorage implements vectorDB.Storage
type MockStorage struct {
	OnUpsert       func(ctx context.Context, collection string, entries []commonModels.IndexEntry) error
	OnDeleteIDs    func(ctx context.Context, collection string, ids []string) error
	OnDeleteSource func(ctx context.Context, collection string, sourceID string) error

	mu      sync.Mutex
	Entries map[string]commonModels.IndexEntry
}

func (m *MockStorage) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	return nil
}

func (m *MockStorage) Upsert(ctx context.Context, collection string, entries []commonModels.IndexEntry) error {
	if m.OnUpsert != nil {
		if err := m.OnUpsert(ctx, collection, entries); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Entries == nil {
		m.Entries = map[string]commonModels.IndexEntry{}
	}
	for _, e := range entries {
		m.Entries[e.ChunkID] = e
	}
	return nil
}

func (m *MockStorage) Query(ctx context.Context, collection string, vector []float32, k int, filter vectorDB.Filter) ([]commonModels.ScoredEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []commonModels.ScoredEntry
	qn := vectorDB.Norm(vector)
	for _, e := range m.Entries {
		if filter.Matches(e.Metadata) {
			out = append(out, commonModels.ScoredEntry{Entry: e, Score: vectorDB.Cosine(vector, qn, e.Vector, vectorDB.Norm(e.Vector))})
		}
	}
	return vectorDB.Rank(out, k), nil
}

func (m *MockStorage) DeleteSource(ctx context.Context, collection string, sourceID string) error {
	if m.OnDeleteSource != nil {
		if err := m.OnDeleteSource(ctx, collection, sourceID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.Entries {
		if e.Metadata.SourceID == sourceID {
			delete(m.Entries, id)
		}
	}
	return nil
}

func (m *MockStorage) DeleteIDs(ctx context.Context, collection string, ids []string) error {
	if m.OnDeleteIDs != nil {
		if err := m.OnDeleteIDs(ctx, collection, ids); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.Entries, id)
	}
	return nil
}

func (m *MockStorage) SourceChunkIDs(ctx context.Context, collection string, sourceID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, e := range m.Entries {
		if e.Metadata.SourceID == sourceID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockStorage) LoadAll(ctx context.Context, collection string) ([]commonModels.IndexEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]commonModels.IndexEntry, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *MockStorage) Count(ctx context.Context, collection string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries), nil
}

func (m *MockStorage) Close() error { return nil }
