package rag_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag"
	"github.com/akolanti/PdfRAG/internal/rag/index"
	"github.com/akolanti/PdfRAG/internal/rag/llm"
)

type fixture struct {
	svc      rag.Service
	embedder *MockEmbedder
	llm      *MockLLM
	index    *index.Index
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Chunking.TargetSize = 200
	cfg.Chunking.Overlap = 20
	cfg.Retry.BaseDelay = config.Duration(time.Millisecond)
	cfg.Retry.MaxDelay = config.Duration(5 * time.Millisecond)
	cfg.Retry.AttemptTimeout = config.Duration(time.Second)
	cfg.Chat.MaxHistory = 2
	return cfg
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	tr := NewTestRAG(cfg)
	return &fixture{svc: tr.Service, embedder: tr.Embedder, llm: tr.LLM, index: tr.Index}
}

func document(sourceID string, pages ...string) commonModels.Document {
	doc := commonModels.Document{SourceID: sourceID, Title: strings.TrimSuffix(sourceID, ".pdf")}
	for i, p := range pages {
		doc.Pages = append(doc.Pages, commonModels.Page{Number: i + 1, Text: p})
	}
	return doc
}

func petsDocument() commonModels.Document {
	return document("pets.pdf",
		"cats purr and sleep all day in the sun",
		"dogs bark at the mailman every morning",
		"parrots repeat words they hear")
}

func intPtr(v int) *int { return &v }

func TestQuery_ZeroKFailsWithoutEmbedding(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), petsDocument())
	require.NoError(t, err)

	_, err = f.svc.Query(context.Background(), rag.QueryRequest{Question: "dogs", K: intPtr(0)})
	assert.True(t, ragErrors.Is(err, ragErrors.KindValidation))
	assert.Zero(t, f.embedder.QueryCalls.Load())
	assert.Zero(t, f.llm.Calls())
}

func TestQuery_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), petsDocument())
	require.NoError(t, err)

	tests := []struct {
		name string
		req  rag.QueryRequest
	}{
		{"blank question", rag.QueryRequest{Question: "   "}},
		{"k above max", rag.QueryRequest{Question: "dogs", K: intPtr(1000)}},
		{"negative k", rag.QueryRequest{Question: "dogs", K: intPtr(-1)}},
		{"malformed filter", rag.QueryRequest{Question: "dogs", Filter: map[string]any{"page": "two"}}},
		{"unknown filter field", rag.QueryRequest{Question: "dogs", Filter: map[string]any{"color": "red"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Query(context.Background(), tt.req)
			assert.True(t, ragErrors.Is(err, ragErrors.KindValidation), "got %v", err)
		})
	}
	assert.Zero(t, f.embedder.QueryCalls.Load())
	assert.Zero(t, f.llm.Calls())
}

func TestQuery_EmptyIndexAnswersWithoutContext(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Query(context.Background(), rag.QueryRequest{Question: "anything"})
	require.NoError(t, err)
	assert.Equal(t, "mocked llm response", resp.Answer)
	assert.Equal(t, 0, resp.NumSources)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
	assert.Empty(t, f.llm.LastPrompt().Passages)
	assert.Zero(t, f.embedder.QueryCalls.Load())
}

func TestQuery_FailClosed(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Retrieval.FailClosed = true })

	_, err := f.svc.Query(context.Background(), rag.QueryRequest{Question: "anything"})
	assert.True(t, ragErrors.Is(err, ragErrors.KindNotFound))
	assert.Zero(t, f.llm.Calls())
}

func TestQuery_GroundsAnswerInPassages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Ingest(ctx, petsDocument())
	require.NoError(t, err)

	resp, err := f.svc.Query(ctx, rag.QueryRequest{Question: "why do dogs bark at the mailman", K: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.NumSources)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "pets.pdf", resp.Sources[0].SourceID)
	assert.Equal(t, "pets", resp.Sources[0].Title)
	assert.Equal(t, 2, resp.Sources[0].Page)
	assert.GreaterOrEqual(t, resp.Sources[0].Score, resp.Sources[1].Score)

	prompt := f.llm.LastPrompt()
	assert.Equal(t, config.DefaultSystemPrompt, prompt.System)
	require.Len(t, prompt.Passages, 2)
	assert.Contains(t, prompt.Passages[0].Text, "dogs bark")
	assert.Empty(t, prompt.History, "plain queries carry no history")
	assert.Contains(t, prompt.UserMessage(), "[Document 1 - pets, Page 2]")
}

func TestQuery_WithoutSources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Ingest(ctx, petsDocument())
	require.NoError(t, err)

	include := false
	resp, err := f.svc.Query(ctx, rag.QueryRequest{Question: "cats", IncludeSources: &include})
	require.NoError(t, err)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 3, resp.NumSources)
}

func TestQuery_Filter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Ingest(ctx, petsDocument())
	require.NoError(t, err)

	resp, err := f.svc.Query(ctx, rag.QueryRequest{Question: "dogs bark", Filter: map[string]any{"page": float64(3)}})
	require.NoError(t, err)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, 3, resp.Sources[0].Page)
}

func TestGenerate_Retries(t *testing.T) {
	transient := ragErrors.Upstream("llm.generate", errors.New("529 overloaded"), true)
	permanent := ragErrors.Upstream("llm.generate", errors.New("400 bad request"), false)

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"transient then success", 2, transient, 3, false},
		{"non transient fails at once", 5, permanent, 1, true},
		{"attempts exhausted", 5, transient, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			calls := 0
			f.llm.OnGenerate = func(ctx context.Context, prompt llm.Prompt) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", tt.err
				}
				return "recovered", nil
			}

			resp, err := f.svc.Query(context.Background(), rag.QueryRequest{Question: "anything"})
			assert.Equal(t, tt.wantCalls, f.llm.Calls())
			if tt.wantErr {
				assert.True(t, ragErrors.Is(err, ragErrors.KindUpstream))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "recovered", resp.Answer)
		})
	}
}

func TestChat_RecordsExchangesAndBoundsWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Ingest(ctx, petsDocument())
	require.NoError(t, err)

	messages := []string{"tell me about cats", "and dogs?", "what about parrots"}
	for _, m := range messages {
		resp, err := f.svc.Chat(ctx, rag.ChatRequest{SessionID: "s1", Message: m, K: intPtr(1)})
		require.NoError(t, err)
		assert.Equal(t, "s1", resp.SessionID)
		assert.Equal(t, 1, resp.NumSources)
	}

	history, err := f.svc.GetHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history.Turns, 2*len(messages))
	assert.Equal(t, chatModel.RoleUser, history.Turns[0].Role)
	assert.Equal(t, "tell me about cats", history.Turns[0].Content)
	assert.Equal(t, chatModel.RoleAssistant, history.Turns[1].Role)
	assert.Len(t, history.Turns[1].Citations, 1)

	window := f.llm.LastPrompt().History
	require.Len(t, window, 2)
	assert.Equal(t, "and dogs?", window[0].Content)
	assert.Equal(t, chatModel.RoleAssistant, window[1].Role)
}

func TestChat_FailedGenerationRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.llm.OnGenerate = func(ctx context.Context, prompt llm.Prompt) (string, error) {
		return "", ragErrors.Upstream("llm.generate", errors.New("bad request"), false)
	}

	_, err := f.svc.Chat(context.Background(), rag.ChatRequest{SessionID: "s1", Message: "hi"})
	require.Error(t, err)

	_, err = f.svc.GetHistory(context.Background(), "s1")
	assert.True(t, ragErrors.Is(err, ragErrors.KindNotFound))
}

func TestChat_CancelledAfterGenerationRecordsNothing(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.llm.OnGenerate = func(context.Context, llm.Prompt) (string, error) {
		cancel()
		return "too late", nil
	}

	_, err := f.svc.Chat(ctx, rag.ChatRequest{SessionID: "s1", Message: "hi"})
	require.Error(t, err)

	_, err = f.svc.GetHistory(context.Background(), "s1")
	assert.True(t, ragErrors.Is(err, ragErrors.KindNotFound))
}

func TestChat_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Chat(context.Background(), rag.ChatRequest{SessionID: "", Message: "hi"})
	assert.True(t, ragErrors.Is(err, ragErrors.KindValidation))
	_, err = f.svc.Chat(context.Background(), rag.ChatRequest{SessionID: "s", Message: " "})
	assert.True(t, ragErrors.Is(err, ragErrors.KindValidation))
	assert.Zero(t, f.llm.Calls())
}

func TestSessionOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Chat(ctx, rag.ChatRequest{SessionID: "s1", Message: "hi"})
	require.NoError(t, err)

	data, err := f.svc.Export(ctx, "s1")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role": "user"`)

	require.NoError(t, f.svc.ClearHistory(ctx, "s1"))
	data, err = f.svc.Export(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	sessions, err := f.svc.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, f.svc.DeleteSession(ctx, "s1"))
	assert.True(t, ragErrors.Is(f.svc.ClearHistory(ctx, "s1"), ragErrors.KindNotFound))
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Ingest(ctx, petsDocument())
	require.NoError(t, err)

	resp, err := f.svc.Search(ctx, rag.SearchRequest{Query: "parrots repeat words"})
	require.NoError(t, err)
	require.Len(t, resp.Chunks, 3)
	assert.Equal(t, 3, resp.Chunks[0].Chunk.Metadata.Page)
	for i := 1; i < len(resp.Chunks); i++ {
		assert.GreaterOrEqual(t, resp.Chunks[i-1].Score, resp.Chunks[i].Score)
	}

	threshold := float32(1.5)
	resp, err = f.svc.Search(ctx, rag.SearchRequest{Query: "parrots", ScoreThreshold: &threshold})
	require.NoError(t, err)
	assert.Empty(t, resp.Chunks)

	resp, err = f.svc.Search(ctx, rag.SearchRequest{Query: "anything", K: intPtr(5), Filter: map[string]any{"source_id": "other.pdf"}})
	require.NoError(t, err)
	assert.Empty(t, resp.Chunks)
	assert.Zero(t, f.llm.Calls(), "search never generates")
}

func TestReindex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reindex(ctx, petsDocument())
	assert.True(t, ragErrors.Is(err, ragErrors.KindNotFound))

	first, err := f.svc.Ingest(ctx, petsDocument())
	require.NoError(t, err)
	before, err := f.svc.ViewSource(ctx, "pets.pdf")
	require.NoError(t, err)

	second, err := f.svc.Reindex(ctx, petsDocument())
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Zero(t, second.Embedded, "identical content is never re-embedded")
	assert.Equal(t, first.Chunks, second.Reused)

	after, err := f.svc.ViewSource(ctx, "pets.pdf")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReindex_IsolatesSourcesAndUnchangedPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, document("a.pdf", "alpha page one text", "alpha page two text"))
	require.NoError(t, err)
	_, err = f.svc.Ingest(ctx, document("b.pdf", "bravo only page"))
	require.NoError(t, err)
	aBefore, _ := f.svc.ViewSource(ctx, "a.pdf")
	bBefore, _ := f.svc.ViewSource(ctx, "b.pdf")

	res, err := f.svc.Reindex(ctx, document("a.pdf", "alpha page one text", "alpha page two was edited"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Embedded)
	assert.Equal(t, 1, res.Removed)

	aAfter, _ := f.svc.ViewSource(ctx, "a.pdf")
	bAfter, _ := f.svc.ViewSource(ctx, "b.pdf")
	assert.Equal(t, bBefore, bAfter)
	assert.Equal(t, aBefore.Pages[0].Chunks[0].ChunkID, aAfter.Pages[0].Chunks[0].ChunkID)
	assert.NotEqual(t, aBefore.Pages[1].Chunks[0].ChunkID, aAfter.Pages[1].Chunks[0].ChunkID)
}

func TestRemoveSourceAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Ingest(ctx, petsDocument())
	require.NoError(t, err)
	_, err = f.svc.Ingest(ctx, document("b.pdf", "bravo"))
	require.NoError(t, err)

	stats := f.svc.Stats(ctx)
	assert.Equal(t, 4, stats.TotalChunks)
	assert.Equal(t, 2, stats.UniqueSources)
	assert.Equal(t, []string{"b.pdf", "pets.pdf"}, stats.Sources)
	assert.Equal(t, "pdf_documents", stats.CollectionName)

	removed, err := f.svc.RemoveSource(ctx, "pets.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	removed, err = f.svc.RemoveSource(ctx, "pets.pdf")
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = f.svc.ViewSource(ctx, "pets.pdf")
	assert.True(t, ragErrors.Is(err, ragErrors.KindNotFound))
	assert.Equal(t, 1, f.svc.Stats(ctx).TotalChunks)
}

func TestIngest_DocumentWithoutText(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), commonModels.Document{SourceID: "empty.pdf"})
	assert.True(t, ragErrors.Is(err, ragErrors.KindContent))
}

func TestProcessJob(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("meeting notes about the quarterly budget"), 0o644))

	job := f.svc.ProcessJob(context.Background(), jobModel.Job{
		Id:      "job-1",
		JobType: jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{
			SourceID: "notes.txt",
			FilePath: path,
		},
	})
	assert.Equal(t, jobModel.JobStatusComplete, job.Status)
	assert.Equal(t, jobModel.Complete, job.CurrentStep)
	assert.Equal(t, 1, job.JobPayload.ChunksIndexed)
	assert.Equal(t, "notes", job.JobPayload.Title)
	assert.NoFileExists(t, path, "the upload is removed once processed")

	view, err := f.svc.ViewSource(context.Background(), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalChunks)
}

func TestProcessJob_Failure(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	job := f.svc.ProcessJob(context.Background(), jobModel.Job{
		Id:         "job-2",
		JobType:    jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{SourceID: "image.png", FilePath: path},
	})
	assert.Equal(t, jobModel.JobStatusError, job.Status)
	assert.Equal(t, http.StatusBadRequest, job.Error.Code)
	assert.False(t, job.Error.Retry)
}
