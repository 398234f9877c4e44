package mcpServer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/rag_test"
)

func newTestServer(t *testing.T) (*Server, rag_test.TestRAG) {
	t.Helper()
	tr := rag_test.NewTestRAG(config.Default())
	_, err := tr.Service.Ingest(context.Background(), commonModels.Document{
		SourceID: "pets.pdf",
		Title:    "pets",
		Pages: []commonModels.Page{
			{Number: 1, Text: "cats purr and sleep all day in the sun"},
			{Number: 2, Text: "dogs bark at the mailman every morning"},
		},
	})
	require.NoError(t, err)

	s, err := New(tr.Service)
	require.NoError(t, err)
	return s, tr
}

func TestNew_RequiresService(t *testing.T) {
	s, err := New(nil)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrMissingRAGService)
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t)

	t.Run("ranks the matching page first", func(t *testing.T) {
		_, out, err := s.handleSearch(ctx, nil, SearchInput{Query: "dogs bark", K: 2})
		require.NoError(t, err)
		require.Equal(t, 2, out.Count)
		assert.Equal(t, 2, out.Results[0].Page)
		assert.Equal(t, "pets.pdf", out.Results[0].SourceID)
	})

	t.Run("source_id restricts results", func(t *testing.T) {
		_, out, err := s.handleSearch(ctx, nil, SearchInput{Query: "dogs", SourceID: "other.pdf"})
		require.NoError(t, err)
		assert.Zero(t, out.Count)
	})

	t.Run("blank query is rejected", func(t *testing.T) {
		_, _, err := s.handleSearch(ctx, nil, SearchInput{Query: " "})
		assert.True(t, ragErrors.Is(err, ragErrors.KindValidation))
	})
}

func TestHandleAsk(t *testing.T) {
	ctx := context.Background()
	s, tr := newTestServer(t)

	_, out, err := s.handleAsk(ctx, nil, AskInput{Question: "what do dogs do?", K: 1})
	require.NoError(t, err)
	assert.Equal(t, "mocked llm response", out.Answer)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, 2, out.Sources[0].Page)

	_, _, err = s.handleAsk(ctx, nil, AskInput{Question: "and cats?", SessionID: "mcp-1"})
	require.NoError(t, err)
	_, history, err := s.handleHistory(ctx, nil, HistoryInput{SessionID: "mcp-1"})
	require.NoError(t, err)
	assert.Len(t, history.Turns, 2)
	assert.Equal(t, 2, tr.LLM.Calls())
}

func TestHandleStats(t *testing.T) {
	s, _ := newTestServer(t)
	_, stats, err := s.handleStats(context.Background(), nil, StatsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Equal(t, []string{"pets.pdf"}, stats.Sources)
}

func TestHandleHistory_UnknownSession(t *testing.T) {
	s, _ := newTestServer(t)
	_, _, err := s.handleHistory(context.Background(), nil, HistoryInput{SessionID: "nope"})
	assert.True(t, ragErrors.Is(err, ragErrors.KindNotFound))
}
