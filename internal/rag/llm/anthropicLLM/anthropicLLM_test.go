package anthropicLLM

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/llm"
)

func TestToMessages_AlternatesRoles(t *testing.T) {
	msgs := toMessages(llm.Prompt{
		Question: "q",
		History: []chatModel.Turn{
			{Role: chatModel.RoleAssistant, Content: "orphan"},
			{Role: chatModel.RoleUser, Content: "a"},
			{Role: chatModel.RoleUser, Content: "b"},
			{Role: chatModel.RoleAssistant, Content: "c"},
		},
	})

	require.Len(t, msgs, 3)
	assert.EqualValues(t, "user", msgs[0].Role)
	assert.EqualValues(t, "assistant", msgs[1].Role)
	assert.EqualValues(t, "user", msgs[2].Role)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) llm.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Default().Generation
	cfg.Model = "claude-test"
	p, err := New(cfg, "test", nil, option.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return p
}

func TestGenerate(t *testing.T) {
	var body map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"answer"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":1,"output_tokens":1}}`))
	})

	got, err := p.Generate(context.Background(), llm.Prompt{System: "sys", Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
	assert.Equal(t, "claude-test", body["model"])
	assert.NotNil(t, body["system"])
}

func TestGenerate_RateLimitIsTransient(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	})

	_, err := p.Generate(context.Background(), llm.Prompt{Question: "q"})
	assert.True(t, ragErrors.Is(err, ragErrors.KindUpstream))
	assert.True(t, ragErrors.IsTransient(err))
}
