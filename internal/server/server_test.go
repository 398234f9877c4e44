package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/data/store"
	"github.com/akolanti/PdfRAG/internal/handlers"
	"github.com/akolanti/PdfRAG/internal/job"
	"github.com/akolanti/PdfRAG/internal/middleware"
	"github.com/akolanti/PdfRAG/internal/rag/rag_test"
)

func TestNewRouter(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.Token = "token"
	cfg.RateLimit.Enabled = false
	tr := rag_test.NewTestRAG(cfg)
	h := handlers.NewHandler(tr.Service, job.InitJobService(store.InitInMemoryJobStore(), cfg.Jobs), cfg)
	mcpCalled := false
	mcp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mcpCalled = true
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(h, middleware.New(cfg.Auth, cfg.RateLimit), mcp)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics is public", http.MethodGet, "/metrics", "", http.StatusOK},
		{"stats needs a token", http.MethodGet, "/stats", "", http.StatusUnauthorized},
		{"stats with token", http.MethodGet, "/stats", "Bearer token", http.StatusOK},
		{"unknown job", http.MethodGet, "/status/nope", "Bearer token", http.StatusNotFound},
		{"mcp needs a token", http.MethodPost, "/mcp", "", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/nope", "Bearer token", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer token")
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, mcpCalled)
}

func TestNew_UsesServerConfig(t *testing.T) {
	cfg := config.Default().Server
	cfg.ListenAddr = ":4321"
	s := New(cfg, http.NewServeMux())
	assert.Equal(t, ":4321", s.httpServer.Addr)
	assert.Equal(t, cfg.WriteTimeout.Std(), s.httpServer.WriteTimeout)
}
