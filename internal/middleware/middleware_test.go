package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

func echoTrace(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trace, _ := r.Context().Value(config.TRACE_ID_KEY).(string)
		assert.NotEmpty(t, trace)
		w.WriteHeader(http.StatusTeapot)
	}
}

func TestWrap_Auth(t *testing.T) {
	auth := config.AuthConfig{Token: "s3cret"}
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer s3cret", http.StatusTeapot},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
	}
	m := New(auth, config.RateLimitConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			m.Wrap(echoTrace(t))(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
		})
	}
}

func TestWrap_KeepsCallerTrace(t *testing.T) {
	m := New(config.AuthConfig{Disabled: true}, config.RateLimitConfig{})
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("X-Trace-Id", "trace-123")
	rec := httptest.NewRecorder()

	var seen string
	m.Wrap(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(config.TRACE_ID_KEY).(string)
	})(rec, req)

	assert.Equal(t, "trace-123", seen)
	assert.Equal(t, "trace-123", rec.Header().Get("X-Trace-Id"))
}

func TestWrap_RejectsWhenNoTokenConfigured(t *testing.T) {
	m := New(config.AuthConfig{}, config.RateLimitConfig{})
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	m.Wrap(echoTrace(t))(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWrap_RateLimit(t *testing.T) {
	m := New(config.AuthConfig{Disabled: true}, config.RateLimitConfig{Enabled: true, PerSecond: 0.001, Burst: 2})
	call := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		m.Wrap(echoTrace(t))(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusTeapot, call("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTeapot, call("10.0.0.1:1235"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1236"))
	assert.Equal(t, http.StatusTeapot, call("10.0.0.2:1234"), "limits are per ip")
}

func TestIPRateLimiter_ReusesLimiter(t *testing.T) {
	l := NewIPRateLimiter(config.RateLimitConfig{Enabled: true, PerSecond: 1, Burst: 1})
	require.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
}

func TestIPRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(config.RateLimitConfig{Enabled: true, PerSecond: 1, Burst: 1})
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	l.Allow("10.0.0.2")
	assert.Equal(t, 2, l.Clients())

	now = now.Add(clientIdleTTL + time.Second)
	assert.True(t, l.Allow("10.0.0.3"))
	assert.Equal(t, 1, l.Clients(), "idle buckets are dropped")
}

func TestIsValidBearerToken_Disabled(t *testing.T) {
	assert.True(t, IsValidBearerToken("", config.AuthConfig{Disabled: true}, logger_i.NewLogger("test")))
}
