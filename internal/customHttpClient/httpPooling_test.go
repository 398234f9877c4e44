package customHttpClient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/PdfRAG/internal/config"
)

func TestNew(t *testing.T) {
	client := New(config.HTTPClientConfig{
		MaxIdleConns:        8,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     config.Duration(time.Minute),
		Timeout:             config.Duration(30 * time.Second),
	})

	assert.Equal(t, 30*time.Second, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 8, transport.MaxIdleConns)
	assert.Equal(t, 4, transport.MaxIdleConnsPerHost)
	assert.Equal(t, time.Minute, transport.IdleConnTimeout)
}
