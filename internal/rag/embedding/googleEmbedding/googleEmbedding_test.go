package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
)

func TestGetContent_OnePartPerChunk(t *testing.T) {
	contents := getContent([]string{"a", "b"})
	assert.Len(t, contents, 2)
	assert.Equal(t, "b", contents[1].Parts[0].Text)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", genai.APIError{Code: 429}, true},
		{"server error", fmt.Errorf("wrapped: %w", genai.APIError{Code: 503}), true},
		{"bad request", genai.APIError{Code: 400}, false},
		{"plain error", errors.New("boom"), false},
		{"timeout", context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("embed", tt.err)
			assert.True(t, ragErrors.Is(err, ragErrors.KindUpstream))
			assert.Equal(t, tt.transient, ragErrors.IsTransient(err))
		})
	}
}
