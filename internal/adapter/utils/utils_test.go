package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", ragErrors.Validation("op", "bad k"), http.StatusBadRequest},
		{"not found", ragErrors.NotFound("op", "missing"), http.StatusNotFound},
		{"capacity", ragErrors.Capacity("op", "too big"), http.StatusRequestEntityTooLarge},
		{"content", ragErrors.Content("op", nil, "no text"), http.StatusUnprocessableEntity},
		{"upstream", ragErrors.Upstream("op", errors.New("boom"), true), http.StatusBadGateway},
		{"deadline", ragErrors.Upstream("op", context.DeadlineExceeded, false), http.StatusGatewayTimeout},
		{"consistency", ragErrors.IndexConsistency("op", []string{"c1"}, errors.New("x")), http.StatusInternalServerError},
		{"wrapped validation", fmt.Errorf("handler: %w", ragErrors.Validation("op", "x")), http.StatusBadRequest},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestPublicMessage_HidesUpstreamDetail(t *testing.T) {
	msg := PublicMessage(ragErrors.Upstream("generate", errors.New("api key sk-123 rejected"), false))
	assert.NotContains(t, msg, "sk-123")
	assert.Equal(t, "Internal Server Error", PublicMessage(errors.New("db password wrong")))
	assert.Contains(t, PublicMessage(ragErrors.Validation("op", "k must be positive")), "k must be positive")
}
