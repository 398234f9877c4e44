package ragErrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", Validation("retrieve", "k must be positive, got %d", 0))

	assert.Equal(t, KindValidation, KindOf(err))
	assert.True(t, Is(err, KindValidation))
	assert.False(t, Is(err, KindNotFound))
	assert.Contains(t, err.Error(), "k must be positive, got 0")
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient upstream", Upstream("generate", errors.New("503"), true), true},
		{"permanent upstream", Upstream("generate", errors.New("400"), false), false},
		{"validation", Validation("query", "empty"), false},
		{"plain error", errors.New("boom"), false},
		{"cancelled", Upstream("generate", context.Canceled, true), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIndexConsistencyListsChunks(t *testing.T) {
	err := IndexConsistency("upsert", []string{"a", "b"}, errors.New("rate limited"))

	assert.Equal(t, []string{"a", "b"}, FailedChunks(err))
	assert.Contains(t, err.Error(), "2 chunks failed: a,b")
	assert.ErrorContains(t, err, "rate limited")
}
