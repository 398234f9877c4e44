package citation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
)

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"short text untouched", "hello", 300, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello..."},
		{"multibyte safe", "çãõéü", 3, "çãõ..."},
		{"non positive keeps all", "hello", 0, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Excerpt(tt.text, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestBuild_PreservesOrderAndMetadata(t *testing.T) {
	retrieved := []commonModels.RetrievedChunk{
		{Chunk: commonModels.Chunk{ChunkID: "c2", Text: strings.Repeat("a", 400), Metadata: commonModels.ChunkMetadata{SourceID: "b.pdf", Page: 4, Title: "B"}}, Score: 0.9},
		{Chunk: commonModels.Chunk{ChunkID: "c1", Text: "short", Metadata: commonModels.ChunkMetadata{SourceID: "a.pdf", Page: 1, Title: "A"}}, Score: 0.5},
	}

	got := Build(retrieved, 300)

	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].ChunkID)
	assert.Equal(t, "b.pdf", got[0].SourceID)
	assert.Equal(t, 4, got[0].Page)
	assert.Equal(t, "B", got[0].Title)
	assert.Equal(t, 303, len(got[0].Excerpt))
	assert.Equal(t, float32(0.9), got[0].Score)
	assert.Equal(t, "short", got[1].Excerpt)
	assert.Empty(t, Build(nil, 300))
}
