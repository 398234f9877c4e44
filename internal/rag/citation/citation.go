package citation

import (
	"unicode/utf8"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
)

const ellipsis = "..."

// Build returns one citation per retrieved chunk, in the same order.
func Build(retrieved []commonModels.RetrievedChunk, excerptLength int) []commonModels.Citation {
	citations := make([]commonModels.Citation, 0, len(retrieved))
	for _, r := range retrieved {
		citations = append(citations, commonModels.Citation{
			SourceID: r.Chunk.Metadata.SourceID,
			Title:    r.Chunk.Metadata.Title,
			Page:     r.Chunk.Metadata.Page,
			ChunkID:  r.Chunk.ChunkID,
			Excerpt:  Excerpt(r.Chunk.Text, excerptLength),
			Score:    r.Score,
		})
	}
	return citations
}

// Excerpt keeps the first n runes of text, marking truncation with an ellipsis.
func Excerpt(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i] + ellipsis
		}
		count++
	}
	return text
}
