package vectorDB

import (
	"cmp"
	"math"
	"slices"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
)

func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine takes precomputed norms; a zero norm scores 0.
func Cosine(a []float32, normA float64, b []float32, normB float64) float32 {
	if normA == 0 || normB == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (normA * normB))
}

// Rank orders matches by score descending, then chunk_index, source and id
// ascending, and keeps at most k.
func Rank(matches []commonModels.ScoredEntry, k int) []commonModels.ScoredEntry {
	slices.SortFunc(matches, func(a, b commonModels.ScoredEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Entry.Metadata.ChunkIndex, b.Entry.Metadata.ChunkIndex); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Entry.Metadata.SourceID, b.Entry.Metadata.SourceID); c != 0 {
			return c
		}
		return cmp.Compare(a.Entry.ChunkID, b.Entry.ChunkID)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
