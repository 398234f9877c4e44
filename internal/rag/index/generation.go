package index

import (
	"sort"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB"
)

type stored struct {
	entry commonModels.IndexEntry
	norm  float64
}

// generation is an immutable snapshot of the index. Writers build a new one
// and swap it in; readers keep whichever snapshot they loaded.
type generation struct {
	version  uint64
	entries  map[string]*stored
	bySource map[string][]string
}

func emptyGeneration() *generation {
	return &generation{
		entries:  map[string]*stored{},
		bySource: map[string][]string{},
	}
}

func buildGeneration(version uint64, entries []commonModels.IndexEntry) *generation {
	g := emptyGeneration()
	g.version = version
	bySource := map[string][]commonModels.IndexEntry{}
	for _, e := range entries {
		bySource[e.Metadata.SourceID] = append(bySource[e.Metadata.SourceID], e)
	}
	for source, list := range bySource {
		g.putSource(source, list)
	}
	return g
}

// withSource returns a copy with every entry of sourceID replaced by entries.
func (g *generation) withSource(sourceID string, entries []commonModels.IndexEntry) *generation {
	next := &generation{
		version:  g.version + 1,
		entries:  make(map[string]*stored, len(g.entries)+len(entries)),
		bySource: make(map[string][]string, len(g.bySource)+1),
	}
	for source, ids := range g.bySource {
		if source == sourceID {
			continue
		}
		next.bySource[source] = ids
		for _, id := range ids {
			next.entries[id] = g.entries[id]
		}
	}
	if len(entries) > 0 {
		next.putSource(sourceID, entries)
	}
	return next
}

func (g *generation) putSource(sourceID string, entries []commonModels.IndexEntry) {
	sorted := make([]commonModels.IndexEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metadata.ChunkIndex < sorted[j].Metadata.ChunkIndex
	})
	ids := make([]string, len(sorted))
	for i, e := range sorted {
		ids[i] = e.ChunkID
		g.entries[e.ChunkID] = &stored{entry: e, norm: vectorDB.Norm(e.Vector)}
	}
	g.bySource[sourceID] = ids
}

func (g *generation) sourceIDs() []string {
	out := make([]string, 0, len(g.bySource))
	for s := range g.bySource {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (g *generation) search(vector []float32, k int, filter vectorDB.Filter) []commonModels.ScoredEntry {
	qNorm := vectorDB.Norm(vector)
	matches := make([]commonModels.ScoredEntry, 0, min(len(g.entries), k))
	for _, s := range g.entries {
		if !filter.Matches(s.entry.Metadata) {
			continue
		}
		matches = append(matches, commonModels.ScoredEntry{
			Entry: s.entry,
			Score: vectorDB.Cosine(vector, qNorm, s.entry.Vector, s.norm),
		})
	}
	return vectorDB.Rank(matches, k)
}
