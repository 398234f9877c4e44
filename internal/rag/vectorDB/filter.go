package vectorDB

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
)

const (
	FieldSourceID   = "source_id"
	FieldPage       = "page"
	FieldTitle      = "title"
	FieldChunkIndex = "chunk_index"
)

// Filter is an exact match on chunk metadata; nil fields match anything.
type Filter struct {
	SourceID   *string
	Page       *int
	Title      *string
	ChunkIndex *int
}

func (f Filter) IsEmpty() bool {
	return f.SourceID == nil && f.Page == nil && f.Title == nil && f.ChunkIndex == nil
}

func (f Filter) Matches(m commonModels.ChunkMetadata) bool {
	if f.SourceID != nil && *f.SourceID != m.SourceID {
		return false
	}
	if f.Page != nil && *f.Page != m.Page {
		return false
	}
	if f.Title != nil && *f.Title != m.Title {
		return false
	}
	if f.ChunkIndex != nil && *f.ChunkIndex != m.ChunkIndex {
		return false
	}
	return true
}

// ParseFilter converts a decoded JSON object into a Filter.
func ParseFilter(raw map[string]any) (Filter, error) {
	var f Filter
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		switch key {
		case FieldSourceID, FieldTitle:
			s, ok := value.(string)
			if !ok {
				return Filter{}, ragErrors.Validation("filter", "%s must be a string", key)
			}
			if key == FieldSourceID {
				f.SourceID = &s
			} else {
				f.Title = &s
			}
		case FieldPage, FieldChunkIndex:
			n, ok := asInt(value)
			if !ok {
				return Filter{}, ragErrors.Validation("filter", "%s must be an integer", key)
			}
			if key == FieldPage {
				f.Page = &n
			} else {
				f.ChunkIndex = &n
			}
		default:
			return Filter{}, ragErrors.Validation("filter", "unsupported filter field %q", key)
		}
	}
	return f, nil
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}
