package rag

import "github.com/akolanti/PdfRAG/internal/domain/commonModels"

// QueryRequest asks a single question. Nil K and IncludeSources take the
// configured defaults.
type QueryRequest struct {
	Question       string
	K              *int
	IncludeSources *bool
	Filter         map[string]any
}

type QueryResponse struct {
	Answer     string                  `json:"answer"`
	Sources    []commonModels.Citation `json:"sources"`
	NumSources int                     `json:"num_sources"`
}

type SearchRequest struct {
	Query          string
	K              *int
	Filter         map[string]any
	ScoreThreshold *float32
}

type SearchResponse struct {
	Chunks []commonModels.RetrievedChunk `json:"chunks"`
}

type ChatRequest struct {
	SessionID string
	Message   string
	K         *int
}

type ChatResponse struct {
	SessionID  string                  `json:"session_id"`
	Response   string                  `json:"response"`
	Sources    []commonModels.Citation `json:"sources"`
	NumSources int                     `json:"num_sources"`
}

type PageChunks struct {
	Page   int                  `json:"page"`
	Chunks []commonModels.Chunk `json:"chunks"`
}

// SourceView is the indexed content of one source grouped by page.
type SourceView struct {
	SourceID    string       `json:"source_id"`
	Title       string       `json:"title"`
	TotalChunks int          `json:"total_chunks"`
	Pages       []PageChunks `json:"pages"`
}
