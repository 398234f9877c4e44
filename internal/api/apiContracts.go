package api

import (
	"time"

	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"4b8f0c1e-6d7a-4a43-9d7b-0f4f2c8e9a11"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"422"`
	Message string `json:"message" example:"handbook.pdf contains no extractable text"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type IngestResult struct {
	SourceID       string `json:"source_id" example:"handbook.pdf"`
	Title          string `json:"title,omitempty" example:"Employee Handbook"`
	ChunksIndexed  int    `json:"chunks_indexed"`
	ChunksEmbedded int    `json:"chunks_embedded"`
	ChunksReused   int    `json:"chunks_reused"`
	ChunksRemoved  int    `json:"chunks_removed"`
}

type Result struct {
	Status       string        `json:"status" example:"COMPLETE"`
	Step         string        `json:"step,omitempty" example:"IngestIndexing"`
	IngestResult *IngestResult `json:"ingest_result,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"k must be positive, got 0"`
	Kind    string `json:"kind" example:"validation"`
	TraceID string `json:"trace_id,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status" example:"ok"`
	TotalChunks int    `json:"total_chunks"`
}

type QueryResponse struct {
	Answer     string                  `json:"answer"`
	Sources    []commonModels.Citation `json:"sources"`
	NumSources int                     `json:"num_sources"`
}

type SearchResponse struct {
	Chunks []commonModels.RetrievedChunk `json:"chunks"`
}

type ChatResponse struct {
	SessionID  string                  `json:"session_id"`
	Response   string                  `json:"response"`
	Sources    []commonModels.Citation `json:"sources"`
	NumSources int                     `json:"num_sources"`
}

type SessionsResponse struct {
	Sessions []chatModel.SessionInfo `json:"sessions"`
}

type RemoveSourceResponse struct {
	SourceID      string `json:"source_id"`
	ChunksRemoved int    `json:"chunks_removed"`
}

// requests---------------------

type QueryRequest struct {
	Question       string         `json:"question" validate:"required" example:"What is the vacation policy?"`
	K              *int           `json:"k,omitempty" example:"6"`
	IncludeSources *bool          `json:"include_sources,omitempty" example:"true"`
	Filter         map[string]any `json:"filter,omitempty"`
}

type SearchRequest struct {
	Query          string         `json:"query" validate:"required" example:"vacation policy"`
	K              *int           `json:"k,omitempty" example:"5"`
	Filter         map[string]any `json:"filter,omitempty"`
	ScoreThreshold *float32       `json:"score_threshold,omitempty" example:"0.3"`
}

type ChatRequest struct {
	SessionID string `json:"session_id" validate:"required" example:"support-42"`
	Message   string `json:"message" validate:"required" example:"And how many days carry over?"`
	K         *int   `json:"k,omitempty"`
}
