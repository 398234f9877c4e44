package rag

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/akolanti/PdfRAG/internal/adapter/utils"
	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/conversation"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/metrics"
	"github.com/akolanti/PdfRAG/internal/rag/chunker"
	"github.com/akolanti/PdfRAG/internal/rag/embedding"
	"github.com/akolanti/PdfRAG/internal/rag/index"
	"github.com/akolanti/PdfRAG/internal/rag/ingest"
	"github.com/akolanti/PdfRAG/internal/rag/llm"
	"github.com/akolanti/PdfRAG/internal/rag/retriever"
	"github.com/akolanti/PdfRAG/internal/rag/retry"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

// Service is everything the handlers, the worker pool, the MCP tools and the CLI
// can ask of the RAG core. The collaborators behind it stay private.
type Service interface {
	Ingest(ctx context.Context, doc commonModels.Document) (index.UpsertResult, error)
	Reindex(ctx context.Context, doc commonModels.Document) (index.UpsertResult, error)
	RemoveSource(ctx context.Context, sourceID string) (int, error)
	IngestFile(ctx context.Context, path, sourceID, title string) (index.UpsertResult, error)

	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	GetHistory(ctx context.Context, sessionID string) (chatModel.Session, error)
	ClearHistory(ctx context.Context, sessionID string) error
	Export(ctx context.Context, sessionID string) ([]byte, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Sessions(ctx context.Context) ([]chatModel.SessionInfo, error)

	Stats(ctx context.Context) commonModels.IndexStats
	ViewSource(ctx context.Context, sourceID string) (SourceView, error)

	// ProcessJob runs an upload ingestion job for the worker pool.
	ProcessJob(ctx context.Context, job jobModel.Job) jobModel.Job
}

type Dependencies struct {
	Index         *index.Index
	Embedder      embedding.Embedder
	LLM           llm.Provider
	Conversations conversation.Service
	Extractor     ingest.Extractor
	Config        config.Config
}

type service struct {
	index         *index.Index
	retriever     *retriever.Retriever
	llmProvider   llm.Provider
	conversations conversation.Service
	extractor     ingest.Extractor
	cfg           config.Config
	retryPolicy   retry.Policy
	logger        *logger_i.Logger
}

func NewService(deps Dependencies) Service {
	return &service{
		index:         deps.Index,
		retriever:     retriever.New(deps.Embedder, deps.Index, deps.Config.Retrieval.MaxK),
		llmProvider:   deps.LLM,
		conversations: deps.Conversations,
		extractor:     deps.Extractor,
		cfg:           deps.Config,
		retryPolicy:   retry.FromConfig(deps.Config.Retry),
		logger:        logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) Ingest(ctx context.Context, doc commonModels.Document) (index.UpsertResult, error) {
	log := s.logger.FromContext(ctx).With("sourceId", doc.SourceID)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	chunks, err := chunker.Build(doc, s.cfg.Chunking.TargetSize, s.cfg.Chunking.Overlap)
	if err != nil {
		return index.UpsertResult{}, err
	}
	if len(chunks) == 0 {
		return index.UpsertResult{}, ragErrors.Content("rag.ingest", nil, "document %s has no text to index", doc.SourceID)
	}
	result, err := s.index.Upsert(ctx, doc.SourceID, chunks)
	if err != nil {
		log.Error("ingestion failed", "error", err)
		return index.UpsertResult{}, err
	}
	log.Debug("document ingested", "title", doc.Title, "pages", len(doc.Pages))
	return result, nil
}

func (s *service) Reindex(ctx context.Context, doc commonModels.Document) (index.UpsertResult, error) {
	if !s.index.Has(doc.SourceID) {
		return index.UpsertResult{}, ragErrors.NotFound("rag.reindex", "source %s is not indexed", doc.SourceID)
	}
	return s.Ingest(ctx, doc)
}

func (s *service) RemoveSource(ctx context.Context, sourceID string) (int, error) {
	if strings.TrimSpace(sourceID) == "" {
		return 0, ragErrors.Validation("rag.removeSource", "source_id is required")
	}
	removed, err := s.index.Delete(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	s.logger.FromContext(ctx).Info("source removed", "sourceId", sourceID, "chunks", removed)
	return removed, nil
}

func (s *service) IngestFile(ctx context.Context, path, sourceID, title string) (index.UpsertResult, error) {
	doc, err := s.extractor.Extract(ctx, path, sourceID, title)
	if err != nil {
		return index.UpsertResult{}, err
	}
	return s.Ingest(ctx, doc)
}

func (s *service) GetHistory(ctx context.Context, sessionID string) (chatModel.Session, error) {
	return s.conversations.History(ctx, sessionID)
}

func (s *service) ClearHistory(ctx context.Context, sessionID string) error {
	return s.conversations.Clear(ctx, sessionID)
}

func (s *service) Export(ctx context.Context, sessionID string) ([]byte, error) {
	return s.conversations.Export(ctx, sessionID)
}

func (s *service) DeleteSession(ctx context.Context, sessionID string) error {
	return s.conversations.Delete(ctx, sessionID)
}

func (s *service) Sessions(ctx context.Context) ([]chatModel.SessionInfo, error) {
	return s.conversations.Sessions(ctx)
}

func (s *service) Stats(ctx context.Context) commonModels.IndexStats {
	return s.index.Stats()
}

func (s *service) ViewSource(ctx context.Context, sourceID string) (SourceView, error) {
	chunks, ok := s.index.Source(sourceID)
	if !ok {
		return SourceView{}, ragErrors.NotFound("rag.viewSource", "source %s is not indexed", sourceID)
	}
	view := SourceView{SourceID: sourceID, TotalChunks: len(chunks), Pages: []PageChunks{}}
	for _, c := range chunks {
		view.Title = c.Metadata.Title
		last := len(view.Pages) - 1
		if last < 0 || view.Pages[last].Page != c.Metadata.Page {
			view.Pages = append(view.Pages, PageChunks{Page: c.Metadata.Page})
			last++
		}
		view.Pages[last].Chunks = append(view.Pages[last].Chunks, c)
	}
	return view, nil
}

func (s *service) ProcessJob(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := s.logger.FromContext(ctx).With("jobId", job.Id, "sourceId", job.JobPayload.SourceID)
	start := time.Now()
	defer func() { metrics.CaptureJobMetrics(string(job.JobType), time.Since(start)) }()
	defer s.removeUpload(log, job.JobPayload.FilePath)

	job = logOutput(job, jobModel.IngestExtracting, log)
	doc, err := s.extractor.Extract(ctx, job.JobPayload.FilePath, job.JobPayload.SourceID, job.JobPayload.Title)
	if err != nil {
		return s.jobError(ctx, job, err, "EXTRACTION_FAILURE")
	}

	job = logOutput(job, jobModel.IngestIndexing, log)
	var result index.UpsertResult
	if job.JobType == jobModel.JobTypeReindex {
		result, err = s.Reindex(ctx, doc)
	} else {
		result, err = s.Ingest(ctx, doc)
	}
	if err != nil {
		return s.jobError(ctx, job, err, "INDEXING_FAILURE")
	}

	job.JobPayload.Title = doc.Title
	job.JobPayload.ChunksIndexed = result.Chunks
	job.JobPayload.ChunksEmbedded = result.Embedded
	job.JobPayload.ChunksReused = result.Reused
	job.JobPayload.ChunksRemoved = result.Removed
	return returnOutput(job)
}

// removeUpload deletes the uploaded copy whatever the outcome; clients retry
// by uploading again.
func (s *service) removeUpload(log *logger_i.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Error("Error removing file", "path", path, "error", err)
	}
}

func (s *service) jobError(ctx context.Context, job jobModel.Job, err error, message string) jobModel.Job {
	s.logger.FromContext(ctx).Error(message, "jobId", job.Id, "error", err)

	job.Error = jobModel.JobError{
		Code:    utils.StatusFor(err),
		Message: utils.PublicMessage(err),
		Retry:   ragErrors.IsTransient(err),
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	job.EndTime = time.Now()
	return job
}
