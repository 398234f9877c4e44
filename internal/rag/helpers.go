package rag

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/PdfRAG/internal/conversation"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/metrics"
	"github.com/akolanti/PdfRAG/internal/rag/citation"
	"github.com/akolanti/PdfRAG/internal/rag/llm"
	"github.com/akolanti/PdfRAG/internal/rag/retry"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

type Step string

const (
	StepRetrieve Step = "RETRIEVE"
	StepAugment  Step = "AUGMENT"
	StepGenerate Step = "GENERATE"
	StepRecord   Step = "RECORD"
	StepRespond  Step = "RESPOND"
	StepFail     Step = "FAIL"
)

const (
	modeQuery = "query"
	modeChat  = "chat"
)

// run tracks one pass through the pipeline.
type run struct {
	mode string
	step Step
	log  *logger_i.Logger
}

func (s *service) newRun(ctx context.Context, mode string) *run {
	return &run{mode: mode, log: s.logger.FromContext(ctx).With("mode", mode)}
}

func (r *run) enter(step Step) {
	r.step = step
	r.log.Debug("pipeline", "step", step)
}

func (r *run) fail(err error) error {
	r.log.Error("pipeline failed", "step", r.step, "error", err)
	r.step = StepFail
	metrics.CapturePipelineOutcome(r.mode, string(StepFail))
	return err
}

func (r *run) respond() {
	r.enter(StepRespond)
	metrics.CapturePipelineOutcome(r.mode, string(StepRespond))
}

func returnOutput(job jobModel.Job) jobModel.Job {
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	job.EndTime = time.Now()
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessJob", "Current Status", job.CurrentStep)
	return job
}

func resolveK(k *int, fallback int) int {
	if k == nil {
		return fallback
	}
	return *k
}

func (s *service) defaultThreshold() *float32 {
	if s.cfg.Retrieval.ScoreThreshold <= 0 {
		return nil
	}
	t := s.cfg.Retrieval.ScoreThreshold
	return &t
}

func (s *service) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	r := s.newRun(ctx, modeQuery)
	filter, err := vectorDB.ParseFilter(req.Filter)
	if err != nil {
		return QueryResponse{}, r.fail(err)
	}

	answer, retrieved, err := s.answer(ctx, r, req.Question, resolveK(req.K, s.cfg.Retrieval.DefaultK), filter, nil)
	if err != nil {
		return QueryResponse{}, r.fail(err)
	}

	sources := []commonModels.Citation{}
	if req.IncludeSources == nil || *req.IncludeSources {
		sources = citation.Build(retrieved, s.cfg.Retrieval.ExcerptLength)
	}
	r.respond()
	return QueryResponse{Answer: answer, Sources: sources, NumSources: len(retrieved)}, nil
}

func (s *service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	filter, err := vectorDB.ParseFilter(req.Filter)
	if err != nil {
		return SearchResponse{}, err
	}
	threshold := req.ScoreThreshold
	if threshold == nil {
		threshold = s.defaultThreshold()
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("search", time.Since(start)) }()

	chunks, err := s.retriever.Retrieve(ctx, req.Query, resolveK(req.K, s.cfg.Retrieval.SearchDefaultK), filter, threshold)
	if err != nil {
		return SearchResponse{}, err
	}
	return SearchResponse{Chunks: chunks}, nil
}

func (s *service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	const op = "rag.chat"
	r := s.newRun(ctx, modeChat)
	r.log = r.log.With("sessionId", req.SessionID)

	if strings.TrimSpace(req.SessionID) == "" {
		return ChatResponse{}, r.fail(ragErrors.Validation(op, "session_id is required"))
	}
	if strings.TrimSpace(req.Message) == "" {
		return ChatResponse{}, r.fail(ragErrors.Validation(op, "message is empty"))
	}

	history, err := s.conversations.ContextWindow(ctx, req.SessionID, s.cfg.Chat.MaxHistory)
	if err != nil {
		return ChatResponse{}, r.fail(err)
	}

	answer, retrieved, err := s.answer(ctx, r, req.Message, resolveK(req.K, s.cfg.Retrieval.DefaultK), vectorDB.Filter{}, history)
	if err != nil {
		return ChatResponse{}, r.fail(err)
	}

	r.enter(StepRecord)
	if ctx.Err() != nil {
		return ChatResponse{}, r.fail(ragErrors.Upstream(op, ctx.Err(), false))
	}
	citations := citation.Build(retrieved, s.cfg.Retrieval.ExcerptLength)
	_, err = s.conversations.Record(ctx, req.SessionID,
		conversation.NewTurn{Role: chatModel.RoleUser, Content: req.Message},
		conversation.NewTurn{Role: chatModel.RoleAssistant, Content: answer, Citations: citations},
	)
	if err != nil {
		return ChatResponse{}, r.fail(err)
	}

	r.respond()
	return ChatResponse{
		SessionID:  req.SessionID,
		Response:   answer,
		Sources:    citations,
		NumSources: len(retrieved),
	}, nil
}

// answer runs RETRIEVE, AUGMENT and GENERATE. Nothing it does mutates state.
func (s *service) answer(ctx context.Context, r *run, question string, k int, filter vectorDB.Filter, history []chatModel.Turn) (string, []commonModels.RetrievedChunk, error) {
	r.enter(StepRetrieve)
	retrieved, err := s.executeRetrieveStep(ctx, question, k, filter)
	if err != nil {
		return "", nil, err
	}
	if len(retrieved) == 0 && s.cfg.Retrieval.FailClosed {
		return "", nil, ragErrors.NotFound("rag."+r.mode, "no indexed passages match the question")
	}

	r.enter(StepAugment)
	prompt := s.buildPrompt(question, retrieved, history)

	r.enter(StepGenerate)
	answer, err := s.executeGenerateStep(ctx, prompt)
	if err != nil {
		return "", nil, err
	}
	return answer, retrieved, nil
}

func (s *service) executeRetrieveStep(ctx context.Context, question string, k int, filter vectorDB.Filter) ([]commonModels.RetrievedChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieve", time.Since(start)) }()

	return s.retriever.Retrieve(ctx, question, k, filter, s.defaultThreshold())
}

func (s *service) buildPrompt(question string, retrieved []commonModels.RetrievedChunk, history []chatModel.Turn) llm.Prompt {
	passages := make([]llm.Passage, len(retrieved))
	for i, rc := range retrieved {
		passages[i] = llm.Passage{
			SourceID: rc.Chunk.Metadata.SourceID,
			Title:    rc.Chunk.Metadata.Title,
			Page:     rc.Chunk.Metadata.Page,
			Text:     rc.Chunk.Text,
		}
	}
	return llm.Prompt{
		System:   s.cfg.Generation.SystemPrompt,
		Question: question,
		Passages: passages,
		History:  history,
	}
}

func (s *service) executeGenerateStep(ctx context.Context, prompt llm.Prompt) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return retry.Do(ctx, s.retryPolicy, "generate", func(ctx context.Context) (string, error) {
		return s.llmProvider.Generate(ctx, prompt)
	})
}
