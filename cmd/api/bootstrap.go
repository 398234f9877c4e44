package main

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/conversation"
	"github.com/akolanti/PdfRAG/internal/customHttpClient"
	"github.com/akolanti/PdfRAG/internal/data/redisStore"
	"github.com/akolanti/PdfRAG/internal/data/store"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag"
	"github.com/akolanti/PdfRAG/internal/rag/embedding"
	"github.com/akolanti/PdfRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/PdfRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/PdfRAG/internal/rag/index"
	"github.com/akolanti/PdfRAG/internal/rag/ingest"
	"github.com/akolanti/PdfRAG/internal/rag/llm"
	"github.com/akolanti/PdfRAG/internal/rag/llm/anthropicLLM"
	"github.com/akolanti/PdfRAG/internal/rag/llm/gemini"
	"github.com/akolanti/PdfRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/PdfRAG/internal/rag/retry"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB/sqliteDB"
)

// core is everything a command needs from the RAG stack.
type core struct {
	cfg           config.Config
	embedder      embedding.Embedder
	index         *index.Index
	conversations conversation.Service
	rag           rag.Service
	closers       []io.Closer
}

type coreOptions struct {
	// generation is skipped by commands that never answer questions
	generation bool
	// hydrate loads the stored collection into memory
	hydrate bool
}

func buildCore(ctx context.Context, cfg config.Config, opts coreOptions) (*core, error) {
	c := &core{cfg: cfg}
	httpClient := customHttpClient.New(cfg.HTTPClient)

	emb, err := newEmbedder(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}
	c.embedder = embedding.WithRetry(emb, retry.FromConfig(cfg.Retry))

	var provider llm.Provider
	if opts.generation {
		if provider, err = newLLM(ctx, cfg, httpClient); err != nil {
			return nil, err
		}
	}

	storage, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}
	if storage != nil {
		c.closers = append(c.closers, storage)
	}
	c.index = index.New(c.embedder, storage, cfg)
	if opts.hydrate {
		if err := c.index.Hydrate(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}

	sessions, closer := newSessionStore(ctx, cfg)
	if closer != nil {
		c.closers = append(c.closers, closer)
	}
	c.conversations = conversation.NewService(sessions)

	c.rag = rag.NewService(rag.Dependencies{
		Index:         c.index,
		Embedder:      c.embedder,
		LLM:           provider,
		Conversations: c.conversations,
		Extractor:     ingest.NewExtractor(cfg.Ingest),
		Config:        cfg,
	})
	return c, nil
}

func (c *core) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func newEmbedder(ctx context.Context, cfg config.Config, client *http.Client) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return openaiEmbedding.New(cfg.Embedding, cfg.Keys.OpenAI, client)
	case "google":
		return googleEmbedding.New(ctx, cfg.Embedding, cfg.Keys.Google, client)
	}
	return nil, ragErrors.Configuration("bootstrap", "unknown embedding provider %q", cfg.Embedding.Provider)
}

func newLLM(ctx context.Context, cfg config.Config, client *http.Client) (llm.Provider, error) {
	switch cfg.Generation.Provider {
	case "openai":
		return openaiLLM.New(cfg.Generation, cfg.Keys.OpenAI, client)
	case "anthropic":
		return anthropicLLM.New(cfg.Generation, cfg.Keys.Anthropic, client)
	case "gemini":
		return gemini.New(ctx, cfg.Generation, cfg.Keys.Google, client)
	}
	return nil, ragErrors.Configuration("bootstrap", "unknown generation provider %q", cfg.Generation.Provider)
}

// newStorage returns nil for the memory backend.
func newStorage(cfg config.Config) (vectorDB.Storage, error) {
	switch cfg.VectorStore.Backend {
	case "qdrant":
		return qdrantDB.New(cfg.VectorStore.Qdrant)
	case "sqlite":
		return sqliteDB.New(cfg.VectorStore.SQLitePath)
	}
	return nil, nil
}

// newSessionStore falls back to memory when redis is unreachable, the same way
// the job store does.
func newSessionStore(ctx context.Context, cfg config.Config) (chatModel.SessionStore, io.Closer) {
	if cfg.Chat.SessionBackend != "redis" {
		return store.InitSessionStore(), nil
	}
	rs, err := redisStore.NewStore(ctx, cfg.Redis, config.RedisSessionStoreDB)
	if err != nil {
		logger.Error("Redis session store is offline, keeping sessions in memory", "error", err)
		return store.InitSessionStore(), nil
	}
	return store.NewRedisSessionStore(rs, cfg.Chat.SessionStoreTTL.Std()), rs
}

func newJobStore(ctx context.Context, cfg config.Config) (jobModel.JobStore, io.Closer) {
	if !cfg.Redis.Enabled {
		return store.NewInMemoryJobStore(cfg.Redis.JobTTL.Std()), nil
	}
	rs, err := redisStore.NewStore(ctx, cfg.Redis, config.RedisJobStoreDB)
	if err != nil {
		logger.Error("Redis job store is offline, keeping jobs in memory", "error", err)
		return store.NewInMemoryJobStore(cfg.Redis.JobTTL.Std()), nil
	}
	return store.NewRedisJobStore(rs, cfg.Redis.JobTTL.Std()), rs
}
