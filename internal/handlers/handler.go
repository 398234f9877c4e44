package handlers

import (
	"time"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/job"
	"github.com/akolanti/PdfRAG/internal/rag"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

type Handler struct {
	rag            rag.Service
	jobs           *job.Service
	ingest         config.IngestConfig
	requestTimeout time.Duration
	logger         *logger_i.Logger
}

func NewHandler(ragService rag.Service, jobs *job.Service, cfg config.Config) *Handler {
	return &Handler{
		rag:            ragService,
		jobs:           jobs,
		ingest:         cfg.Ingest,
		requestTimeout: cfg.Server.RequestTimeout.Std(),
		logger:         logger_i.NewLogger("RequestHandler"),
	}
}
