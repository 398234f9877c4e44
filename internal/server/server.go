package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/akolanti/PdfRAG/internal/adapter/utils"
	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/handlers"
	"github.com/akolanti/PdfRAG/internal/middleware"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     *logger_i.Logger
}

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	// StopWorkers blocks until in-flight jobs are done
	StopWorkers   func()
	CloseServices context.CancelFunc
}

// NewRouter mounts every route. /health, /metrics and /swagger stay outside the middleware.
func NewRouter(h *handlers.Handler, mw *middleware.Middleware, mcpHandler http.Handler) *chi.Mux {
	r := utils.NewRouter()
	r.Get("/health", h.Health)

	r.Get("/stats", mw.Wrap(h.Stats))
	r.Post("/query", mw.Wrap(h.Query))
	r.Post("/search", mw.Wrap(h.Search))

	r.Post("/chat", mw.Wrap(h.Chat))
	r.Get("/chat/{id}/history", mw.Wrap(h.History))
	r.Get("/chat/{id}/export", mw.Wrap(h.ExportHistory))
	r.Delete("/chat/{id}", mw.Wrap(h.ClearHistory))
	r.Get("/sessions", mw.Wrap(h.ListSessions))
	r.Delete("/sessions/{id}", mw.Wrap(h.DeleteSession))

	r.Post("/documents/upload", mw.Wrap(h.UploadDocument))
	r.Get("/documents/{id}/view", mw.Wrap(h.ViewDocument))
	r.Delete("/documents/{id}", mw.Wrap(h.RemoveDocument))
	r.Get("/status/{id}", mw.Wrap(h.GetStatus))

	if mcpHandler != nil {
		r.Handle("/mcp", mw.Handler(mcpHandler))
		r.Handle("/mcp/*", mw.Handler(mcpHandler))
	}
	return r
}

func New(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout.Std(),
			WriteTimeout: cfg.WriteTimeout.Std(),
			IdleTimeout:  cfg.IdleTimeout.Std(),
		},
		cfg:    cfg,
		logger: logger_i.NewLogger("Server"),
	}
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Server is listening at", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server crashed", "error", err.Error(), "addr", s.httpServer.Addr)
		return err
	}
	return nil
}

func (s *Server) ShutDownHandler(params ShutdownParams) {
	state := <-params.GracefulShutdown
	s.logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Std())
	defer cancel()

	done := make(chan struct{})

	go func() {
		s.httpServer.SetKeepAlivesEnabled(false)
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("Could not shutdown gracefully", "error", err)
		}

		//close workers
		if params.StopWorkers != nil {
			params.StopWorkers()
		}
		params.CloseServices()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Gracefully shut down")
		close(params.StopExecution)
	case <-ctx.Done():
		s.logger.Error("Force shut down")
		os.Exit(1)
	}
}
