package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akolanti/PdfRAG/internal/handlers"
	"github.com/akolanti/PdfRAG/internal/job"
	"github.com/akolanti/PdfRAG/internal/mcpServer"
	"github.com/akolanti/PdfRAG/internal/middleware"
	"github.com/akolanti/PdfRAG/internal/server"
	"github.com/akolanti/PdfRAG/internal/watcher"
	"github.com/akolanti/PdfRAG/internal/worker"
)

func serveCmd() *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the MCP endpoint and the ingestion workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.Server.ListenAddr = listenAddr
			}

			serviceContext, closeExternalServices := context.WithCancel(context.Background())
			defer closeExternalServices()

			app, err := buildCore(serviceContext, cfg, coreOptions{generation: true, hydrate: true})
			if err != nil {
				logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
				return err
			}
			defer app.Close()

			jobStore, jobStoreCloser := newJobStore(serviceContext, cfg)
			if jobStoreCloser != nil {
				defer closeQuietly(jobStoreCloser)
			}
			jobService := job.InitJobService(jobStore, cfg.Jobs)

			logger.Info("Starting worker pool")
			pool := worker.NewPool(jobService, app.rag, cfg.Jobs)
			pool.Start()

			go app.conversations.RunReaper(serviceContext, cfg.Chat.ReaperInterval.Std(), cfg.Chat.SessionIdleTTL.Std())

			if cfg.Watch.Dir != "" {
				w := watcher.New(cfg.Watch, app.rag)
				go func() {
					if err := w.Run(serviceContext); err != nil {
						logger.Error("directory watcher stopped", "dir", cfg.Watch.Dir, "error", err)
					}
				}()
			}

			mcp, err := mcpServer.New(app.rag)
			if err != nil {
				return err
			}
			router := server.NewRouter(
				handlers.NewHandler(app.rag, jobService, cfg),
				middleware.New(cfg.Auth, cfg.RateLimit),
				mcp.Handler(),
			)
			srv := server.New(cfg.Server, router)

			gracefulShutdown := make(chan os.Signal, 1)
			signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
			stopExecution := make(chan bool, 1)

			go srv.ShutDownHandler(server.ShutdownParams{
				GracefulShutdown: gracefulShutdown,
				StopExecution:    stopExecution,
				StopWorkers:      pool.Stop,
				CloseServices:    closeExternalServices,
			})
			go func() {
				if err := srv.Start(); err != nil {
					gracefulShutdown <- syscall.SIGTERM
				}
			}()

			<-stopExecution
			logger.Info("Server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides server.listen_addr")
	return cmd
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close failed", "error", err)
	}
}
