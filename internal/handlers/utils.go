package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akolanti/PdfRAG/internal/adapter"
	"github.com/akolanti/PdfRAG/internal/api"
	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

const maxJSONBody = 1 << 20

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are gone, nothing left but logging
		logRH.Error("Error encoding response", "error", err)
	}
}

// WriteErrorResponse writes a plain error body; the middleware uses it before a
// handler ever runs.
func WriteErrorResponse(w http.ResponseWriter, httpCode int, traceID string, message string) {
	writeJsonResponse(w, httpCode, api.ErrorResponse{Error: message, Kind: http.StatusText(httpCode), TraceID: traceID})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := adapter.ToErrorResponse(err, traceID(r.Context()))
	log := h.logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		log.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJsonResponse(w, status, body)
}

func traceID(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

// decodeJSON keeps filter numbers as json.Number so integers stay exact.
func decodeJSON(r *http.Request, target any) error {
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the request body", "error", err)
		}
	}(r.Body)

	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return ragErrors.Validation("handlers.decode", "request body is empty")
		}
		return ragErrors.Validation("handlers.decode", "malformed JSON body: %v", err)
	}
	return nil
}

// withTimeout bounds a request that reaches an upstream provider.
func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	if h.requestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.requestTimeout)
}

func (h *Handler) targetDirectory() (string, error) {
	targetDir := h.ingest.UploadDir
	if !filepath.IsAbs(targetDir) {
		root, err := os.Getwd()
		if err != nil {
			return "", err
		}
		targetDir = filepath.Join(root, targetDir)
	}
	if err := os.MkdirAll(targetDir, 0o750); err != nil {
		return "", err
	}
	return targetDir, nil
}
