package utils

import (
	"context"
	"errors"
	"net/http"

	_ "github.com/akolanti/PdfRAG/cmd/api/docs"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"

	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
)

func GetNewUUID() string {
	return uuid.New().String()
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// NewRouter returns a router with swagger and prometheus already mounted.
func NewRouter() *chi.Mux {
	router := chi.NewRouter()
	InitSwagger(router)
	router.Handle("/metrics", promhttp.Handler())
	return router
}

func InitSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}

// StatusFor maps an error from the core onto an HTTP status.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch ragErrors.KindOf(err) {
	case ragErrors.KindValidation:
		return http.StatusBadRequest
	case ragErrors.KindNotFound:
		return http.StatusNotFound
	case ragErrors.KindCapacity:
		return http.StatusRequestEntityTooLarge
	case ragErrors.KindContent:
		return http.StatusUnprocessableEntity
	case ragErrors.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the error text safe to show a client. Upstream and internal
// failures are not echoed.
func PublicMessage(err error) string {
	switch ragErrors.KindOf(err) {
	case ragErrors.KindValidation, ragErrors.KindNotFound, ragErrors.KindCapacity, ragErrors.KindContent:
		return err.Error()
	case ragErrors.KindUpstream:
		if errors.Is(err, context.DeadlineExceeded) {
			return "upstream provider timed out"
		}
		return "upstream provider failed"
	case ragErrors.KindIndexConsistency:
		return err.Error()
	default:
		return "Internal Server Error"
	}
}
