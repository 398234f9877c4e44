package handlers

import (
	"net/http"

	"github.com/akolanti/PdfRAG/internal/adapter"
	"github.com/akolanti/PdfRAG/internal/adapter/utils"
	"github.com/akolanti/PdfRAG/internal/api"
)

// Health godoc
// @Summary      Liveness check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.rag.Stats(r.Context())
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok", TotalChunks: stats.TotalChunks})
}

// Stats godoc
// @Summary      Index statistics
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  commonModels.IndexStats
// @Router       /stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, h.rag.Stats(r.Context()))
}

// Query godoc
// @Summary      Ask a question
// @Description  Retrieves the most similar passages and generates an answer grounded in them.
// @Tags         RAG
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      api.QueryRequest   true  "Question, optional k, include_sources and metadata filter"
// @Success      200      {object}  api.QueryResponse
// @Failure      400      {object}  api.ErrorResponse  "Bad k, empty question or malformed filter"
// @Failure      502      {object}  api.ErrorResponse  "Embedding or generation provider failed"
// @Failure      504      {object}  api.ErrorResponse  "Provider timed out"
// @Router       /query [post]
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req api.QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	resp, err := h.rag.Query(ctx, adapter.ToRAGQuery(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToQueryResponse(resp))
}

// Search godoc
// @Summary      Semantic search
// @Description  Returns the top k chunks without generating an answer.
// @Tags         RAG
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      api.SearchRequest  true  "Query, optional k, filter and score threshold"
// @Success      200      {object}  api.SearchResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /search [post]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req api.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	resp, err := h.rag.Search(ctx, adapter.ToRAGSearch(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSearchResponse(resp))
}

// Chat godoc
// @Summary      Send a chat message
// @Description  Answers with the session's recent turns as context and records the exchange.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      api.ChatRequest  true  "Session id and message"
// @Success      200      {object}  api.ChatResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /chat [post]
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	resp, err := h.rag.Chat(ctx, adapter.ToRAGChat(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToChatResponse(resp))
}

// History godoc
// @Summary      Session history
// @Tags         Chat
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  chatModel.Session
// @Failure      404  {object}  api.ErrorResponse
// @Router       /chat/{id}/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	session, err := h.rag.GetHistory(r.Context(), utils.GetChiURLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, session)
}

// ClearHistory godoc
// @Summary      Clear a session
// @Description  Empties the turn log; the session itself and its created_at remain.
// @Tags         Chat
// @Security     BearerAuth
// @Param        id   path      string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  api.ErrorResponse
// @Router       /chat/{id} [delete]
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.rag.ClearHistory(r.Context(), utils.GetChiURLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportHistory godoc
// @Summary      Export a session
// @Description  The full turn log as a JSON array of {role, content, timestamp, citations}.
// @Tags         Chat
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session ID"
// @Success      200  {array}   conversation.ExportedTurn
// @Failure      404  {object}  api.ErrorResponse
// @Router       /chat/{id}/export [get]
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	data, err := h.rag.Export(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="session-`+sanitizeHeader(id)+`.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.FromContext(r.Context()).Error("export write failed", "error", err)
	}
}

// ListSessions godoc
// @Summary      List sessions
// @Tags         Chat
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  api.SessionsResponse
// @Router       /sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.rag.Sessions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.SessionsResponse{Sessions: sessions})
}

// DeleteSession godoc
// @Summary      Delete a session
// @Tags         Chat
// @Security     BearerAuth
// @Param        id   path      string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  api.ErrorResponse
// @Router       /sessions/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.rag.DeleteSession(r.Context(), utils.GetChiURLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sanitizeHeader(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '"' || c == '\\' || c < 0x20 || c == 0x7f {
			c = '_'
		}
		out = append(out, c)
	}
	return string(out)
}
