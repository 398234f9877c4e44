package adapter

import (
	"github.com/akolanti/PdfRAG/internal/adapter/utils"
	"github.com/akolanti/PdfRAG/internal/api"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag"
)

func ToRAGQuery(req api.QueryRequest) rag.QueryRequest {
	return rag.QueryRequest{
		Question:       req.Question,
		K:              req.K,
		IncludeSources: req.IncludeSources,
		Filter:         req.Filter,
	}
}

func ToQueryResponse(resp rag.QueryResponse) api.QueryResponse {
	return api.QueryResponse{Answer: resp.Answer, Sources: resp.Sources, NumSources: resp.NumSources}
}

func ToRAGSearch(req api.SearchRequest) rag.SearchRequest {
	return rag.SearchRequest{
		Query:          req.Query,
		K:              req.K,
		Filter:         req.Filter,
		ScoreThreshold: req.ScoreThreshold,
	}
}

func ToSearchResponse(resp rag.SearchResponse) api.SearchResponse {
	return api.SearchResponse{Chunks: resp.Chunks}
}

func ToRAGChat(req api.ChatRequest) rag.ChatRequest {
	return rag.ChatRequest{SessionID: req.SessionID, Message: req.Message, K: req.K}
}

func ToChatResponse(resp rag.ChatResponse) api.ChatResponse {
	return api.ChatResponse{
		SessionID:  resp.SessionID,
		Response:   resp.Response,
		Sources:    resp.Sources,
		NumSources: resp.NumSources,
	}
}

func ToErrorResponse(err error, traceID string) (int, api.ErrorResponse) {
	return utils.StatusFor(err), api.ErrorResponse{
		Error:   utils.PublicMessage(err),
		Kind:    ragErrors.KindOf(err).String(),
		TraceID: traceID,
	}
}
