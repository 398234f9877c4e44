package mcpServer

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/rag"
)

type SearchInput struct {
	Query    string         `json:"query" jsonschema:"text to find similar passages for"`
	K        int            `json:"k,omitempty" jsonschema:"number of passages to return (default from server config)"`
	SourceID string         `json:"source_id,omitempty" jsonschema:"restrict results to one document"`
	Filter   map[string]any `json:"filter,omitempty" jsonschema:"exact match on source_id, page, title or chunk_index"`
}

type SearchOutput struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

type SearchResult struct {
	SourceID   string  `json:"source_id"`
	Title      string  `json:"title"`
	Page       int     `json:"page"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
}

type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	K         int    `json:"k,omitempty" jsonschema:"number of passages to ground the answer in"`
	SessionID string `json:"session_id,omitempty" jsonschema:"continue a chat session; omit for a one-off question"`
}

type AskOutput struct {
	Answer  string                  `json:"answer"`
	Sources []commonModels.Citation `json:"sources"`
}

type StatsInput struct{}

type HistoryInput struct {
	SessionID string `json:"session_id" jsonschema:"the chat session to read"`
}

type HistoryOutput struct {
	SessionID string           `json:"session_id"`
	Turns     []chatModel.Turn `json:"turns"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over the indexed PDF documents",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question from the indexed documents with page citations",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Chunk and source counts of the document index",
	}, s.handleStats)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat_history",
		Description: "Turns recorded in a chat session",
	}, s.handleHistory)
}

func optionalK(k int) *int {
	if k == 0 {
		return nil
	}
	return &k
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	filter := input.Filter
	if input.SourceID != "" {
		merged := make(map[string]any, len(filter)+1)
		for k, v := range filter {
			merged[k] = v
		}
		merged["source_id"] = input.SourceID
		filter = merged
	}

	resp, err := s.rag.Search(ctx, rag.SearchRequest{Query: input.Query, K: optionalK(input.K), Filter: filter})
	if err != nil {
		s.logger.FromContext(ctx).Warn("search tool failed", "error", err)
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{Results: make([]SearchResult, len(resp.Chunks)), Count: len(resp.Chunks)}
	for i, rc := range resp.Chunks {
		output.Results[i] = SearchResult{
			SourceID:   rc.Chunk.SourceID,
			Title:      rc.Chunk.Metadata.Title,
			Page:       rc.Chunk.Metadata.Page,
			ChunkIndex: rc.Chunk.ChunkIndex,
			Score:      rc.Score,
			Text:       rc.Chunk.Text,
		}
	}
	return nil, output, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if input.SessionID != "" {
		resp, err := s.rag.Chat(ctx, rag.ChatRequest{SessionID: input.SessionID, Message: input.Question, K: optionalK(input.K)})
		if err != nil {
			return nil, AskOutput{}, err
		}
		return nil, AskOutput{Answer: resp.Response, Sources: resp.Sources}, nil
	}

	resp, err := s.rag.Query(ctx, rag.QueryRequest{Question: input.Question, K: optionalK(input.K)})
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: resp.Answer, Sources: resp.Sources}, nil
}

func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, commonModels.IndexStats, error) {
	return nil, s.rag.Stats(ctx), nil
}

func (s *Server) handleHistory(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	session, err := s.rag.GetHistory(ctx, input.SessionID)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	return nil, HistoryOutput{SessionID: session.ID, Turns: session.Turns}, nil
}
