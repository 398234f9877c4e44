package mcpServer

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/akolanti/PdfRAG/internal/rag"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

const Version = "1.0.0"

var ErrMissingRAGService = errors.New("mcp: rag service is required")

// Server exposes the document tools over the Model Context Protocol.
type Server struct {
	rag    rag.Service
	server *mcp.Server
	logger *logger_i.Logger
}

func New(ragService rag.Service) (*Server, error) {
	if ragService == nil {
		return nil, ErrMissingRAGService
	}
	s := &Server{
		rag:    ragService,
		server: mcp.NewServer(&mcp.Implementation{Name: "pdfrag", Version: Version}, nil),
		logger: logger_i.NewLogger("MCP"),
	}
	s.registerTools()
	return s, nil
}

// Handler serves the streamable HTTP transport, mounted under /mcp.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunStdio blocks until ctx is cancelled or the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
