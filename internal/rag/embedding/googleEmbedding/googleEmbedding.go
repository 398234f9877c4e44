package googleEmbedding

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/embedding"
	"github.com/akolanti/PdfRAG/internal/rag/retry"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("google_embedding")

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
}

func New(ctx context.Context, cfg config.EmbeddingConfig, apiKey string, httpClient *http.Client) (embedding.Embedder, error) {
	if apiKey == "" {
		return nil, ragErrors.Configuration("googleEmbedding.new", "no Google API key configured")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		return nil, ragErrors.Configuration("googleEmbedding.new", "create client: %v", err)
	}
	logger.Info("Google Embedding client created", "model", cfg.Model)
	return &client{genAi: c, model: cfg.Model, dimension: int32(cfg.Dimensions)}, nil
}

func (c *client) Dimension() int {
	return int(c.dimension)
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.FromContext(ctx)
	result, err := c.doCall(ctx, genai.Text(query), taskQuery)
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, classify("embed.query", err)
	}
	if len(result.Embeddings) != 1 {
		return nil, ragErrors.Upstream("embed.query", errors.New("provider returned no embedding"), false)
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	log := logger.FromContext(ctx).With("batch", len(texts))
	result, err := c.doCall(ctx, getContent(texts), taskDocument)
	if err != nil {
		log.Error("Error getting embeddings from Google", "error", err)
		return nil, classify("embed.batch", err)
	}
	vectors := make([][]float32, 0, len(result.Embeddings))
	for _, r := range result.Embeddings {
		vectors = append(vectors, r.Values)
	}
	return vectors, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             task,
	})
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

func classify(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ragErrors.Upstream(op, err, retry.TransientStatus(apiErr.Code))
	}
	return ragErrors.Upstream(op, err, retry.TransientGRPC(err) || retry.TransientNetwork(err))
}
