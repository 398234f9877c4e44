package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/embedding"
	"github.com/akolanti/PdfRAG/internal/rag/retry"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("openai_embedding")

type client struct {
	api       openai.Client
	model     string
	dimension int
}

func New(cfg config.EmbeddingConfig, apiKey string, httpClient *http.Client) (embedding.Embedder, error) {
	if apiKey == "" {
		return nil, ragErrors.Configuration("openaiEmbedding.new", "no OpenAI API key configured")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	logger.Info("OpenAI Embedding client created", "model", cfg.Model, "dimensions", cfg.Dimensions)
	return &client{api: openai.NewClient(opts...), model: cfg.Model, dimension: cfg.Dimensions}, nil
}

func (c *client) Dimension() int {
	return c.dimension
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embed(ctx, "embed.query", []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return c.embed(ctx, "embed.batch", texts)
}

func (c *client) embed(ctx context.Context, op string, texts []string) ([][]float32, error) {
	log := logger.FromContext(ctx).With("batch", len(texts))
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(c.model),
		Dimensions:     openai.Int(int64(c.dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		log.Error("Error getting embeddings from OpenAI", "error", err)
		return nil, classify(op, err)
	}

	// the API may reorder results, Index is authoritative
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, ragErrors.Upstream(op, fmt.Errorf("embedding index %d out of range", d.Index), false)
		}
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		vectors[d.Index] = v
	}
	for i, v := range vectors {
		if v == nil {
			return nil, ragErrors.Upstream(op, fmt.Errorf("no embedding returned for input %d", i), false)
		}
	}
	return vectors, nil
}

func classify(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return ragErrors.Upstream(op, err, retry.TransientStatus(apiErr.StatusCode))
	}
	return ragErrors.Upstream(op, err, retry.TransientNetwork(err))
}
