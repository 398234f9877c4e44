package gemini

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/llm"
	"github.com/akolanti/PdfRAG/internal/rag/retry"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("llm_gemini")

type llmClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
	maxTokens   int32
}

func New(ctx context.Context, cfg config.GenerationConfig, apiKey string, httpClient *http.Client) (llm.Provider, error) {
	if apiKey == "" {
		return nil, ragErrors.Configuration("gemini.new", "no Gemini API key configured")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		return nil, ragErrors.Configuration("gemini.new", "create client: %v", err)
	}
	logger.Info("Gemini client created", "model", cfg.Model)
	return &llmClient{
		client:      c,
		modelName:   cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

func (c *llmClient) Name() string { return "gemini" }

func (c *llmClient) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	log := logger.FromContext(ctx)

	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		},
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, toContents(prompt), contentConfig)
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", classify("llm.gemini", err)
	}
	text := result.Text()
	if text == "" {
		return "", ragErrors.Upstream("llm.gemini", errors.New("empty completion"), false)
	}
	return text, nil
}

func toContents(prompt llm.Prompt) []*genai.Content {
	contents := make([]*genai.Content, 0, len(prompt.History)+1)
	for _, t := range prompt.History {
		role := genai.Role(genai.RoleUser)
		if t.Role == chatModel.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	return append(contents, genai.NewContentFromText(prompt.UserMessage(), genai.RoleUser))
}

func classify(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ragErrors.Upstream(op, err, retry.TransientStatus(apiErr.Code))
	}
	return ragErrors.Upstream(op, err, retry.TransientGRPC(err) || retry.TransientNetwork(err))
}
