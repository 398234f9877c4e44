package openaiLLM

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/llm"
	"github.com/akolanti/PdfRAG/internal/rag/retry"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("llm_openai")

type llmClient struct {
	api         openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

func New(cfg config.GenerationConfig, apiKey string, httpClient *http.Client, opts ...option.RequestOption) (llm.Provider, error) {
	if apiKey == "" {
		return nil, ragErrors.Configuration("openaiLLM.new", "no OpenAI API key configured")
	}
	// retries are owned by the orchestrator
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if httpClient != nil {
		base = append(base, option.WithHTTPClient(httpClient))
	}
	logger.Info("OpenAI chat client created", "model", cfg.Model)
	return &llmClient{
		api:         openai.NewClient(append(base, opts...)...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
	}, nil
}

func (c *llmClient) Name() string { return "openai" }

func (c *llmClient) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	log := logger.FromContext(ctx)
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toMessages(prompt),
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		log.Error("OpenAI completion failed", "error", err)
		return "", classify("llm.openai", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ragErrors.Upstream("llm.openai", errors.New("empty completion"), false)
	}
	return resp.Choices[0].Message.Content, nil
}

func toMessages(prompt llm.Prompt) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.History)+2)
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	for _, t := range prompt.History {
		if t.Role == chatModel.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(t.Content))
		} else {
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	return append(messages, openai.UserMessage(prompt.UserMessage()))
}

func classify(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return ragErrors.Upstream(op, err, retry.TransientStatus(apiErr.StatusCode))
	}
	return ragErrors.Upstream(op, err, retry.TransientNetwork(err))
}
