package anthropicLLM

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/llm"
	"github.com/akolanti/PdfRAG/internal/rag/retry"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("llm_anthropic")

type llmClient struct {
	api         anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
}

func New(cfg config.GenerationConfig, apiKey string, httpClient *http.Client, opts ...option.RequestOption) (llm.Provider, error) {
	if apiKey == "" {
		return nil, ragErrors.Configuration("anthropicLLM.new", "no Anthropic API key configured")
	}
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if httpClient != nil {
		base = append(base, option.WithHTTPClient(httpClient))
	}
	logger.Info("Anthropic client created", "model", cfg.Model)
	return &llmClient{
		api:         anthropic.NewClient(append(base, opts...)...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
	}, nil
}

func (c *llmClient) Name() string { return "anthropic" }

func (c *llmClient) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	log := logger.FromContext(ctx)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Messages:    toMessages(prompt),
		Temperature: anthropic.Float(c.temperature),
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		log.Error("Anthropic message failed", "error", err)
		return "", classify("llm.anthropic", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", ragErrors.Upstream("llm.anthropic", errors.New("empty completion"), false)
	}
	return b.String(), nil
}

// toMessages keeps user and assistant turns alternating, merging consecutive
// turns of the same role.
func toMessages(prompt llm.Prompt) []anthropic.MessageParam {
	type turn struct {
		assistant bool
		text      string
	}
	var turns []turn
	add := func(assistant bool, text string) {
		if n := len(turns); n > 0 && turns[n-1].assistant == assistant {
			turns[n-1].text += "\n\n" + text
			return
		}
		turns = append(turns, turn{assistant: assistant, text: text})
	}
	for _, t := range prompt.History {
		add(t.Role == chatModel.RoleAssistant, t.Content)
	}
	add(false, prompt.UserMessage())

	// the conversation has to open with a user turn
	if turns[0].assistant {
		turns = turns[1:]
	}

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		if t.assistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.text)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.text)))
		}
	}
	return messages
}

func classify(op string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return ragErrors.Upstream(op, err, retry.TransientStatus(apiErr.StatusCode))
	}
	return ragErrors.Upstream(op, err, retry.TransientNetwork(err))
}
