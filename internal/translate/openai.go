package translate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/saker-ai/voice-relay/internal/provider"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures the chat-completions translator.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  *http.Client
}

// OpenAI translates with a chat completion.
type OpenAI struct {
	cfg    OpenAIConfig
	client openai.Client
}

// NewOpenAI creates a chat-completions translator.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(provider.ClientOr(cfg.Client)),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &OpenAI{cfg: cfg, client: openai.NewClient(opts...)}
}

// Name returns the engine name.
func (o *OpenAI) Name() string { return NameOpenAI }

// Translate asks the model for a bare translation.
func (o *OpenAI) Translate(ctx context.Context, text string, source string, target string) (string, error) {
	if o.cfg.APIKey == "" {
		return "", provider.Wrap(NameOpenAI, provider.ErrNoAPIKey)
	}
	if strings.TrimSpace(text) == "" {
		return "", provider.Wrap(NameOpenAI, ErrEmptyText)
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instruction(source, target)),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &provider.APIError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, Provider: NameOpenAI}
		}
		return "", provider.Wrap(NameOpenAI, err)
	}
	if len(resp.Choices) == 0 {
		return "", provider.Wrap(NameOpenAI, ErrEmptyTranslation)
	}
	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", provider.Wrap(NameOpenAI, ErrEmptyTranslation)
	}
	return translated, nil
}
