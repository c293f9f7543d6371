package translate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/saker-ai/voice-relay/internal/provider"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini translator.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

// Gemini translates with the Gemini API.
type Gemini struct {
	cfg GeminiConfig

	once   sync.Once
	client *genai.Client
	err    error
}

// NewGemini creates a Gemini translator. The SDK client is built on first use.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	return &Gemini{cfg: cfg}
}

// Name returns the engine name.
func (g *Gemini) Name() string { return NameGemini }

func (g *Gemini) genaiClient(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		cc := &genai.ClientConfig{
			APIKey:     g.cfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: provider.ClientOr(g.cfg.Client),
		}
		if g.cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
		}
		g.client, g.err = genai.NewClient(ctx, cc)
		if g.err != nil {
			g.err = fmt.Errorf("failed to create genai client: %w", g.err)
		}
	})
	return g.client, g.err
}

// Translate asks the model for a bare translation.
func (g *Gemini) Translate(ctx context.Context, text string, source string, target string) (string, error) {
	if g.cfg.APIKey == "" {
		return "", provider.Wrap(NameGemini, provider.ErrNoAPIKey)
	}
	if strings.TrimSpace(text) == "" {
		return "", provider.Wrap(NameGemini, ErrEmptyText)
	}

	client, err := g.genaiClient(ctx)
	if err != nil {
		return "", provider.Wrap(NameGemini, err)
	}

	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(instruction(source, target))},
		},
		Temperature: &temperature,
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	resp, err := client.Models.GenerateContent(ctx, g.cfg.Model, contents, config)
	if err != nil {
		return "", provider.Wrap(NameGemini, err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		break
	}
	translated := strings.TrimSpace(sb.String())
	if translated == "" {
		return "", provider.Wrap(NameGemini, ErrEmptyTranslation)
	}
	return translated, nil
}
