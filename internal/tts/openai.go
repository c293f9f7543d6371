package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/saker-ai/voice-relay/internal/provider"
)

const (
	openAIBaseURL      = "https://api.openai.com/v1"
	defaultOpenAIModel = "tts-1"
	defaultOpenAIVoice = "alloy"
)

var openAIVoices = map[string]struct{}{
	"alloy": {}, "ash": {}, "ballad": {}, "coral": {}, "echo": {}, "fable": {},
	"nova": {}, "onyx": {}, "sage": {}, "shimmer": {}, "verse": {},
}

// OpenAIConfig configures the OpenAI speech client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Client  *http.Client
}

// OpenAI synthesizes through the OpenAI /audio/speech endpoint.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI creates an OpenAI speech client.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = openAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultOpenAIVoice
	}
	return &OpenAI{cfg: cfg, client: provider.ClientOr(cfg.Client)}
}

// Name returns the engine name.
func (o *OpenAI) Name() string { return NameOpenAI }

// Synthesize speaks text. The model is multilingual, so lang only matters to the text itself.
func (o *OpenAI) Synthesize(ctx context.Context, text string, lang string, voiceHint string) (*Result, error) {
	if o.cfg.APIKey == "" {
		return nil, provider.Wrap(NameOpenAI, provider.ErrNoAPIKey)
	}
	if strings.TrimSpace(text) == "" {
		return nil, provider.Wrap(NameOpenAI, ErrEmptyText)
	}

	voice := o.cfg.Voice
	if hint := strings.ToLower(strings.TrimSpace(voiceHint)); hint != "" {
		if _, ok := openAIVoices[hint]; ok {
			voice = hint
		}
	}

	body, err := json.Marshal(map[string]any{
		"model":           o.cfg.Model,
		"input":           text,
		"voice":           voice,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, provider.Wrap(NameOpenAI, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, provider.Wrap(NameOpenAI, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, provider.Wrap(NameOpenAI, fmt.Errorf("speech request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ReadAPIError(NameOpenAI, resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Wrap(NameOpenAI, fmt.Errorf("read response: %w", err))
	}
	if len(audio) == 0 {
		return &Result{NeedsFallback: true, ContentType: "audio/mpeg", Voice: voice, Provider: NameOpenAI},
			provider.Wrap(NameOpenAI, ErrEmptyAudio)
	}
	return &Result{Audio: audio, ContentType: "audio/mpeg", Voice: voice, Provider: NameOpenAI}, nil
}
