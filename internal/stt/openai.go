package stt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/saker-ai/voice-relay/internal/provider"
)

const (
	openAIBaseURL      = "https://api.openai.com/v1"
	defaultOpenAIModel  = "whisper-1"
)

// OpenAIConfig configures the OpenAI transcription client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  *http.Client
}

// OpenAI transcribes through the OpenAI audio transcription endpoint.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI creates an OpenAI transcription client.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = openAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	return &OpenAI{cfg: cfg, client: provider.ClientOr(cfg.Client)}
}

// Name returns the engine name.
func (o *OpenAI) Name() string { return NameOpenAI }

// Transcribe posts the audio to /audio/transcriptions.
func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, lang string) (Result, error) {
	if o.cfg.APIKey == "" {
		return Result{}, provider.Wrap(NameOpenAI, provider.ErrNoAPIKey)
	}
	if len(audio) == 0 {
		return Result{}, provider.Wrap(NameOpenAI, ErrEmptyAudio)
	}

	code := LanguageCode(lang)
	body, contentType, err := buildForm("file", audio,
		formField{name: "model", value: o.cfg.Model},
		formField{name: "language", value: code},
		formField{name: "response_format", value: "json"},
	)
	if err != nil {
		return Result{}, provider.Wrap(NameOpenAI, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return Result{}, provider.Wrap(NameOpenAI, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return Result{}, provider.Wrap(NameOpenAI, fmt.Errorf("transcription request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, provider.ReadAPIError(NameOpenAI, resp)
	}

	var payload struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, provider.Wrap(NameOpenAI, fmt.Errorf("decode transcription response: %w", err))
	}

	detected := payload.Language
	if detected == "" {
		detected = code
	}
	return Result{Text: strings.TrimSpace(payload.Text), Language: detected, Provider: NameOpenAI}, nil
}
