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
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	defaultScribeModel = "scribe_v1"
)

// ElevenLabsConfig configures the Scribe client.
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  *http.Client
}

// ElevenLabs transcribes through the ElevenLabs speech-to-text API.
type ElevenLabs struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

// NewElevenLabs creates a Scribe client.
func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = elevenLabsBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultScribeModel
	}
	return &ElevenLabs{cfg: cfg, client: provider.ClientOr(cfg.Client)}
}

// Name returns the engine name.
func (e *ElevenLabs) Name() string { return NameElevenLabs }

// Transcribe posts the audio to /speech-to-text.
func (e *ElevenLabs) Transcribe(ctx context.Context, audio []byte, lang string) (Result, error) {
	if e.cfg.APIKey == "" {
		return Result{}, provider.Wrap(NameElevenLabs, provider.ErrNoAPIKey)
	}
	if len(audio) == 0 {
		return Result{}, provider.Wrap(NameElevenLabs, ErrEmptyAudio)
	}

	code := LanguageCode(lang)
	if code == "" {
		code = "en"
	}
	body, contentType, err := buildForm("file", audio,
		formField{name: "model_id", value: e.cfg.Model},
		formField{name: "language_code", value: code},
	)
	if err != nil {
		return Result{}, provider.Wrap(NameElevenLabs, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/speech-to-text", body)
	if err != nil {
		return Result{}, provider.Wrap(NameElevenLabs, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, provider.Wrap(NameElevenLabs, fmt.Errorf("scribe request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Result{}, provider.ReadAPIError(NameElevenLabs, resp)
	}

	// The transcript field name has varied across API versions.
	var payload struct {
		Text         string `json:"text"`
		Transcript   string `json:"transcript"`
		Content      string `json:"content"`
		LanguageCode string `json:"language_code"`
		Language     string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, provider.Wrap(NameElevenLabs, fmt.Errorf("decode scribe response: %w", err))
	}

	text := firstNonEmpty(payload.Text, payload.Transcript, payload.Content)
	detected := firstNonEmpty(payload.LanguageCode, payload.Language, code)
	return Result{Text: text, Language: detected, Provider: NameElevenLabs}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
