package stt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/saker-ai/voice-relay/internal/provider"
)

const defaultWhisperModel = "base"

// WhisperConfig configures the faster-whisper sidecar client.
type WhisperConfig struct {
	URL    string
	Model  string
	Client *http.Client
}

// Whisper talks to a faster-whisper HTTP sidecar.
type Whisper struct {
	cfg    WhisperConfig
	client *http.Client
}

// NewWhisper creates a Whisper client.
func NewWhisper(cfg WhisperConfig) *Whisper {
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	return &Whisper{cfg: cfg, client: provider.ClientOr(cfg.Client)}
}

// Name returns the engine name.
func (w *Whisper) Name() string { return NameWhisper }

// Transcribe posts the audio to <url>/transcribe.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, lang string) (Result, error) {
	if len(audio) == 0 {
		return Result{}, provider.Wrap(NameWhisper, ErrEmptyAudio)
	}
	if w.cfg.URL == "" {
		return Result{}, provider.Wrap(NameWhisper, ErrNoEndpoint)
	}

	code := LanguageCode(lang)
	body, contentType, err := buildForm("audio", audio,
		formField{name: "model", value: w.cfg.Model},
		formField{name: "language", value: code},
	)
	if err != nil {
		return Result{}, provider.Wrap(NameWhisper, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL+"/transcribe", body)
	if err != nil {
		return Result{}, provider.Wrap(NameWhisper, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{}, provider.Wrap(NameWhisper, fmt.Errorf("whisper request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, provider.ReadAPIError(NameWhisper, resp)
	}

	var payload struct {
		Text     string `json:"text"`
		Language string `json:"language"`
		Segments []struct {
			Text string `json:"text"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, provider.Wrap(NameWhisper, fmt.Errorf("decode whisper response: %w", err))
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" && len(payload.Segments) > 0 {
		parts := make([]string, 0, len(payload.Segments))
		for _, seg := range payload.Segments {
			if s := strings.TrimSpace(seg.Text); s != "" {
				parts = append(parts, s)
			}
		}
		text = strings.Join(parts, " ")
	}

	detected := payload.Language
	if detected == "" {
		detected = code
	}
	return Result{Text: text, Language: detected, Provider: NameWhisper}, nil
}
