package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/saker-ai/voice-relay/internal/provider"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

	// ModelMultilingualV2 speaks every supported language with any voice.
	ModelMultilingualV2 = "eleven_multilingual_v2"
)

// VoiceSettings tunes ElevenLabs synthesis.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings are balanced settings for conversational speech.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75, Style: 0.0, SpeakerBoost: true}
}

// ElevenLabsConfig configures the ElevenLabs client.
type ElevenLabsConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Settings *VoiceSettings
	Voices   *VoiceTable
	Client   *http.Client
	Logger   *zap.Logger
}

// ElevenLabs synthesizes through the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	cfg     ElevenLabsConfig
	client  *http.Client
	logger  *zap.Logger
	table   VoiceTable
	catalog *voiceCatalog
}

// NewElevenLabs creates an ElevenLabs client.
func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = elevenLabsBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = ModelMultilingualV2
	}
	if cfg.Settings == nil {
		s := DefaultVoiceSettings()
		cfg.Settings = &s
	}
	table := DefaultVoiceTable()
	if cfg.Voices != nil {
		table = *cfg.Voices
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ElevenLabs{
		cfg:     cfg,
		client:  provider.ClientOr(cfg.Client),
		logger:  logger.With(zap.String("component", "tts.elevenlabs")),
		table:   table,
		catalog: sharedCatalog,
	}
}

// Name returns the engine name.
func (e *ElevenLabs) Name() string { return NameElevenLabs }

// Synthesize speaks text in lang, choosing a voice from voiceHint, the
// language preferences, or the catalog, in that order.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string, lang string, voiceHint string) (*Result, error) {
	if e.cfg.APIKey == "" {
		return &Result{NeedsFallback: true, ContentType: "audio/mpeg", Provider: NameElevenLabs},
			provider.Wrap(NameElevenLabs, provider.ErrNoAPIKey)
	}
	if strings.TrimSpace(text) == "" {
		return nil, provider.Wrap(NameElevenLabs, ErrEmptyText)
	}

	voiceID := e.ResolveVoice(ctx, lang, voiceHint)

	body, err := json.Marshal(map[string]any{
		"text":           text,
		"model_id":       e.cfg.Model,
		"voice_settings": e.cfg.Settings,
	})
	if err != nil {
		return nil, provider.Wrap(NameElevenLabs, fmt.Errorf("marshal payload: %w", err))
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", e.cfg.BaseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, provider.Wrap(NameElevenLabs, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("xi-api-key", e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, provider.Wrap(NameElevenLabs, fmt.Errorf("synthesis request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ReadAPIError(NameElevenLabs, resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Wrap(NameElevenLabs, fmt.Errorf("read response: %w", err))
	}
	if len(audio) == 0 {
		return &Result{NeedsFallback: true, ContentType: "audio/mpeg", Voice: voiceID, Provider: NameElevenLabs},
			provider.Wrap(NameElevenLabs, ErrEmptyAudio)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	e.logger.Debug("synthesized audio",
		zap.Int("chars", len(text)),
		zap.Int("bytes", len(audio)),
		zap.String("voice_id", voiceID),
		zap.String("model", e.cfg.Model),
	)

	return &Result{Audio: audio, ContentType: contentType, Voice: voiceID, Provider: NameElevenLabs}, nil
}

// ResolveVoice picks a voice id. It never returns "".
func (e *ElevenLabs) ResolveVoice(ctx context.Context, lang string, voiceHint string) string {
	voices, err := e.catalog.Voices(ctx, e.client, e.cfg.BaseURL, e.cfg.APIKey)
	if err != nil {
		e.logger.Warn("voice catalog unavailable", zap.Error(err))
	}
	if len(voices) == 0 {
		return e.table.FallbackVoiceID
	}

	if hint := strings.TrimSpace(voiceHint); hint != "" {
		for _, v := range voices {
			if v.VoiceID == hint {
				return v.VoiceID
			}
		}
		lowered := strings.ToLower(hint)
		for _, v := range voices {
			if strings.Contains(strings.ToLower(v.Name), lowered) {
				return v.VoiceID
			}
		}
	}

	for _, preferred := range e.table.Preferred(lang) {
		lowered := strings.ToLower(preferred)
		for _, v := range voices {
			if strings.Contains(strings.ToLower(v.Name), lowered) {
				return v.VoiceID
			}
		}
	}

	return voices[0].VoiceID
}
