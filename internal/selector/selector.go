// Package selector maps the live configuration to concrete provider clients.
package selector

import (
	"go.uber.org/zap"

	"github.com/saker-ai/voice-relay/internal/config"
	"github.com/saker-ai/voice-relay/internal/stt"
	"github.com/saker-ai/voice-relay/internal/translate"
	"github.com/saker-ai/voice-relay/internal/tts"
)

// Defaults used when a configured name is empty or unknown.
const (
	DefaultSTT       = stt.NameWhisper
	DefaultTTS       = tts.NameElevenLabs
	DefaultTranslate = translate.NameLibre
)

// fallbackPairs names the secondary STT engine for each primary.
var fallbackPairs = map[string]string{
	stt.NameWhisper:    stt.NameElevenLabs,
	stt.NameElevenLabs: stt.NameWhisper,
	stt.NameOpenAI:     stt.NameElevenLabs,
}

// Source supplies the current configuration snapshot.
type Source interface {
	Current() config.Config
}

// Factory builds a provider from a configuration snapshot.
type Factory[T any] func(cfg config.Config) T

// Factories holds one constructor per engine name.
type Factories struct {
	STT       map[string]Factory[stt.Provider]
	TTS       map[string]Factory[tts.Provider]
	Translate map[string]Factory[translate.Translator]
}

// Active reports the resolved engine names for the current snapshot.
type Active struct {
	STT             string `json:"stt"`
	STTFallback     string `json:"stt_fallback,omitempty"`
	FallbackEnabled bool   `json:"stt_fallback_enabled"`
	TTS             string `json:"tts"`
	Translate       string `json:"translate"`
}

// Selector resolves providers on every call so configuration reloads apply to
// the next message without a restart.
type Selector struct {
	source    Source
	factories Factories
	logger    *zap.Logger
}

// New creates a Selector.
func New(source Source, factories Factories, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{source: source, factories: factories, logger: logger}
}

// STT returns the primary speech recognition engine for the live snapshot.
func (s *Selector) STT() stt.Provider {
	return s.STTFor(s.source.Current())
}

// STTFor returns the primary speech recognition engine for cfg.
func (s *Selector) STTFor(cfg config.Config) stt.Provider {
	return s.factories.STT[s.sttName(cfg)](cfg)
}

// FallbackSTT returns the secondary engine, or false when fallback is disabled.
func (s *Selector) FallbackSTT() (stt.Provider, bool) {
	return s.FallbackSTTFor(s.source.Current())
}

// FallbackSTTFor is FallbackSTT against a fixed snapshot.
func (s *Selector) FallbackSTTFor(cfg config.Config) (stt.Provider, bool) {
	name, ok := s.fallbackName(cfg, s.sttName(cfg))
	if !ok {
		return nil, false
	}
	return s.factories.STT[name](cfg), true
}

// TTS returns the speech synthesis engine.
func (s *Selector) TTS() tts.Provider {
	return s.TTSFor(s.source.Current())
}

// TTSFor returns the speech synthesis engine for cfg.
func (s *Selector) TTSFor(cfg config.Config) tts.Provider {
	name := resolveName(s.logger, "tts", cfg.TTS.Provider, DefaultTTS, s.factories.TTS)
	return s.factories.TTS[name](cfg)
}

// Translator returns the translation engine.
func (s *Selector) Translator() translate.Translator {
	return s.TranslatorFor(s.source.Current())
}

// TranslatorFor returns the translation engine for cfg.
func (s *Selector) TranslatorFor(cfg config.Config) translate.Translator {
	name := resolveName(s.logger, "translate", cfg.Translate.Provider, DefaultTranslate, s.factories.Translate)
	return s.factories.Translate[name](cfg)
}

// Active resolves every engine name without building clients.
func (s *Selector) Active() Active {
	cfg := s.source.Current()
	primary := s.sttName(cfg)
	fallback, enabled := s.fallbackName(cfg, primary)
	return Active{
		STT:             primary,
		STTFallback:     fallback,
		FallbackEnabled: enabled,
		TTS:             resolveName(s.logger, "tts", cfg.TTS.Provider, DefaultTTS, s.factories.TTS),
		Translate:       resolveName(s.logger, "translate", cfg.Translate.Provider, DefaultTranslate, s.factories.Translate),
	}
}

func (s *Selector) sttName(cfg config.Config) string {
	return resolveName(s.logger, "stt", cfg.STT.Provider, DefaultSTT, s.factories.STT)
}

func (s *Selector) fallbackName(cfg config.Config, primary string) (string, bool) {
	if !cfg.STT.FallbackEnabled {
		return "", false
	}
	name := cfg.STT.FallbackProvider
	if name != "" && name != primary {
		if _, ok := s.factories.STT[name]; ok {
			return name, true
		}
		s.logger.Warn("unknown stt fallback provider, using pairing",
			zap.String("configured", name),
			zap.String("primary", primary),
		)
	}
	paired, ok := fallbackPairs[primary]
	if !ok {
		return "", false
	}
	if _, ok := s.factories.STT[paired]; !ok {
		return "", false
	}
	return paired, true
}

func resolveName[T any](logger *zap.Logger, kind string, configured string, def string, table map[string]Factory[T]) string {
	if _, ok := table[configured]; ok {
		return configured
	}
	logger.Warn("unknown provider, using default",
		zap.String("kind", kind),
		zap.String("configured", configured),
		zap.String("default", def),
	)
	return def
}
