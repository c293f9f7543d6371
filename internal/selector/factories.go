package selector

import (
	"go.uber.org/zap"

	"github.com/saker-ai/voice-relay/internal/config"
	"github.com/saker-ai/voice-relay/internal/stt"
	"github.com/saker-ai/voice-relay/internal/translate"
	"github.com/saker-ai/voice-relay/internal/tts"
)

// DefaultFactories wires every vendor client to its configuration section.
func DefaultFactories(logger *zap.Logger) Factories {
	return Factories{
		STT: map[string]Factory[stt.Provider]{
			stt.NameWhisper: func(cfg config.Config) stt.Provider {
				return stt.NewWhisper(stt.WhisperConfig{
					URL:   cfg.STT.Whisper.URL,
					Model: cfg.STT.Whisper.Model,
				})
			},
			stt.NameElevenLabs: func(cfg config.Config) stt.Provider {
				return stt.NewElevenLabs(stt.ElevenLabsConfig{
					APIKey:  cfg.STT.ElevenLabs.APIKey,
					BaseURL: cfg.STT.ElevenLabs.BaseURL,
					Model:   cfg.STT.ElevenLabs.Model,
				})
			},
			stt.NameOpenAI: func(cfg config.Config) stt.Provider {
				return stt.NewOpenAI(stt.OpenAIConfig{
					APIKey:  cfg.STT.OpenAI.APIKey,
					BaseURL: cfg.STT.OpenAI.BaseURL,
					Model:   cfg.STT.OpenAI.Model,
				})
			},
		},
		TTS: map[string]Factory[tts.Provider]{
			tts.NameElevenLabs: func(cfg config.Config) tts.Provider {
				return tts.NewElevenLabs(tts.ElevenLabsConfig{
					APIKey:  cfg.TTS.ElevenLabs.APIKey,
					BaseURL: cfg.TTS.ElevenLabs.BaseURL,
					Model:   cfg.TTS.ElevenLabs.Model,
					Logger:  logger,
				})
			},
			tts.NameOpenAI: func(cfg config.Config) tts.Provider {
				return tts.NewOpenAI(tts.OpenAIConfig{
					APIKey:  cfg.TTS.OpenAI.APIKey,
					BaseURL: cfg.TTS.OpenAI.BaseURL,
					Model:   cfg.TTS.OpenAI.Model,
					Voice:   cfg.TTS.OpenAI.Voice,
				})
			},
		},
		Translate: map[string]Factory[translate.Translator]{
			translate.NameLibre: func(cfg config.Config) translate.Translator {
				return translate.NewLibre(translate.LibreConfig{
					URL:    cfg.Translate.Libre.URL,
					APIKey: cfg.Translate.Libre.APIKey,
				})
			},
			translate.NameOpenAI: func(cfg config.Config) translate.Translator {
				return translate.NewOpenAI(translate.OpenAIConfig{
					APIKey:  cfg.Translate.OpenAI.APIKey,
					BaseURL: cfg.Translate.OpenAI.BaseURL,
					Model:   cfg.Translate.OpenAI.Model,
				})
			},
			translate.NameGemini: func(cfg config.Config) translate.Translator {
				return translate.NewGemini(translate.GeminiConfig{
					APIKey:  cfg.Translate.Gemini.APIKey,
					BaseURL: cfg.Translate.Gemini.BaseURL,
					Model:   cfg.Translate.Gemini.Model,
				})
			},
		},
	}
}
