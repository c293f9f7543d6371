package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/saker-ai/voice-relay/internal/config"
	"github.com/saker-ai/voice-relay/internal/pipeline"
	"github.com/saker-ai/voice-relay/internal/selector"
	"github.com/saker-ai/voice-relay/internal/stt"
	"github.com/saker-ai/voice-relay/internal/translate"
	"github.com/saker-ai/voice-relay/internal/tts"
)

// multipartOverhead is allowed on top of the audio limit for form boundaries and fields.
const multipartOverhead = 1 << 20

// ConfigSource supplies the live configuration.
type ConfigSource interface {
	Current() config.Config
}

// ConnectionCounter reports live websocket connections.
type ConnectionCounter interface {
	Count() int
}

// ProviderSelector resolves engines for REST calls.
type ProviderSelector interface {
	Active() selector.Active
	Translator() translate.Translator
}

// Transcriber runs the recognition stage with fallback.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, lang string) pipeline.Outcome[stt.Result]
}

// Dependencies are the services behind the REST routes.
type Dependencies struct {
	Config      ConfigSource
	Connections ConnectionCounter
	Selector    ProviderSelector
	Transcriber Transcriber
	Voices      tts.VoiceTable
}

type api struct {
	deps   Dependencies
	logger *zap.Logger
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Source         string `json:"source"`
	Target         string `json:"target"`
}

type transcribeResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Provider string `json:"provider"`
}

func (a *api) debugConfig(c *gin.Context) {
	cfg := a.deps.Config.Current()
	c.JSON(http.StatusOK, gin.H{
		"providers": a.deps.Selector.Active(),
		"pipeline": gin.H{
			"provider_timeout": cfg.Pipeline.ProviderTimeout.String(),
			"max_audio_bytes":  cfg.Pipeline.MaxAudioBytes,
		},
		"tts_voice_hint": cfg.TTS.VoiceHint,
		"config_file":    cfg.ConfigFile,
		"credentials": gin.H{
			"stt_elevenlabs":   cfg.STT.ElevenLabs.APIKey != "",
			"stt_openai":       cfg.STT.OpenAI.APIKey != "",
			"tts_elevenlabs":   cfg.TTS.ElevenLabs.APIKey != "",
			"tts_openai":       cfg.TTS.OpenAI.APIKey != "",
			"translate_openai": cfg.Translate.OpenAI.APIKey != "",
			"gemini":           cfg.Translate.Gemini.APIKey != "",
		},
	})
}

func (a *api) providers(c *gin.Context) {
	active := a.deps.Selector.Active()
	sttInfo := gin.H{"primary": active.STT, "fallback": nil}
	if active.FallbackEnabled && active.STTFallback != "" {
		sttInfo["fallback"] = active.STTFallback
	}
	c.JSON(http.StatusOK, gin.H{
		"stt":         sttInfo,
		"translation": gin.H{"primary": active.Translate},
		"tts":         gin.H{"primary": active.TTS},
	})
}

func (a *api) languages(c *gin.Context) {
	active := a.deps.Selector.Active()
	codes := a.deps.Voices.Codes()
	c.JSON(http.StatusOK, gin.H{
		"stt":         gin.H{"provider": active.STT, "languages": codes},
		"translation": gin.H{"provider": active.Translate, "languages": codes},
		"tts":         gin.H{"provider": active.TTS, "languages": a.deps.Voices.Languages},
	})
}

func (a *api) sttLanguages(c *gin.Context) {
	active := a.deps.Selector.Active()
	codes := a.deps.Voices.Codes()
	c.JSON(http.StatusOK, gin.H{
		"provider":  active.STT,
		"languages": codes,
		"count":     len(codes),
	})
}

func (a *api) translate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if req.Source == "" {
		req.Source = "en"
	}
	if req.Target == "" {
		req.Target = "es"
	}

	translator := a.deps.Selector.Translator()
	ctx, cancel := a.withTimeout(c.Request.Context())
	defer cancel()

	out, err := translator.Translate(ctx, req.Text, req.Source, req.Target)
	if err == nil && strings.TrimSpace(out) == "" {
		err = translate.ErrEmptyTranslation
	}
	if err != nil {
		a.logger.Error("rest translation failed",
			zap.String("provider", translator.Name()),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": pipeline.MessageTranslationFailed})
		return
	}
	c.JSON(http.StatusOK, translateResponse{
		TranslatedText: strings.TrimSpace(out),
		Source:         req.Source,
		Target:         req.Target,
	})
}

func (a *api) transcribe(c *gin.Context) {
	limit := int64(a.deps.Config.Current().Pipeline.MaxAudioBytes)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	header, err := c.FormFile("audio")
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio file too large", "max_bytes": limit})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	if header.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio file too large", "max_bytes": limit})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is unreadable"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is unreadable"})
		return
	}
	if int64(len(audio)) > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio file too large", "max_bytes": limit})
		return
	}
	if len(audio) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty audio file"})
		return
	}

	language := strings.TrimSpace(c.PostForm("language"))
	a.logger.Info("stt transcription request",
		zap.Int("bytes", len(audio)),
		zap.String("language", language),
	)

	outcome := a.deps.Transcriber.Transcribe(c.Request.Context(), audio, language)
	if !outcome.OK() {
		a.logger.Error("rest transcription failed", zap.Error(outcome.Err))
		c.JSON(http.StatusBadGateway, gin.H{"error": pipeline.MessageSTTFailed})
		return
	}

	resp := transcribeResponse{
		Text:     outcome.Value.Text,
		Language: outcome.Value.Language,
		Provider: outcome.Value.Provider,
	}
	if resp.Language == "" {
		resp.Language = stt.LanguageCode(language)
	}
	c.JSON(http.StatusOK, resp)
}

func (a *api) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := a.deps.Config.Current().Pipeline.ProviderTimeout
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
