// Package pipeline drives one inbound message through recognition,
// translation and synthesis, producing exactly one final frame.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saker-ai/voice-relay/internal/config"
	applogger "github.com/saker-ai/voice-relay/internal/logger"
	"github.com/saker-ai/voice-relay/internal/protocol"
	"github.com/saker-ai/voice-relay/internal/provider"
	"github.com/saker-ai/voice-relay/internal/stt"
	"github.com/saker-ai/voice-relay/internal/translate"
	"github.com/saker-ai/voice-relay/internal/transport/codec"
	"github.com/saker-ai/voice-relay/internal/tts"
)

// Messages sent to clients when a stage fails hard.
const (
	MessageSTTFailed         = "speech recognition failed"
	MessageTranslationFailed = "translation failed"
	MessageInvalidAudio      = "invalid audio data format"
)

// Providers resolves the engines for one message from the snapshot the
// message started with.
type Providers interface {
	STTFor(cfg config.Config) stt.Provider
	FallbackSTTFor(cfg config.Config) (stt.Provider, bool)
	TTSFor(cfg config.Config) tts.Provider
	TranslatorFor(cfg config.Config) translate.Translator
}

// Source supplies the current configuration snapshot.
type Source interface {
	Current() config.Config
}

// Notify receives progress frames in streaming mode. The final frame is
// returned by Run, never passed to Notify.
type Notify func(frame protocol.Envelope)

// Result is what Run produced for a message.
type Result struct {
	MessageID string
	SenderID  string
	Frame     protocol.Envelope
	History   []State
	Err       error
}

// Pipeline processes inbound messages. It holds no per-message state and is
// safe for concurrent use.
type Pipeline struct {
	providers Providers
	source    Source
	logger    *zap.Logger
	newID     func() string
}

// New creates a Pipeline.
func New(providers Providers, source Source, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		providers: providers,
		source:    source,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Run processes raw to completion. The returned frame is either a translation
// or an error event.
func (p *Pipeline) Run(ctx context.Context, raw []byte, notify Notify) Result {
	cfg := p.source.Current()
	run := &run{
		Pipeline: p,
		cfg:      cfg,
		machine:  NewMachine(),
		id:       p.newID(),
		notify:   notify,
	}
	run.logger = applogger.ForMessage(p.logger, run.id, "")
	return run.execute(ctx, raw)
}

// Transcribe runs the recognition stage alone: primary engine, then at most
// one fallback attempt.
func (p *Pipeline) Transcribe(ctx context.Context, audio []byte, lang string) Outcome[stt.Result] {
	cfg := p.source.Current()
	return p.transcribe(ctx, cfg, p.logger, audio, lang)
}

type run struct {
	*Pipeline
	cfg     config.Config
	machine *Machine
	id      string
	sender  string
	notify  Notify
	logger  *zap.Logger
}

func (r *run) execute(ctx context.Context, raw []byte) Result {
	msg, audio, err := r.validate(raw)
	if err != nil {
		r.logger.Info("message rejected", zap.Error(err))
		return r.errored(protocol.ErrorKindValidation, clientMessage(err), err)
	}
	r.sender = msg.SenderID
	r.advance(StateValidated)
	r.emit(protocol.NewProgress(protocol.TypeProcessingStarted, r.id))

	logger := applogger.ForMessage(r.logger, "", msg.SenderID).With(
		zap.String("source_lang", msg.SourceLang),
		zap.String("target_lang", msg.TargetLang),
	)

	original := msg.Text
	if audio != nil {
		outcome := r.transcribe(ctx, r.cfg, logger, audio, msg.SourceLang)
		if !outcome.OK() {
			logger.Error("speech recognition failed", zap.Error(outcome.Err))
			return r.errored(protocol.ErrorKindSTT, MessageSTTFailed, outcome.Err)
		}
		original = outcome.Value.Text
		r.advance(StateTranscribed)
		progress := protocol.NewProgress(protocol.TypeSTTResult, r.id)
		progress.Text = original
		r.emit(progress)
	}

	translated := r.translate(ctx, logger, original, msg.SourceLang, msg.TargetLang)
	if !translated.OK() {
		logger.Error("translation failed", zap.Error(translated.Err))
		return r.errored(protocol.ErrorKindTranslation, MessageTranslationFailed, translated.Err)
	}
	r.advance(StateTranslated)
	progress := protocol.NewProgress(protocol.TypeTranslationResult, r.id)
	progress.Original = original
	progress.Translated = translated.Value
	r.emit(progress)

	update := protocol.NewProgress(protocol.TypeProcessingUpdate, r.id)
	update.Stage = StageSynthesize
	r.emit(update)

	audioURL := ""
	speech := r.synthesize(ctx, logger, translated.Value, msg.TargetLang)
	if speech.OK() {
		audioURL = codec.DataURI(speech.Value.Audio, speech.Value.ContentType)
	} else {
		logger.Warn("speech synthesis degraded to text only", zap.Error(speech.Err))
	}
	r.advance(StateSynthesized)

	frame := protocol.NewTranslation(r.id, original, translated.Value, audioURL)
	r.advance(StateSent)
	logger.Debug("message processed",
		zap.Bool("has_audio", audioURL != ""),
		zap.Strings("states", stateNames(r.machine.History())),
	)
	return Result{MessageID: r.id, SenderID: r.sender, Frame: frame, History: r.machine.History()}
}

func (r *run) validate(raw []byte) (protocol.InboundMessage, []byte, error) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		return protocol.InboundMessage{}, nil, &StageError{Stage: StageValidate, Kind: ValidationError, Err: err}
	}
	if !msg.HasAudio() {
		return msg, nil, nil
	}
	audio, err := codec.DecodeAudio(msg.AudioData)
	if err != nil || len(audio) == 0 {
		return protocol.InboundMessage{}, nil, &StageError{Stage: StageValidate, Kind: ValidationError, Err: ErrInvalidAudio}
	}
	if limit := r.cfg.Pipeline.MaxAudioBytes; limit > 0 && len(audio) > limit {
		return protocol.InboundMessage{}, nil, &StageError{
			Stage: StageValidate,
			Kind:  ValidationError,
			Err:   fmt.Errorf("%w: %d bytes exceeds %d", ErrAudioTooLarge, len(audio), limit),
		}
	}
	return msg, audio, nil
}

func (r *run) translate(ctx context.Context, logger *zap.Logger, text, source, target string) Outcome[string] {
	translator := r.providers.TranslatorFor(r.cfg)
	callCtx, cancel := withTimeout(ctx, r.cfg)
	defer cancel()

	started := time.Now()
	out, err := translator.Translate(callCtx, text, source, target)
	if err == nil && strings.TrimSpace(out) == "" {
		err = translate.ErrEmptyTranslation
	}
	if err != nil {
		return fail[string](StageTranslate, HardFailure, provider.Wrap(translator.Name(), err))
	}
	applogger.ForProvider(logger, StageTranslate, translator.Name()).Debug("translation done",
		zap.Duration("elapsed", time.Since(started)),
	)
	return succeed(strings.TrimSpace(out))
}

func (r *run) synthesize(ctx context.Context, logger *zap.Logger, text, lang string) Outcome[*tts.Result] {
	speaker := r.providers.TTSFor(r.cfg)
	callCtx, cancel := withTimeout(ctx, r.cfg)
	defer cancel()

	started := time.Now()
	res, err := speaker.Synthesize(callCtx, text, lang, r.cfg.TTS.VoiceHint)
	switch {
	case err != nil:
		return fail[*tts.Result](StageSynthesize, SoftFailure, provider.Wrap(speaker.Name(), err))
	case res == nil || res.NeedsFallback:
		return fail[*tts.Result](StageSynthesize, SoftFailure, provider.Wrap(speaker.Name(), errors.New("provider requested client-side speech")))
	case len(res.Audio) == 0:
		return fail[*tts.Result](StageSynthesize, SoftFailure, provider.Wrap(speaker.Name(), tts.ErrEmptyAudio))
	}
	applogger.ForProvider(logger, StageSynthesize, speaker.Name()).Debug("speech synthesized",
		zap.String("voice", res.Voice),
		zap.Int("bytes", len(res.Audio)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return succeed(res)
}

func (p *Pipeline) transcribe(ctx context.Context, cfg config.Config, logger *zap.Logger, audio []byte, lang string) Outcome[stt.Result] {
	primary := p.providers.STTFor(cfg)
	first := transcribeOnce(ctx, cfg, primary, audio, lang)
	if first.OK() {
		applogger.ForProvider(logger, StageTranscribe, primary.Name()).Debug("speech recognized", zap.Int("chars", len(first.Value.Text)))
		return first
	}

	fallback, ok := p.providers.FallbackSTTFor(cfg)
	if !ok || fallback == nil {
		return escalate(first)
	}
	applogger.ForProvider(logger, StageTranscribe, primary.Name()).Warn("primary stt failed, trying fallback",
		zap.String("fallback", fallback.Name()),
		zap.Stringer("kind", first.Kind),
		zap.Bool("retryable", retryable(first.Err)),
		zap.Error(first.Err),
	)

	second := transcribeOnce(ctx, cfg, fallback, audio, lang)
	if !second.OK() {
		return escalate(first, second)
	}
	applogger.ForProvider(logger, StageTranscribe, fallback.Name()).Debug("speech recognized by fallback", zap.Int("chars", len(second.Value.Text)))
	return second
}

// transcribeOnce makes one recognition attempt. Failures are soft: the caller
// decides whether another engine gets a turn.
func transcribeOnce(ctx context.Context, cfg config.Config, engine stt.Provider, audio []byte, lang string) Outcome[stt.Result] {
	callCtx, cancel := withTimeout(ctx, cfg)
	defer cancel()

	res, err := engine.Transcribe(callCtx, audio, lang)
	if err != nil {
		return fail[stt.Result](StageTranscribe, SoftFailure, provider.Wrap(engine.Name(), err))
	}
	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" {
		return fail[stt.Result](StageTranscribe, SoftFailure, provider.Wrap(engine.Name(), ErrEmptyTranscript))
	}
	if res.Provider == "" {
		res.Provider = engine.Name()
	}
	return succeed(res)
}

// retryable reports whether a vendor rejected the call for rate or capacity
// reasons rather than for the request itself.
func retryable(err error) bool {
	var apiErr *provider.APIError
	return errors.As(err, &apiErr) && apiErr.IsRetryable()
}

func withTimeout(ctx context.Context, cfg config.Config) (context.Context, context.CancelFunc) {
	if cfg.Pipeline.ProviderTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Pipeline.ProviderTimeout)
}

func (r *run) errored(kind protocol.ErrorKind, message string, err error) Result {
	r.advance(StateErrored)
	return Result{
		MessageID: r.id,
		SenderID:  r.sender,
		Frame:     protocol.NewError(kind, message),
		History:   r.machine.History(),
		Err:       err,
	}
}

func (r *run) advance(next State) {
	if err := r.machine.Transition(next); err != nil {
		r.logger.Error("pipeline state error", zap.Error(err))
	}
}

func (r *run) emit(frame protocol.Envelope) {
	if r.notify != nil {
		r.notify(frame)
	}
}

// clientMessage strips the stage prefix from validation failures.
func clientMessage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) && stageErr.Err != nil {
		return stageErr.Err.Error()
	}
	return err.Error()
}

func stateNames(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
