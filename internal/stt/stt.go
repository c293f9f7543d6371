// Package stt converts speech audio to text through one of several vendor engines.
package stt

import (
	"context"
	"errors"
	"strings"
)

// Engine names accepted by configuration.
const (
	NameWhisper    = "whisper"
	NameElevenLabs = "elevenlabs"
	NameOpenAI     = "openai"
)

var (
	// ErrEmptyAudio is returned when Transcribe is called without audio.
	ErrEmptyAudio = errors.New("stt: empty audio")
	// ErrNoEndpoint is returned when an engine has no URL configured.
	ErrNoEndpoint = errors.New("stt: endpoint required")
)

// Result is a transcription.
type Result struct {
	Text     string
	Language string
	Provider string
}

// Provider transcribes audio. An empty Text with a nil error means nothing was recognized.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, lang string) (Result, error)
}

// LanguageCode reduces a locale such as "en-US" to its two letter code.
func LanguageCode(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if len(lang) > 2 {
		lang = lang[:2]
	}
	return lang
}
