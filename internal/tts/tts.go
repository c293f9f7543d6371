// Package tts synthesizes speech for translated text.
package tts

import (
	"context"
	"errors"
)

// Engine names accepted by configuration.
const (
	NameElevenLabs = "elevenlabs"
	NameOpenAI     = "openai"
)

var (
	// ErrEmptyText is returned when there is nothing to speak.
	ErrEmptyText = errors.New("tts: empty text")
	// ErrEmptyAudio is returned when the vendor answers 200 with no body.
	ErrEmptyAudio = errors.New("tts: empty audio")
)

// Result is synthesized speech. NeedsFallback asks the client to speak the
// text itself; Audio is then empty.
type Result struct {
	Audio         []byte
	ContentType   string
	NeedsFallback bool
	Voice         string
	Provider      string
}

// Provider synthesizes speech.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, lang string, voiceHint string) (*Result, error)
}
