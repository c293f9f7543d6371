package tts

import (
	"context"
	"sync"
)

// Mock implements Provider for tests.
type Mock struct {
	NameValue      string
	SynthesizeFunc func(ctx context.Context, text string, lang string, voiceHint string) (*Result, error)

	mu    sync.Mutex
	texts []string
}

// NewMock returns a mock that answers with fixed mp3 bytes.
func NewMock(name string) *Mock {
	return &Mock{
		NameValue: name,
		SynthesizeFunc: func(ctx context.Context, text string, lang string, voiceHint string) (*Result, error) {
			return &Result{Audio: []byte("ID3-mock-" + text), ContentType: "audio/mpeg", Provider: name}, nil
		},
	}
}

// Name returns the configured name.
func (m *Mock) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// Synthesize records the call and delegates to SynthesizeFunc.
func (m *Mock) Synthesize(ctx context.Context, text string, lang string, voiceHint string) (*Result, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.SynthesizeFunc == nil {
		return &Result{NeedsFallback: true, Provider: m.Name()}, nil
	}
	return m.SynthesizeFunc(ctx, text, lang, voiceHint)
}

// Calls returns how many times Synthesize ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.texts)
}

// Texts returns the texts passed to Synthesize.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
