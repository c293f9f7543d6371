package stt

import (
	"context"
	"sync"
)

// Mock implements Provider for tests. TranscribeFunc defaults to a fixed transcript.
type Mock struct {
	NameValue      string
	TranscribeFunc func(ctx context.Context, audio []byte, lang string) (Result, error)

	mu    sync.Mutex
	calls int
}

// NewMock returns a mock that transcribes every input as text.
func NewMock(name string, text string) *Mock {
	return &Mock{
		NameValue: name,
		TranscribeFunc: func(ctx context.Context, audio []byte, lang string) (Result, error) {
			return Result{Text: text, Language: LanguageCode(lang), Provider: name}, nil
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

// Transcribe records the call and delegates to TranscribeFunc.
func (m *Mock) Transcribe(ctx context.Context, audio []byte, lang string) (Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.TranscribeFunc == nil {
		return Result{Provider: m.Name()}, nil
	}
	return m.TranscribeFunc(ctx, audio, lang)
}

// Calls returns how many times Transcribe ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
