package translate

import (
	"context"
	"sync"
)

// Call records one Translate invocation.
type Call struct {
	Text   string
	Source string
	Target string
}

// Mock implements Translator for tests. Without TranslateFunc it tags text with the target code.
type Mock struct {
	NameValue     string
	TranslateFunc func(ctx context.Context, text string, source string, target string) (string, error)

	mu    sync.Mutex
	calls []Call
}

// Name returns the configured name.
func (m *Mock) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// Translate records the call and delegates to TranslateFunc.
func (m *Mock) Translate(ctx context.Context, text string, source string, target string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Text: text, Source: source, Target: target})
	m.mu.Unlock()
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, source, target)
	}
	return "[" + target + "] " + text, nil
}

// Calls returns the recorded invocations.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}
