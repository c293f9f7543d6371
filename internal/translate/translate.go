// Package translate turns text from one language into another.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Engine names accepted by configuration.
const (
	NameLibre  = "libre"
	NameOpenAI = "openai"
	NameGemini = "gemini"
)

var (
	// ErrEmptyText is returned when there is nothing to translate.
	ErrEmptyText = errors.New("translate: empty text")
	// ErrEmptyTranslation is returned when the engine answered with no text.
	ErrEmptyTranslation = errors.New("translate: empty translation")
)

// Translator translates text between two language codes.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text string, source string, target string) (string, error)
}

func instruction(source string, target string) string {
	return fmt.Sprintf(
		"You are a translation engine. Translate the user's message from %s to %s. "+
			"Reply with the translation only, without quotes, notes or explanations.",
		languageLabel(source), languageLabel(target))
}

func languageLabel(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "auto") {
		return "the detected language"
	}
	return code
}
