package tts

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed voices.yaml
var voicesYAML []byte

// Language lists the preferred voices for one language.
type Language struct {
	Code   string   `yaml:"code" json:"code"`
	Name   string   `yaml:"name" json:"name"`
	Voices []string `yaml:"voices" json:"voices"`
}

// VoiceTable maps languages to preferred voice names.
type VoiceTable struct {
	FallbackVoiceID string     `yaml:"fallback_voice_id"`
	DefaultLanguage string     `yaml:"default_language"`
	Languages       []Language `yaml:"languages"`
}

var (
	defaultTable     VoiceTable
	defaultTableErr  error
	defaultTableOnce sync.Once
)

// DefaultVoiceTable returns the embedded voice table.
func DefaultVoiceTable() VoiceTable {
	defaultTableOnce.Do(func() {
		defaultTable, defaultTableErr = ParseVoiceTable(voicesYAML)
	})
	if defaultTableErr != nil {
		panic(fmt.Sprintf("tts: embedded voices.yaml: %v", defaultTableErr))
	}
	return defaultTable
}

// ParseVoiceTable decodes a YAML voice table.
func ParseVoiceTable(data []byte) (VoiceTable, error) {
	var table VoiceTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return VoiceTable{}, err
	}
	if table.FallbackVoiceID == "" {
		return VoiceTable{}, fmt.Errorf("fallback_voice_id is required")
	}
	if table.DefaultLanguage == "" {
		table.DefaultLanguage = "en"
	}
	return table, nil
}

// Preferred returns the voice names for lang, or the default language's list.
func (t VoiceTable) Preferred(lang string) []string {
	code := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	var fallback []string
	for _, l := range t.Languages {
		if l.Code == code {
			return l.Voices
		}
		if l.Code == t.DefaultLanguage {
			fallback = l.Voices
		}
	}
	return fallback
}

// Codes returns the language codes in table order.
func (t VoiceTable) Codes() []string {
	codes := make([]string, 0, len(t.Languages))
	for _, l := range t.Languages {
		codes = append(codes, l.Code)
	}
	return codes
}
