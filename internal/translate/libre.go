package translate

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/saker-ai/voice-relay/internal/provider"
)

const defaultLibreURL = "https://libretranslate.com/translate"

// LibreConfig configures the LibreTranslate client.
type LibreConfig struct {
	URL    string
	APIKey string
	Client *http.Client
}

// Libre translates through a LibreTranslate /translate endpoint.
type Libre struct {
	cfg    LibreConfig
	client *http.Client
}

// NewLibre creates a LibreTranslate client.
func NewLibre(cfg LibreConfig) *Libre {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		cfg.URL = defaultLibreURL
	}
	return &Libre{cfg: cfg, client: provider.ClientOr(cfg.Client)}
}

// Name returns the engine name.
func (l *Libre) Name() string { return NameLibre }

// Translate posts {q, source, target, format} to the configured URL.
func (l *Libre) Translate(ctx context.Context, text string, source string, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", provider.Wrap(NameLibre, ErrEmptyText)
	}

	payload := map[string]string{
		"q":      text,
		"source": libreCode(source),
		"target": libreCode(target),
		"format": "text",
	}
	if l.cfg.APIKey != "" {
		payload["api_key"] = l.cfg.APIKey
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", provider.Wrap(NameLibre, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", provider.Wrap(NameLibre, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", provider.Wrap(NameLibre, fmt.Errorf("translate request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", provider.ReadAPIError(NameLibre, resp)
	}

	var out struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", provider.Wrap(NameLibre, fmt.Errorf("decode response: %w", err))
	}
	translated := strings.TrimSpace(out.TranslatedText)
	if translated == "" {
		return "", provider.Wrap(NameLibre, ErrEmptyTranslation)
	}
	return translated, nil
}

// libreCode maps locales to LibreTranslate codes; Chinese keeps its script suffix.
func libreCode(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "auto"
	}
	switch lang {
	case "zh-tw", "zh-hant", "zh_tw":
		return "zt"
	}
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}
