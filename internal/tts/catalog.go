package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/saker-ai/voice-relay/internal/provider"
)

const catalogTimeout = 10 * time.Second

// Voice is one entry of the ElevenLabs voice catalog.
type Voice struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

// voiceCatalog caches /voices per account. Concurrent misses share one request.
type voiceCatalog struct {
	group singleflight.Group

	mu     sync.RWMutex
	voices map[string][]Voice
}

var sharedCatalog = newVoiceCatalog()

func newVoiceCatalog() *voiceCatalog {
	return &voiceCatalog{voices: make(map[string][]Voice)}
}

// Voices returns the cached catalog, fetching it once per base URL and key.
func (c *voiceCatalog) Voices(ctx context.Context, client *http.Client, baseURL string, apiKey string) ([]Voice, error) {
	key := baseURL + "|" + apiKey

	c.mu.RLock()
	voices, ok := c.voices[key]
	c.mu.RUnlock()
	if ok {
		return voices, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogTimeout)
		defer cancel()

		voices, err := fetchVoices(fetchCtx, client, baseURL, apiKey)
		if err != nil {
			var apiErr *provider.APIError
			if !errors.As(err, &apiErr) || !apiErr.IsUnauthorized() {
				return nil, err
			}
			// A rejected key will not start working; remember the empty catalog.
			voices = []Voice{}
		}
		c.mu.Lock()
		c.voices[key] = voices
		c.mu.Unlock()
		return voices, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Voice), nil
}

func fetchVoices(ctx context.Context, client *http.Client, baseURL string, apiKey string) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ReadAPIError(NameElevenLabs, resp)
	}

	var payload struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	if payload.Voices == nil {
		payload.Voices = []Voice{}
	}
	return payload.Voices, nil
}
