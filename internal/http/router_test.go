package http

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/saker-ai/voice-relay/internal/config"
	"github.com/saker-ai/voice-relay/internal/pipeline"
	"github.com/saker-ai/voice-relay/internal/selector"
	"github.com/saker-ai/voice-relay/internal/stt"
	"github.com/saker-ai/voice-relay/internal/translate"
	"github.com/saker-ai/voice-relay/internal/tts"
)

type fakeCounter int

func (f fakeCounter) Count() int { return int(f) }

type fixture struct {
	router     *gin.Engine
	store      *config.Store
	primary    *stt.Mock
	fallback   *stt.Mock
	translator *translate.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		primary:    stt.NewMock(stt.NameWhisper, "hello"),
		fallback:   stt.NewMock(stt.NameElevenLabs, "hello again"),
		translator: &translate.Mock{NameValue: translate.NameLibre},
	}
	f.store = config.NewStore(config.Config{
		ConfigFile: "/etc/relay/conf.yaml",
		STT:        config.STTConfig{Provider: stt.NameWhisper, FallbackEnabled: true},
		TTS:        config.TTSConfig{Provider: tts.NameElevenLabs},
		Translate: config.TranslateConfig{
			Provider: translate.NameLibre,
			OpenAI:   config.EndpointConfig{APIKey: "sk-secret"},
		},
		Pipeline: config.PipelineConfig{ProviderTimeout: time.Second, MaxAudioBytes: 64},
	})
	factories := selector.Factories{
		STT: map[string]selector.Factory[stt.Provider]{
			stt.NameWhisper:    func(config.Config) stt.Provider { return f.primary },
			stt.NameElevenLabs: func(config.Config) stt.Provider { return f.fallback },
		},
		TTS: map[string]selector.Factory[tts.Provider]{
			tts.NameElevenLabs: func(config.Config) tts.Provider { return tts.NewMock(tts.NameElevenLabs) },
		},
		Translate: map[string]selector.Factory[translate.Translator]{
			translate.NameLibre: func(config.Config) translate.Translator { return f.translator },
		},
	}
	sel := selector.New(f.store, factories, nil)
	f.router = NewRouter(Dependencies{
		Config:      f.store,
		Connections: fakeCounter(3),
		Selector:    sel,
		Transcriber: pipeline.New(sel, f.store, nil),
		Voices:      tts.DefaultVoiceTable(),
	}, nil, nil)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return body
}

func uploadRequest(t *testing.T, audio []byte, language string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(audio); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if language != "" {
		if err := w.WriteField("language", language); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stt/transcribe", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" || body["service"] != ServiceName {
		t.Fatalf("body=%v", body)
	}
	if body["connections"] != float64(3) {
		t.Fatalf("connections=%v, want 3", body["connections"])
	}
}

func TestDebugConfigHidesSecrets(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/debug/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "sk-secret") {
		t.Fatalf("body leaks api key: %s", rec.Body.String())
	}
	body := decodeBody(t, rec)
	providers, _ := body["providers"].(map[string]any)
	if providers["stt"] != "whisper" || providers["stt_fallback"] != "elevenlabs" {
		t.Fatalf("providers=%v", providers)
	}
	pipelineInfo, _ := body["pipeline"].(map[string]any)
	if pipelineInfo["provider_timeout"] != "1s" {
		t.Fatalf("pipeline=%v", pipelineInfo)
	}
	creds, _ := body["credentials"].(map[string]any)
	if creds["translate_openai"] != true || creds["gemini"] != false {
		t.Fatalf("credentials=%v", creds)
	}
}

func TestCapabilitiesFollowConfig(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/capabilities/providers", nil))
	body := decodeBody(t, rec)
	sttInfo, _ := body["stt"].(map[string]any)
	if sttInfo["primary"] != "whisper" || sttInfo["fallback"] != "elevenlabs" {
		t.Fatalf("stt=%v", sttInfo)
	}

	next := f.store.Current()
	next.STT.FallbackEnabled = false
	f.store.Update(next)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/capabilities/providers", nil))
	body = decodeBody(t, rec)
	sttInfo, _ = body["stt"].(map[string]any)
	if sttInfo["fallback"] != nil {
		t.Fatalf("fallback=%v after disabling, want null", sttInfo["fallback"])
	}
}

func TestCapabilitiesLanguages(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/capabilities/languages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	ttsInfo, _ := body["tts"].(map[string]any)
	langs, _ := ttsInfo["languages"].([]any)
	if len(langs) == 0 {
		t.Fatalf("tts languages empty: %v", body)
	}
	first, _ := langs[0].(map[string]any)
	if first["code"] != "en" {
		t.Fatalf("first tts language=%v, want en", first)
	}
}

func TestSTTLanguages(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/stt/languages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["provider"] != stt.NameWhisper {
		t.Fatalf("provider=%v, want whisper", body["provider"])
	}
	langs, _ := body["languages"].([]any)
	want := len(tts.DefaultVoiceTable().Codes())
	if len(langs) == 0 || len(langs) != want || body["count"] != float64(want) {
		t.Fatalf("languages=%d count=%v, want %d", len(langs), body["count"], want)
	}

	next := f.store.Current()
	next.STT.Provider = stt.NameElevenLabs
	f.store.Update(next)
	body = decodeBody(t, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/stt/languages", nil)))
	if body["provider"] != stt.NameElevenLabs {
		t.Fatalf("provider after update=%v, want elevenlabs", body["provider"])
	}
}

func TestTranslateEndpoint(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{"text":"hello","target":"fr"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["translatedText"] != "[fr] hello" || body["source"] != "en" || body["target"] != "fr" {
		t.Fatalf("body=%v", body)
	}
}

func TestTranslateEndpointErrors(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{"text":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	if rec := f.do(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty text status=%d, want 400", rec.Code)
	}

	f.translator.TranslateFunc = func(ctx context.Context, text, source, target string) (string, error) {
		return "", errors.New("upstream down")
	}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("provider failure status=%d, want 502", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "upstream down") {
		t.Fatalf("provider detail leaked: %s", rec.Body.String())
	}
}

func TestTranscribeEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(uploadRequest(t, []byte("RIFF0000WAVE"), "en-US"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["text"] != "hello" || body["language"] != "en" || body["provider"] != "whisper" {
		t.Fatalf("body=%v", body)
	}
}

func TestTranscribeEndpointUsesFallback(t *testing.T) {
	f := newFixture(t)
	f.primary.TranscribeFunc = func(ctx context.Context, audio []byte, lang string) (stt.Result, error) {
		return stt.Result{}, errors.New("whisper down")
	}
	rec := f.do(uploadRequest(t, []byte("RIFF0000WAVE"), ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["text"] != "hello again" || body["provider"] != "elevenlabs" {
		t.Fatalf("body=%v", body)
	}
	if f.fallback.Calls() != 1 {
		t.Fatalf("fallback calls=%d, want 1", f.fallback.Calls())
	}
}

func TestTranscribeEndpointErrors(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(uploadRequest(t, bytes.Repeat([]byte("a"), 65), "")); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversize status=%d, want 413", rec.Code)
	}
	if rec := f.do(uploadRequest(t, nil, "")); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty status=%d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stt/transcribe", strings.NewReader("nope"))
	req.Header.Set("Content-Type", "text/plain")
	if rec := f.do(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing file status=%d, want 400", rec.Code)
	}

	f.primary.TranscribeFunc = func(ctx context.Context, audio []byte, lang string) (stt.Result, error) {
		return stt.Result{}, errors.New("down")
	}
	f.fallback.TranscribeFunc = f.primary.TranscribeFunc
	if rec := f.do(uploadRequest(t, []byte("RIFF"), "")); rec.Code != http.StatusBadGateway {
		t.Fatalf("hard failure status=%d, want 502", rec.Code)
	}
}
