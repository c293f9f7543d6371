package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	t.Setenv("RELAY_ROOT_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.STT.Provider != "whisper" {
		t.Fatalf("stt.provider=%q, want whisper", cfg.STT.Provider)
	}
	if !cfg.STT.FallbackEnabled {
		t.Fatal("stt.fallback_enabled=false, want true")
	}
	if cfg.TTS.Provider != "elevenlabs" {
		t.Fatalf("tts.provider=%q, want elevenlabs", cfg.TTS.Provider)
	}
	if cfg.Translate.Provider != "libre" {
		t.Fatalf("translate.provider=%q, want libre", cfg.Translate.Provider)
	}
	if cfg.Translate.Libre.URL != "https://libretranslate.com/translate" {
		t.Fatalf("libre url=%q", cfg.Translate.Libre.URL)
	}
	if cfg.Pipeline.ProviderTimeout != 20*time.Second {
		t.Fatalf("provider_timeout=%v, want 20s", cfg.Pipeline.ProviderTimeout)
	}
	if cfg.Pipeline.MaxAudioBytes != 10*1024*1024 {
		t.Fatalf("max_audio_bytes=%d, want %d", cfg.Pipeline.MaxAudioBytes, 10*1024*1024)
	}
	if cfg.HTTPAddr != "0.0.0.0:8000" {
		t.Fatalf("http_addr=%q, want 0.0.0.0:8000", cfg.HTTPAddr)
	}
	if cfg.ConfigFile != "" {
		t.Fatalf("config_file=%q, want empty", cfg.ConfigFile)
	}
}

func TestLoadMergesRootConf(t *testing.T) {
	root := t.TempDir()
	conf := "stt:\n  provider: ElevenLabs\n  fallback_enabled: false\npipeline:\n  provider_timeout: 5s\n"
	if err := os.WriteFile(filepath.Join(root, "conf.yaml"), []byte(conf), 0o644); err != nil {
		t.Fatalf("write conf: %v", err)
	}
	t.Setenv("RELAY_ROOT_DIR", root)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.STT.Provider != "elevenlabs" {
		t.Fatalf("stt.provider=%q, want elevenlabs", cfg.STT.Provider)
	}
	if cfg.STT.FallbackEnabled {
		t.Fatal("stt.fallback_enabled=true, want false")
	}
	if cfg.Pipeline.ProviderTimeout != 5*time.Second {
		t.Fatalf("provider_timeout=%v, want 5s", cfg.Pipeline.ProviderTimeout)
	}
	if cfg.ConfigFile == "" {
		t.Fatal("config_file empty, want conf.yaml path")
	}
	if cfg.STT.Whisper.URL == "" {
		t.Fatal("whisper url lost after merge")
	}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	if err := os.WriteFile(path, []byte("translate:\n  provider: gemini\nport: 9100\nhost: \"\"\n"), 0o644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Translate.Provider != "gemini" {
		t.Fatalf("translate.provider=%q, want gemini", cfg.Translate.Provider)
	}
	if cfg.HTTPAddr != ":9100" {
		t.Fatalf("http_addr=%q, want :9100", cfg.HTTPAddr)
	}
	if cfg.RootDir != dir {
		t.Fatalf("root_dir=%q, want %q", cfg.RootDir, dir)
	}
}

func TestEnvOverridesAndSharedCredentials(t *testing.T) {
	t.Setenv("RELAY_ROOT_DIR", t.TempDir())
	t.Setenv("RELAY_TTS_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-shared")
	t.Setenv("RELAY_STT_OPENAI_API_KEY", "sk-stt")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.TTS.Provider != "openai" {
		t.Fatalf("tts.provider=%q, want openai", cfg.TTS.Provider)
	}
	if cfg.STT.OpenAI.APIKey != "sk-stt" {
		t.Fatalf("stt openai key=%q, want sk-stt", cfg.STT.OpenAI.APIKey)
	}
	if cfg.TTS.OpenAI.APIKey != "sk-shared" {
		t.Fatalf("tts openai key=%q, want sk-shared", cfg.TTS.OpenAI.APIKey)
	}
	if cfg.Translate.OpenAI.APIKey != "sk-shared" {
		t.Fatalf("translate openai key=%q, want sk-shared", cfg.Translate.OpenAI.APIKey)
	}
}

func TestStoreUpdateNotifies(t *testing.T) {
	store := NewStore(Config{STT: STTConfig{Provider: "whisper"}})

	var seen []string
	store.OnChange(func(cfg Config) {
		seen = append(seen, cfg.STT.Provider)
	})

	next := store.Current()
	next.STT.Provider = "openai"
	store.Update(next)

	if got := store.Current().STT.Provider; got != "openai" {
		t.Fatalf("current stt=%q, want openai", got)
	}
	if len(seen) != 1 || seen[0] != "openai" {
		t.Fatalf("listener calls=%v, want [openai]", seen)
	}
}

func TestStoreWatchWithoutFile(t *testing.T) {
	store := NewStore(Config{})
	if store.Watch(nil) {
		t.Fatal("Watch=true without config file, want false")
	}
}
