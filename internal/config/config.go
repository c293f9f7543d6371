package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	appdefaults "github.com/saker-ai/voice-relay/config"

	"github.com/saker-ai/voice-relay/internal/logger"
	"github.com/spf13/viper"
)

const envPrefix = "relay"

// Credentials holds shared vendor keys used when a provider section leaves its own key empty.
type Credentials struct {
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	ElevenLabsAPIKey string `mapstructure:"elevenlabs_api_key"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
}

// EndpointConfig describes an HTTP vendor endpoint.
type EndpointConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// WhisperConfig points at a faster-whisper sidecar.
type WhisperConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// STTConfig selects the speech recognition engines.
type STTConfig struct {
	Provider         string         `mapstructure:"provider"`
	FallbackEnabled  bool           `mapstructure:"fallback_enabled"`
	FallbackProvider string         `mapstructure:"fallback_provider"`
	Whisper          WhisperConfig  `mapstructure:"whisper"`
	ElevenLabs       EndpointConfig `mapstructure:"elevenlabs"`
	OpenAI           EndpointConfig `mapstructure:"openai"`
}

// OpenAITTSConfig adds the voice to the OpenAI speech endpoint.
type OpenAITTSConfig struct {
	EndpointConfig `mapstructure:",squash"`
	Voice          string `mapstructure:"voice"`
}

// TTSConfig selects the speech synthesis engine.
type TTSConfig struct {
	Provider   string          `mapstructure:"provider"`
	VoiceHint  string          `mapstructure:"voice_hint"`
	ElevenLabs EndpointConfig  `mapstructure:"elevenlabs"`
	OpenAI     OpenAITTSConfig `mapstructure:"openai"`
}

// LibreConfig points at a LibreTranslate instance.
type LibreConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// TranslateConfig selects the translation engine.
type TranslateConfig struct {
	Provider string         `mapstructure:"provider"`
	Libre    LibreConfig    `mapstructure:"libre"`
	OpenAI   EndpointConfig `mapstructure:"openai"`
	Gemini   EndpointConfig `mapstructure:"gemini"`
}

// PipelineConfig bounds message processing.
type PipelineConfig struct {
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	MaxAudioBytes   int           `mapstructure:"max_audio_bytes"`
}

// Config represents a config.
type Config struct {
	RootDir     string          `mapstructure:"-"`
	ConfigFile  string          `mapstructure:"-"`
	HTTPAddr    string          `mapstructure:"http_addr"`
	Host        string          `mapstructure:"host"`
	Port        int             `mapstructure:"port"`
	TLSCertPath string          `mapstructure:"tls_cert_path"`
	TLSKeyPath  string          `mapstructure:"tls_key_path"`
	TLSRequired bool            `mapstructure:"tls_required"`
	TLSDisable  bool            `mapstructure:"tls_disable"`
	Credentials Credentials     `mapstructure:"credentials"`
	STT         STTConfig       `mapstructure:"stt"`
	TTS         TTSConfig       `mapstructure:"tts"`
	Translate   TranslateConfig `mapstructure:"translate"`
	Pipeline    PipelineConfig  `mapstructure:"pipeline"`
	Log         logger.Config   `mapstructure:"log"`
}

// Load reads embedded defaults, then conf.yaml from the root dir, then the environment.
func Load() (Config, error) {
	rootDir, err := resolveRootDir()
	if err != nil {
		return Config{}, err
	}

	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	v.SetConfigName("conf")
	v.AddConfigPath(rootDir)

	configFile := ""
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	} else {
		configFile = v.ConfigFileUsed()
	}

	return decode(v, rootDir, configFile)
}

// LoadConfig loads an explicit config file; an empty path falls back to Load.
func LoadConfig(configPath string) (Config, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		return Load()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, err
	}

	rootDir := strings.TrimSpace(os.Getenv("RELAY_ROOT_DIR"))
	if rootDir == "" {
		rootDir = filepath.Dir(absPath)
		if filepath.Base(rootDir) == "config" {
			rootDir = filepath.Dir(rootDir)
		}
	}

	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	v.SetConfigFile(absPath)
	if err := v.MergeInConfig(); err != nil {
		return Config{}, err
	}

	return decode(v, rootDir, absPath)
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewReader(appdefaults.Default)); err != nil {
		return nil, fmt.Errorf("load embedded config: %w", err)
	}

	v.SetDefault("http_addr", "")
	v.SetDefault("port", 8000)
	v.SetDefault("tls_required", false)
	v.SetDefault("tls_disable", true)
	v.SetDefault("stt.provider", "whisper")
	v.SetDefault("stt.fallback_enabled", true)
	v.SetDefault("tts.provider", "elevenlabs")
	v.SetDefault("translate.provider", "libre")
	v.SetDefault("pipeline.provider_timeout", 20*time.Second)
	v.SetDefault("pipeline.max_audio_bytes", 10*1024*1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.stdout", true)
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "./data/logs")
	v.SetDefault("log.file.name", "voice-relay.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Vendor SDK variable names are honoured too.
	_ = v.BindEnv("credentials.openai_api_key", "RELAY_CREDENTIALS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("credentials.elevenlabs_api_key", "RELAY_CREDENTIALS_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY")
	_ = v.BindEnv("credentials.gemini_api_key", "RELAY_CREDENTIALS_GEMINI_API_KEY", "GEMINI_API_KEY")

	return v, nil
}

func decode(v *viper.Viper, rootDir string, configFile string) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.RootDir = rootDir
	cfg.ConfigFile = configFile
	deriveHTTPAddr(&cfg)
	derivePaths(&cfg)
	deriveCredentials(&cfg)
	normalize(&cfg)

	return cfg, nil
}

func deriveHTTPAddr(cfg *Config) {
	if cfg.HTTPAddr != "" {
		return
	}
	port := cfg.Port
	if port == 0 {
		port = 8000
	}
	if cfg.Host == "" {
		cfg.HTTPAddr = fmt.Sprintf(":%d", port)
		return
	}
	cfg.HTTPAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
}

func deriveCredentials(cfg *Config) {
	creds := cfg.Credentials
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = src
		}
	}
	fill(&cfg.STT.ElevenLabs.APIKey, creds.ElevenLabsAPIKey)
	fill(&cfg.STT.OpenAI.APIKey, creds.OpenAIAPIKey)
	fill(&cfg.TTS.ElevenLabs.APIKey, creds.ElevenLabsAPIKey)
	fill(&cfg.TTS.OpenAI.APIKey, creds.OpenAIAPIKey)
	fill(&cfg.Translate.OpenAI.APIKey, creds.OpenAIAPIKey)
	fill(&cfg.Translate.Gemini.APIKey, creds.GeminiAPIKey)
}

func normalize(cfg *Config) {
	cfg.STT.Provider = strings.ToLower(strings.TrimSpace(cfg.STT.Provider))
	cfg.STT.FallbackProvider = strings.ToLower(strings.TrimSpace(cfg.STT.FallbackProvider))
	cfg.TTS.Provider = strings.ToLower(strings.TrimSpace(cfg.TTS.Provider))
	cfg.Translate.Provider = strings.ToLower(strings.TrimSpace(cfg.Translate.Provider))
	if cfg.Pipeline.ProviderTimeout <= 0 {
		cfg.Pipeline.ProviderTimeout = 20 * time.Second
	}
	if cfg.Pipeline.MaxAudioBytes <= 0 {
		cfg.Pipeline.MaxAudioBytes = 10 * 1024 * 1024
	}
}

func resolveRootDir() (string, error) {
	if root := strings.TrimSpace(os.Getenv("RELAY_ROOT_DIR")); root != "" {
		return filepath.Abs(root)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for i := 0; i < 6; i++ {
		if fileExists(filepath.Join(dir, "conf.yaml")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return wd, nil
}

func derivePaths(cfg *Config) {
	cfg.TLSCertPath = resolvePath(cfg.RootDir, cfg.TLSCertPath, filepath.Join("certs", "server.crt"))
	cfg.TLSKeyPath = resolvePath(cfg.RootDir, cfg.TLSKeyPath, filepath.Join("certs", "server.key"))
	if cfg.Log.File.Path != "" && !filepath.IsAbs(cfg.Log.File.Path) {
		cfg.Log.File.Path = filepath.Join(cfg.RootDir, cfg.Log.File.Path)
	}
}

func resolvePath(rootDir string, configured string, fallback string) string {
	path := strings.TrimSpace(configured)
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
