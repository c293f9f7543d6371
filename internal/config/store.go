package config

import (
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Store holds the live configuration snapshot. Readers always see a complete Config.
type Store struct {
	current atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []func(Config)
	watching  bool
}

// NewStore wraps an initial snapshot.
func NewStore(cfg Config) *Store {
	s := &Store{}
	s.current.Store(&cfg)
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() Config {
	return *s.current.Load()
}

// Update swaps in a new snapshot and notifies listeners.
func (s *Store) Update(cfg Config) {
	s.current.Store(&cfg)

	s.mu.Lock()
	listeners := append([]func(Config){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

// OnChange registers fn to run after every Update.
func (s *Store) OnChange(fn func(Config)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Watch reloads the snapshot whenever the backing config file changes.
// It returns false when the configuration came from defaults and env only.
func (s *Store) Watch(logger *zap.Logger) bool {
	path := s.Current().ConfigFile
	if path == "" {
		return false
	}

	s.mu.Lock()
	if s.watching {
		s.mu.Unlock()
		return true
	}
	s.watching = true
	s.mu.Unlock()

	v := viper.New()
	v.SetConfigFile(path)
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := LoadConfig(path)
		if err != nil {
			if logger != nil {
				logger.Warn("config reload failed", zap.String("file", e.Name), zap.Error(err))
			}
			return
		}
		s.Update(cfg)
		if logger != nil {
			logger.Info("config reloaded",
				zap.String("file", e.Name),
				zap.String("stt_provider", cfg.STT.Provider),
				zap.Bool("stt_fallback_enabled", cfg.STT.FallbackEnabled),
				zap.String("tts_provider", cfg.TTS.Provider),
				zap.String("translate_provider", cfg.Translate.Provider),
			)
		}
	})
	v.WatchConfig()
	return true
}
