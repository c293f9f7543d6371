// Package runtime assembles the relay: configuration, logging, provider
// selection, the message pipeline and the HTTP server.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/saker-ai/voice-relay/internal/config"
	apphttp "github.com/saker-ai/voice-relay/internal/http"
	applogger "github.com/saker-ai/voice-relay/internal/logger"
	"github.com/saker-ai/voice-relay/internal/pipeline"
	"github.com/saker-ai/voice-relay/internal/registry"
	"github.com/saker-ai/voice-relay/internal/selector"
	"github.com/saker-ai/voice-relay/internal/tts"
	"github.com/saker-ai/voice-relay/internal/ws"
)

// Server represents a server.
type Server struct {
	store    *config.Store
	logger   *zap.Logger
	registry *registry.Registry
	selector *selector.Selector
	server   *http.Server
}

// New loads configuration from configPath (or the default search path) and
// builds a Server with the vendor provider clients.
func New(configPath string) (*Server, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load relay config: %w", err)
	}

	root, err := applogger.New(cfg.Log, apphttp.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("build relay logger: %w", err)
	}
	logger := root.Logger
	logger.Info("relay logger configured",
		zap.Stringer("level", root.Level()),
		zap.String("format", cfg.Log.Format),
		zap.Bool("stdout", cfg.Log.Stdout),
		zap.Bool("file_enabled", cfg.Log.File.Enabled),
		zap.String("file_path", cfg.Log.File.Path),
	)
	logger.Info("relay config loaded",
		zap.String("config_path", configPath),
		zap.String("config_file", cfg.ConfigFile),
		zap.String("root_dir", cfg.RootDir),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	srv := NewWithFactories(cfg, selector.DefaultFactories(logger), logger)
	srv.store.OnChange(func(next config.Config) {
		if root.SetLevel(next.Log.Level) {
			logger.Info("log level changed", zap.Stringer("level", root.Level()))
		}
	})
	if srv.store.Watch(logger) {
		logger.Info("watching config file", zap.String("path", cfg.ConfigFile))
	}
	return srv, nil
}

// NewWithFactories builds a Server around cfg using the given provider constructors.
func NewWithFactories(cfg config.Config, factories selector.Factories, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := config.NewStore(cfg)
	reg := registry.New(logger)
	sel := selector.New(store, factories, logger)
	pipe := pipeline.New(sel, store, logger)

	store.OnChange(func(next config.Config) {
		active := sel.Active()
		logger.Info("providers resolved",
			zap.String("stt", active.STT),
			zap.String("stt_fallback", active.STTFallback),
			zap.Bool("stt_fallback_enabled", active.FallbackEnabled),
			zap.String("tts", active.TTS),
			zap.String("translate", active.Translate),
			zap.Duration("provider_timeout", next.Pipeline.ProviderTimeout),
		)
	})

	wsHandler := ws.NewHandler(logger, reg, pipe, store)
	router := apphttp.NewRouter(apphttp.Dependencies{
		Config:      store,
		Connections: reg,
		Selector:    sel,
		Transcriber: pipe,
		Voices:      tts.DefaultVoiceTable(),
	}, wsHandler, logger)

	return &Server{
		store:    store,
		logger:   logger,
		registry: reg,
		selector: sel,
		server: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: router,
		},
	}
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	if s == nil || s.server == nil {
		return nil
	}

	err := listen(s.server, s.store.Current(), s.logger)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	if s == nil || s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Logger returns the server logger.
func (s *Server) Logger() *zap.Logger {
	return s.logger
}

// Config returns the live configuration store.
func (s *Server) Config() *config.Store {
	return s.store
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return ignoreServerClosed(s.server.Shutdown(ctx))
}

func ignoreServerClosed(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
