package runtime

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/saker-ai/voice-relay/internal/config"
)

// ErrTLSUnavailable is returned when tls_required is set but the configured
// certificate or key cannot be used.
var ErrTLSUnavailable = errors.New("tls required but certificate unavailable")

// listen serves plain HTTP or HTTPS depending on the relay's tls_* settings.
func listen(server *http.Server, cfg config.Config, logger *zap.Logger) error {
	tlsCfg, err := serverTLS(cfg, logger)
	if err != nil {
		return err
	}
	if tlsCfg == nil {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		return server.ListenAndServe()
	}
	server.TLSConfig = tlsCfg
	logger.Info("starting https server",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("cert", cfg.TLSCertPath),
	)
	return server.ListenAndServeTLS("", "")
}

// serverTLS loads the configured key pair. A nil config means plain HTTP:
// either TLS is disabled or the pair is missing and not required.
func serverTLS(cfg config.Config, logger *zap.Logger) (*tls.Config, error) {
	if cfg.TLSDisable {
		return nil, nil
	}

	certPath := filepath.Clean(cfg.TLSCertPath)
	keyPath := filepath.Clean(cfg.TLSKeyPath)
	var missing []string
	for _, path := range []string{certPath, keyPath} {
		if !fileExists(path) {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		if cfg.TLSRequired {
			return nil, fmt.Errorf("%w: missing %v", ErrTLSUnavailable, missing)
		}
		logger.Warn("tls certificate missing, serving plain http", zap.Strings("missing", missing))
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		if cfg.TLSRequired {
			return nil, fmt.Errorf("%w: %v", ErrTLSUnavailable, err)
		}
		logger.Warn("tls certificate unusable, serving plain http", zap.Error(err))
		return nil, nil
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
