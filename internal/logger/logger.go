// Package logger builds the relay's zap logger and the child loggers that tag
// lines with the connection, message or provider they belong to.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field keys shared across the relay.
const (
	FieldService      = "service"
	FieldConnectionID = "connection_id"
	FieldMode         = "mode"
	FieldMessageID    = "message_id"
	FieldSenderID     = "sender_id"
	FieldStage        = "stage"
	FieldProvider     = "provider"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

const defaultFileName = "voice-relay.log"

// Config controls log level, format and sinks.
type Config struct {
	Level  string     `mapstructure:"level" yaml:"level"`
	Format string     `mapstructure:"format" yaml:"format"`
	Stdout bool       `mapstructure:"stdout" yaml:"stdout"`
	File   FileConfig `mapstructure:"file" yaml:"file"`
}

// FileConfig configures the rolling file sink.
type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	Name       string `mapstructure:"name" yaml:"name"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Logger is the root logger together with its adjustable level.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New builds the root logger for service. Every line carries the service name.
func New(cfg Config, service string) (*Logger, error) {
	level, _ := ParseLevel(cfg.Level)
	atomic := zap.NewAtomicLevelAt(level)

	sink, err := buildSink(cfg)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(newEncoder(cfg.Format), sink, atomic)

	base := zap.New(core, zap.AddCaller())
	if service != "" {
		base = base.With(zap.String(FieldService, service))
	}
	return &Logger{Logger: base, level: atomic}, nil
}

// Level reports the current minimum level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// SetLevel applies raw when it parses and differs from the current level.
// It reports whether the level changed.
func (l *Logger) SetLevel(raw string) bool {
	next, ok := ParseLevel(raw)
	if !ok || next == l.level.Level() {
		return false
	}
	l.level.SetLevel(next)
	return true
}

// ForConnection tags lines with a websocket connection and its mode.
func ForConnection(base *zap.Logger, connectionID string, mode string) *zap.Logger {
	return nonNil(base).With(
		zap.String(FieldConnectionID, connectionID),
		zap.String(FieldMode, mode),
	)
}

// ForMessage tags lines with a pipeline message. An empty senderID is omitted.
func ForMessage(base *zap.Logger, messageID string, senderID string) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if messageID != "" {
		fields = append(fields, zap.String(FieldMessageID, messageID))
	}
	if senderID != "" {
		fields = append(fields, zap.String(FieldSenderID, senderID))
	}
	return nonNil(base).With(fields...)
}

// ForProvider tags lines with the stage and engine handling a call.
func ForProvider(base *zap.Logger, stage string, name string) *zap.Logger {
	return nonNil(base).With(
		zap.String(FieldStage, stage),
		zap.String(FieldProvider, name),
	)
}

// ParseLevel maps a configured level name to a zap level. Unknown names give
// info and false.
func ParseLevel(raw string) (zapcore.Level, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch name {
	case "":
		return zapcore.InfoLevel, true
	case "warning":
		return zapcore.WarnLevel, true
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel, false
	}
	return level, true
}

func nonNil(base *zap.Logger) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
	}
	if strings.EqualFold(strings.TrimSpace(format), FormatConsole) {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

func buildSink(cfg Config) (zapcore.WriteSyncer, error) {
	var sinks []zapcore.WriteSyncer
	if cfg.File.Enabled {
		writer, err := newRollingFile(cfg.File)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, zapcore.AddSync(writer))
	}
	// Stdout is the fallback when nothing else is enabled.
	if cfg.Stdout || len(sinks) == 0 {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	return zapcore.NewMultiWriteSyncer(sinks...), nil
}

func newRollingFile(fileCfg FileConfig) (*lumberjack.Logger, error) {
	dir := strings.TrimSpace(fileCfg.Path)
	if dir == "" {
		dir = filepath.Join("data", "logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}
	name := strings.TrimSpace(fileCfg.Name)
	if name == "" {
		name = defaultFileName
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    atLeast(fileCfg.MaxSizeMB, 100),
		MaxBackups: max(fileCfg.MaxBackups, 0),
		MaxAge:     max(fileCfg.MaxAgeDays, 0),
		Compress:   fileCfg.Compress,
		LocalTime:  true,
	}, nil
}

func atLeast(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
