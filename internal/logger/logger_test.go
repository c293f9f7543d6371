package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want zapcore.Level
		ok   bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{" WARN ", zapcore.WarnLevel, true},
		{"warning", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"", zapcore.InfoLevel, true},
		{"verbose", zapcore.InfoLevel, false},
	}
	for _, tc := range cases {
		got, ok := ParseLevel(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseLevel(%q)=%v,%v, want %v,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		lines = append(lines, entry)
	}
	return lines
}

func TestNewWritesRollingFileWithService(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Config{
		Level: "info",
		File:  FileConfig{Enabled: true, Path: dir},
	}, "voice-relay")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	log.Info("relay started")
	log.Debug("hidden at info")
	_ = log.Sync()

	lines := readLines(t, filepath.Join(dir, defaultFileName))
	if len(lines) != 1 {
		t.Fatalf("lines=%d, want 1: %v", len(lines), lines)
	}
	if lines[0][FieldService] != "voice-relay" {
		t.Fatalf("service=%v, want voice-relay", lines[0][FieldService])
	}
}

func TestSetLevelAppliesToRunningLogger(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Config{Level: "warn", File: FileConfig{Enabled: true, Path: dir, Name: "relay.log"}}, "")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if log.Level() != zapcore.WarnLevel {
		t.Fatalf("Level=%v, want warn", log.Level())
	}
	if log.SetLevel("warning") {
		t.Fatal("SetLevel(warning) reported a change from warn")
	}
	if log.SetLevel("nonsense") {
		t.Fatal("SetLevel(nonsense) reported a change")
	}
	if !log.SetLevel("debug") {
		t.Fatal("SetLevel(debug) reported no change")
	}
	log.Debug("now visible")
	_ = log.Sync()

	lines := readLines(t, filepath.Join(dir, "relay.log"))
	if len(lines) != 1 || lines[0]["msg"] != "now visible" {
		t.Fatalf("lines=%v, want the debug entry", lines)
	}
	if _, ok := lines[0][FieldService]; ok {
		t.Fatal("service field present for empty service name")
	}
}

func TestConsoleFormat(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Config{Format: "Console", File: FileConfig{Enabled: true, Path: dir}}, "voice-relay")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	log.Warn("plain text")
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, defaultFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if strings.HasPrefix(line, "{") || !strings.Contains(line, "WARN") || !strings.Contains(line, "plain text") {
		t.Fatalf("line=%q, want console encoding", line)
	}
}

func TestChildLoggersTagFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	conn := ForConnection(base, "c-1", "stream")
	ForMessage(conn, "m-1", "alice").Info("message")
	ForMessage(conn, "m-2", "").Info("anonymous")
	ForProvider(conn, "transcribe", "whisper").Info("call")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("entries=%d, want 3", len(entries))
	}
	first := entries[0].ContextMap()
	if first[FieldConnectionID] != "c-1" || first[FieldMode] != "stream" || first[FieldMessageID] != "m-1" || first[FieldSenderID] != "alice" {
		t.Fatalf("message fields=%v", first)
	}
	if _, ok := entries[1].ContextMap()[FieldSenderID]; ok {
		t.Fatal("empty sender_id was logged")
	}
	third := entries[2].ContextMap()
	if third[FieldStage] != "transcribe" || third[FieldProvider] != "whisper" {
		t.Fatalf("provider fields=%v", third)
	}
}

func TestChildLoggersAcceptNilBase(t *testing.T) {
	ForConnection(nil, "c", "basic").Info("dropped")
	ForMessage(nil, "m", "u").Info("dropped")
	ForProvider(nil, "translate", "libre").Info("dropped")
}
