package obslog

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Init(Options{Level: "debug", Format: "json", Stdout: &buf})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _, _ = Init(Options{Stdout: &bytes.Buffer{}}) })

	L().Debug("stacks_move", zap.String("game_id", "g1"))
	_ = logger.Sync()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["msg"] != "stacks_move" || entry["game_id"] != "g1" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestInit_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stacks.log")
	_, err := Init(Options{File: path, Stdout: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Info("stacks_game_create")
	Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), "stacks_game_create") {
		t.Fatalf("log file missing entry: %q", raw)
	}
}

func TestInit_ReplacingClosesPreviousFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(Options{File: filepath.Join(dir, "first.log"), Stdout: &bytes.Buffer{}}); err != nil {
		t.Fatalf("Init first: %v", err)
	}
	first := logFile
	if first == nil {
		t.Fatalf("file sink not tracked")
	}
	L().Info("stacks_game_create")

	if _, err := Init(Options{File: filepath.Join(dir, "second.log"), Stdout: &bytes.Buffer{}}); err != nil {
		t.Fatalf("Init second: %v", err)
	}
	if _, err := first.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("first log file still open: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "first.log"))
	if err != nil || !strings.Contains(string(raw), "stacks_game_create") {
		t.Fatalf("first log lost its entry: %v %q", err, raw)
	}

	second := logFile
	if _, err := Init(Options{Stdout: &bytes.Buffer{}}); err != nil {
		t.Fatalf("Init without file: %v", err)
	}
	if logFile != nil {
		t.Fatalf("stdout-only logger kept a file")
	}
	if _, err := second.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("second log file still open: %v", err)
	}
}

func TestInitFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", "")
	if err := InitFromEnv(); err != nil {
		t.Fatalf("InitFromEnv: %v", err)
	}
	if L().Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !L().Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("warn should be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
