package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"STACKS_CONFIG", "REDIS_URL", "DATABASE_URL", "GAME_TTL_SEC", "MESSAGES_DIR", "RENDER_SQUARE_SIZE", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE"} {
		t.Setenv(k, "")
	}
	// no .env in the package dir
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GameTTL != 24*time.Hour {
		t.Fatalf("GameTTL = %v", cfg.GameTTL)
	}
	if cfg.RenderSquareSize != 72 || cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Fatalf("urls should be empty: %+v", cfg)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "stacks.yaml")
	body := "redis_url: redis://file:6379/1\ngame_ttl_sec: 60\nlog_format: json\nrender_square_size: 40\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STACKS_CONFIG", path)
	t.Setenv("REDIS_URL", "redis://env:6379/0")
	t.Setenv("RENDER_SQUARE_SIZE", "nope")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RedisURL != "redis://env:6379/0" {
		t.Fatalf("env should win, got %q", cfg.RedisURL)
	}
	if cfg.GameTTL != time.Minute {
		t.Fatalf("GameTTL from file = %v", cfg.GameTTL)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("LogFormat = %q", cfg.LogFormat)
	}
	if cfg.RenderSquareSize != 40 {
		t.Fatalf("invalid env value should keep file value, got %d", cfg.RenderSquareSize)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("DATABASE_URL")
	if err := os.WriteFile(".env", []byte("DATABASE_URL=sqlite://stacks.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DATABASE_URL") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "sqlite://stacks.db" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("STACKS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
