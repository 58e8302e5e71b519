package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

const (
	defaultGameTTL          = 24 * time.Hour
	defaultRenderSquareSize = 72
)

type AppConfig struct {
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	GameTTL     time.Duration `yaml:"-"`
	GameTTLSec  int           `yaml:"game_ttl_sec"`
	MessagesDir string        `yaml:"messages_dir"`

	RenderSquareSize int `yaml:"render_square_size"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// Load resolves configuration from .env, then the YAML file named by
// STACKS_CONFIG, then the process environment. Later sources win.
func Load() (*AppConfig, error) {
	// .env는 선택 사항
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &AppConfig{
		GameTTLSec:       int(defaultGameTTL / time.Second),
		RenderSquareSize: defaultRenderSquareSize,
		LogLevel:         "info",
		LogFormat:        "console",
	}

	if path := strings.TrimSpace(os.Getenv("STACKS_CONFIG")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if cfg.GameTTLSec <= 0 {
		cfg.GameTTLSec = int(defaultGameTTL / time.Second)
	}
	if cfg.RenderSquareSize <= 0 {
		cfg.RenderSquareSize = defaultRenderSquareSize
	}
	cfg.GameTTL = time.Duration(cfg.GameTTLSec) * time.Second
	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		c.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		c.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("GAME_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.GameTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		c.MessagesDir = v
	}
	if v := strings.TrimSpace(os.Getenv("RENDER_SQUARE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RenderSquareSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		c.LogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		c.LogFile = v
	}
}
