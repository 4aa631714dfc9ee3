package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the reqlog service.
type Config struct {
	Addr         string        `yaml:"addr"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"` // "json" or "text"
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	Capture      CaptureConfig `yaml:"capture"`
	Auth         AuthConfig    `yaml:"auth"`
}

// CaptureConfig controls request/response logging and error responses.
type CaptureConfig struct {
	ExposeErrorDetails bool     `yaml:"expose_error_details"`
	MaxLoggedBody      int      `yaml:"max_logged_body"`
	RedactHeaders      []string `yaml:"redact_headers"`
}

// AuthConfig holds bearer token validation settings. An empty Secret
// disables the guard.
type AuthConfig struct {
	Secret      string   `yaml:"secret"`
	PublicPaths []string `yaml:"public_paths"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Addr:         ":8080",
		LogLevel:     "info",
		LogFormat:    "json",
		MaxBodyBytes: 1 << 20,
		Capture: CaptureConfig{
			ExposeErrorDetails: true,
			RedactHeaders:      []string{"Authorization", "Cookie"},
		},
		Auth: AuthConfig{
			PublicPaths: []string{"/healthz", "/metrics"},
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if set), then environment variables.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Addr = envOr("ADDR", cfg.Addr)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("LOG_FORMAT", cfg.LogFormat)
	cfg.MaxBodyBytes = envInt64("MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.Capture.ExposeErrorDetails = envBool("EXPOSE_ERROR_DETAILS", cfg.Capture.ExposeErrorDetails)
	cfg.Capture.MaxLoggedBody = int(envInt64("LOG_BODY_LIMIT", int64(cfg.Capture.MaxLoggedBody)))
	cfg.Capture.RedactHeaders = envList("REDACT_HEADERS", cfg.Capture.RedactHeaders)
	cfg.Auth.Secret = envOr("JWT_SECRET", cfg.Auth.Secret)
	cfg.Auth.PublicPaths = envList("PUBLIC_PATHS", cfg.Auth.PublicPaths)
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

// envList reads a comma-separated list. Empty elements are dropped.
func envList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
