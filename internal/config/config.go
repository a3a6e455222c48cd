// Package config loads process configuration from the environment.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// LLM modes.
const (
	LLMModeLive = "live"
	LLMModeMock = "mock"
)

// Config holds all configuration for the server.
type Config struct {
	HTTPPort    int    `env:"HTTP_PORT,default=8080"`
	DatabaseURL string `env:"DATABASE_URL,default=enigma.db"`
	CatalogPath string `env:"CATALOG_PATH"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	JWTSecret    string `env:"JWT_SECRET"`
	AuthDisabled bool   `env:"AUTH_DISABLED,default=false"`
	CORSOrigins  string `env:"CORS_ORIGINS,default=*"`
	RateLimitRPS int    `env:"RATE_LIMIT_RPS,default=20"`

	LLMMode            string        `env:"LLM_MODE,default=live"`
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey    string        `env:"ANTHROPIC_API_KEY"`
	AnthropicMaxTokens int           `env:"ANTHROPIC_MAX_TOKENS,default=1024"`
	LLMTimeout         time.Duration `env:"LLM_TIMEOUT,default=2m"`

	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT,default=10s"`
	GCInterval     time.Duration `env:"GC_INTERVAL,default=1h"`
	GCGrace        time.Duration `env:"GC_GRACE,default=24h"`
}

// Load reads the environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	return &cfg, nil
}

// LoadFrom reads configuration from a fixed set of variables.
func LoadFrom(ctx context.Context, vars map[string]string) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(vars),
	}); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that envconfig cannot.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort)
	}
	switch c.LLMMode {
	case LLMModeLive, LLMModeMock:
	default:
		return fmt.Errorf("LLM_MODE must be %q or %q, got %q", LLMModeLive, LLMModeMock, c.LLMMode)
	}
	if c.JWTSecret == "" && !c.AuthDisabled {
		return fmt.Errorf("JWT_SECRET is required unless AUTH_DISABLED is set")
	}
	if c.GCInterval <= 0 {
		return fmt.Errorf("GC_INTERVAL must be positive")
	}
	return nil
}

// Mock reports whether completions are served by the mock provider.
func (c *Config) Mock() bool { return c.LLMMode == LLMModeMock }

// Origins splits CORS_ORIGINS.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
