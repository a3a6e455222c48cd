package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), map[string]string{"JWT_SECRET": "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "enigma.db", cfg.DatabaseURL)
	assert.Equal(t, LLMModeLive, cfg.LLMMode)
	assert.Equal(t, 2*time.Minute, cfg.LLMTimeout)
	assert.Equal(t, time.Hour, cfg.GCInterval)
	assert.Equal(t, []string{"*"}, cfg.Origins())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), map[string]string{
		"HTTP_PORT":     "9090",
		"LLM_MODE":      "mock",
		"AUTH_DISABLED": "true",
		"CORS_ORIGINS":  "https://a.example, https://b.example",
		"LOG_LEVEL":     "debug",
		"GC_GRACE":      "30m",
	})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.True(t, cfg.Mock())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 30*time.Minute, cfg.GCGrace)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"bad mode", map[string]string{"JWT_SECRET": "x", "LLM_MODE": "replay"}},
		{"bad port", map[string]string{"JWT_SECRET": "x", "HTTP_PORT": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(context.Background(), tt.vars)
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}
