package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shizhouxing/project-enigma/internal/adapter/llm"
	"github.com/shizhouxing/project-enigma/internal/config"
	"github.com/shizhouxing/project-enigma/internal/service"
	"github.com/shizhouxing/project-enigma/tests/helpers"
)

func TestNewServer(t *testing.T) {
	cfg, err := config.LoadFrom(context.Background(), map[string]string{
		"AUTH_DISABLED":  "true",
		"LLM_MODE":       "mock",
		"RATE_LIMIT_RPS": "1000",
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	db := helpers.NewTestStore(t)
	helpers.SeedCatalog(t, db)
	svc := service.New(db, helpers.NewTestRegistry(t), llm.NewMockRouter(llm.NewMockProvider()), service.DefaultOptions())
	e := NewServer(svc, cfg)

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/games", http.StatusOK},
		{"/session/history", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
		})
	}
}

func TestRequestLogOmitsQuery(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg, err := config.LoadFrom(context.Background(), map[string]string{
		"AUTH_DISABLED": "true",
		"LLM_MODE":      "mock",
	})
	require.NoError(t, err)

	db := helpers.NewTestStore(t)
	svc := service.New(db, helpers.NewTestRegistry(t), llm.NewMockRouter(llm.NewMockProvider()), service.DefaultOptions())
	e := NewServer(svc, cfg)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session/s1/ws?token=secret-jwt", nil))

	assert.Contains(t, buf.String(), "/session/s1/ws")
	assert.NotContains(t, buf.String(), "secret-jwt")
}
