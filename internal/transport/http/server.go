// Package http provides the HTTP server for the game backend.
package http

import (
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/shizhouxing/project-enigma/internal/config"
	"github.com/shizhouxing/project-enigma/internal/service"
	v1 "github.com/shizhouxing/project-enigma/internal/transport/http/v1"
)

// NewServer creates and configures the public HTTP server.
func NewServer(svc *service.Service, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:        uuid.NewString,
		RequestIDHandler: attachLogger,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			clog.FromContext(c.Request().Context()).
				With("status", v.Status, "latency_ms", v.Latency.Milliseconds()).
				Infof("%s %s", v.Method, v.URIPath)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.Origins()}))
	if cfg.RateLimitRPS > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitRPS))))
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := v1.NewAuthenticator(cfg.JWTSecret, cfg.AuthDisabled)
	v1.NewHandler(svc, auth, cfg.Origins()...).RegisterRoutes(e)

	return e
}

// attachLogger scopes the request's logger to its request id.
func attachLogger(c echo.Context, id string) {
	req := c.Request()
	ctx := clog.WithLogger(req.Context(), clog.FromContext(req.Context()).With("request_id", id, "path", req.URL.Path))
	c.SetRequest(req.WithContext(ctx))
}
