package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shizhouxing/project-enigma/internal/adapter/llm"
	"github.com/shizhouxing/project-enigma/internal/catalog"
	"github.com/shizhouxing/project-enigma/internal/config"
	"github.com/shizhouxing/project-enigma/internal/registry"
	"github.com/shizhouxing/project-enigma/internal/repository"
	"github.com/shizhouxing/project-enigma/internal/service"
	transport "github.com/shizhouxing/project-enigma/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the session sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	clog.InfoContextf(ctx, "starting enigma on port %d (llm mode %s)", cfg.HTTPPort, cfg.LLMMode)

	store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer store.Close()

	reg, err := registry.NewDefault(ctx)
	if err != nil {
		return err
	}
	if cfg.CatalogPath != "" {
		if _, err := catalog.Seed(ctx, cfg.CatalogPath, reg, store); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	provider := llm.NewFromOptions(llm.Options{
		Mock:            cfg.Mock(),
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicTokens: cfg.AnthropicMaxTokens,
	})
	svc := service.New(store, reg, provider, service.Options{
		LLMTimeout:     cfg.LLMTimeout,
		PersistTimeout: cfg.PersistTimeout,
		GCInterval:     cfg.GCInterval,
		GCGrace:        cfg.GCGrace,
	})
	server := transport.NewServer(svc, cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		svc.RunGarbageCollector(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		clog.InfoContextf(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
