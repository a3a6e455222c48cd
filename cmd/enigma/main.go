// Command enigma runs the red-teaming game backend and its admin tools.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/shizhouxing/project-enigma/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "enigma",
		Short:        "Red-teaming game backend",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newSeedCmd(),
		newSampleCmd(),
		newValidateCmd(),
		newTokenCmd(),
		newPlayCmd(),
	)
	return root
}

// loadConfig reads the environment and installs the JSON logger at the
// configured level.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	clog.FromContext(ctx).Debugf("configuration loaded: llm_mode=%s database=%s", cfg.LLMMode, cfg.DatabaseURL)
	return cfg, nil
}
