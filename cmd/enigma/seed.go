package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shizhouxing/project-enigma/internal/catalog"
	"github.com/shizhouxing/project-enigma/internal/registry"
	"github.com/shizhouxing/project-enigma/internal/repository"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the judge, game and model catalog into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.CatalogPath
			}
			if file == "" {
				return errors.New("--file or CATALOG_PATH is required")
			}

			store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("initialize store: %w", err)
			}
			defer store.Close()

			reg, err := registry.NewDefault(ctx)
			if err != nil {
				return err
			}
			c, err := catalog.Seed(ctx, file, reg, store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d judges, %d games, %d models into %s\n",
				len(c.Judges), len(c.Games), len(c.Models), cfg.DatabaseURL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	return cmd
}
