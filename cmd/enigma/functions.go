package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shizhouxing/project-enigma/internal/registry"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample [sampler]",
		Short: "Run a registered sampler, or list samplers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.NewDefault(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return printJSON(cmd.OutOrStdout(), reg.SamplerNames())
			}
			sample, err := reg.Sample(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sample)
		},
	}
}

func newValidateCmd() *cobra.Command {
	var (
		source string
		kwargs string
	)
	cmd := &cobra.Command{
		Use:   "validate [validator]",
		Short: "Run a registered validator against --source, or list validators",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := registry.NewDefault(ctx)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return printJSON(cmd.OutOrStdout(), reg.ValidatorNames())
			}

			kw := map[string]any{}
			if err := json.Unmarshal([]byte(kwargs), &kw); err != nil {
				return fmt.Errorf("--kwargs: %w", err)
			}
			ok, err := reg.Validate(ctx, args[0], source, kw)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"result": ok})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "text to validate")
	cmd.Flags().StringVar(&kwargs, "kwargs", "{}", "validator kwargs as a JSON object")
	return cmd
}
