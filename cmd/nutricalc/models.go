package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/nutricalc/internal/llm"
)

func newModelsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List Gemini models that can serve as estimator backends",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cfg.GeminiAPIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is required to list models")
			}

			client, err := llm.NewGeminiClient(cmd.Context(), cfg.GeminiAPIKey, cfg.Estimator.EffectiveTemperature())
			if err != nil {
				return err
			}
			defer client.Close()

			names, err := client.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
