// Package main implements the nutricalc CLI: energy targets, meal plan files,
// macro reconciliation through the estimator chain, and the REST API server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/nutricalc/internal/config"
	"github.com/jonathan/nutricalc/internal/estimator"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "nutricalc",
		Short:         "Personal nutrition planner",
		Long:          "nutricalc computes daily energy and macro targets, keeps a meal plan, and fills in the macros of newly named foods through an ordered chain of estimator backends.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to a JSON or YAML config file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Print detailed progress and debug logs")

	root.AddCommand(
		newTargetsCmd(g),
		newPlanCmd(g),
		newReconcileCmd(g),
		newModelsCmd(g),
		newServeCmd(g),
	)
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load reads the config file and environment. --verbose wins over the file.
func (g *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(g.configPath, os.Getenv)
	if err != nil {
		return config.Config{}, err
	}
	if g.verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// newLogger writes text logs to w at Warn, or Debug when verbose
func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newGateway builds the estimator chain. Backends without credentials are
// skipped; an empty chain is an error since nothing could be estimated.
func newGateway(ctx context.Context, cfg config.Config, logger *slog.Logger) (*estimator.Gateway, func() error, error) {
	backends, closer, err := estimator.BuildBackends(ctx, cfg.Estimator.Backends, estimator.BuildOptions{
		Credentials: cfg.Credentials(),
		Temperature: cfg.Estimator.EffectiveTemperature(),
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build estimator backends: %w", err)
	}
	if len(backends) == 0 {
		_ = closer()
		return nil, nil, fmt.Errorf("no estimator backend available: set GEMINI_API_KEY, OPENAI_API_KEY or NUTRICALC_ESTIMATOR_URL")
	}

	gateway := estimator.NewGateway(backends, estimator.Options{
		AttemptTimeout: cfg.Estimator.AttemptTimeout.Duration,
		Fields:         cfg.Estimator.Fields,
		Logger:         logger,
	})
	return gateway, closer, nil
}
