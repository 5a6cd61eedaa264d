package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jonathan/nutricalc/internal/config"
	"github.com/jonathan/nutricalc/internal/db"
	"github.com/jonathan/nutricalc/internal/server"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start an HTTP server exposing targets, plan summary and reconciliation endpoints.
Stored-plan endpoints are enabled when DATABASE_URL (PostgreSQL) or a SQLite path is configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			logger := newLogger(cfg, cmd.ErrOrStderr())
			gateway, closeBackends, err := newGateway(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeBackends() //nolint:errcheck

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			srv, err := server.New(server.Config{
				Port:        cfg.Port,
				Resolver:    gateway,
				Store:       store,
				Concurrency: cfg.Concurrency,
				Logger:      logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			return srv.Start()
		},
	}
	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "Port to listen on")
	return cmd
}

// openStore prefers PostgreSQL, then SQLite, and returns nil when neither is configured
func openStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		store, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Printf("Using PostgreSQL plan store")
		return store, nil
	case cfg.SQLitePath != "":
		store, err := db.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Printf("Using SQLite plan store at %s", cfg.SQLitePath)
		return store, nil
	default:
		log.Printf("No database configured; stored-plan endpoints disabled")
		return nil, nil
	}
}
