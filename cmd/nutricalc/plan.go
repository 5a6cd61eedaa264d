package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonathan/nutricalc/internal/aggregate"
	"github.com/jonathan/nutricalc/internal/config"
	"github.com/jonathan/nutricalc/internal/db"
	"github.com/jonathan/nutricalc/internal/observability"
	"github.com/jonathan/nutricalc/internal/types"
)

// defaultSQLitePath is used by plan save/list when neither --db nor the config sets one
const defaultSQLitePath = "nutricalc.db"

func newPlanCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Create, inspect and store meal plan files",
	}
	cmd.AddCommand(
		newPlanInitCmd(),
		newPlanShowCmd(g),
		newPlanValidateCmd(),
		newPlanResetCmd(),
		newPlanSaveCmd(g),
		newPlanListCmd(g),
	)
	return cmd
}

func mustMarkRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
}

func newPlanInitCmd() *cobra.Command {
	var (
		out       string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default empty schedule to a plan file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fileExists(out) && !overwrite {
				return fmt.Errorf("%s already exists (use --force to overwrite)", out)
			}
			if err := writePlanFile(out, types.DefaultPlan()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default plan to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Plan file to create (.json, .yaml or .yml)")
	cmd.Flags().BoolVar(&overwrite, "force", false, "Overwrite an existing file")
	mustMarkRequired(cmd, "out")
	return cmd
}

func newPlanShowCmd(g *globalFlags) *cobra.Command {
	var (
		planPath string
		profile  profileFlags
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a plan with slot and day totals",
		Long:  "Prints every slot of the plan with its totals. When profile flags or a config profile are given, the day is compared against the computed targets.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			plan, err := readPlanFile(planPath)
			if err != nil {
				return err
			}
			goal, err := profile.optionalTargets(cfg)
			if err != nil {
				return err
			}

			summary := aggregate.Summarize(plan, goal)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			printer := observability.NewPrinter(cmd.OutOrStdout())
			printer.PrintPlan(plan, aggregate.SlotTotals)
			printer.PrintSummary(&summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Plan file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	profile.bind(cmd)
	mustMarkRequired(cmd, "plan")
	return cmd
}

func newPlanValidateCmd() *cobra.Command {
	var planPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a plan file against the plan schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := validatePlanFile(planPath)
			if err != nil {
				return err
			}
			rows := 0
			for _, slot := range plan.Slots {
				rows += len(slot.Rows)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d slots, %d rows)\n", planPath, len(plan.Slots), rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Plan file")
	mustMarkRequired(cmd, "plan")
	return cmd
}

func newPlanResetCmd() *cobra.Command {
	var planPath string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace a plan file with the default empty schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan := types.DefaultPlan()
			if err := writePlanFile(planPath, plan); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Reset %s to %d empty slots\n", planPath, len(plan.Slots))
			return nil
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Plan file")
	mustMarkRequired(cmd, "plan")
	return cmd
}

// openLocalStore opens the SQLite store named by --db, the config, or the default path
func openLocalStore(cfg config.Config, path string) (*db.SQLiteStore, error) {
	if path == "" {
		path = cfg.SQLitePath
	}
	if path == "" {
		path = defaultSQLitePath
	}
	return db.NewSQLiteStore(path)
}

func newPlanSaveCmd(g *globalFlags) *cobra.Command {
	var planPath, name, dbPath string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Store a plan file in the local database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			plan, err := readPlanFile(planPath)
			if err != nil {
				return err
			}
			store, err := openLocalStore(cfg, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			record, err := store.CreatePlan(cmd.Context(), name, plan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %q as %s\n", record.Name, record.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Plan file")
	cmd.Flags().StringVar(&name, "name", "", "Name for the stored plan")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config or "+defaultSQLitePath+")")
	mustMarkRequired(cmd, "plan", "name")
	return cmd
}

func newPlanListCmd(g *globalFlags) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans stored in the local database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			store, err := openLocalStore(cfg, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListPlans(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored plans")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSLOTS\tKCAL\tUPDATED")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.0f\t%s\n",
					r.ID, r.Name, len(r.Plan.Slots), aggregate.DayTotals(r.Plan).Kcal, r.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config or "+defaultSQLitePath+")")
	return cmd
}
