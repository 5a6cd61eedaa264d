package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/nutricalc/internal/aggregate"
	"github.com/jonathan/nutricalc/internal/observability"
	"github.com/jonathan/nutricalc/internal/reconcile"
)

func newReconcileCmd(g *globalFlags) *cobra.Command {
	var (
		planPath    string
		outPath     string
		reportPath  string
		force       bool
		strict      bool
		concurrency int
		profile     profileFlags
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Estimate macros for named foods that have no calories yet",
		Long: `Sends every named row with zero kcal (or every named row with --force) to the
estimator chain, one batch per meal slot, and writes the updated plan. Slots whose
estimation fails keep their rows unchanged and are listed in the report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Concurrency = concurrency
			}
			if outPath == "" {
				outPath = planPath
			}

			plan, err := readPlanFile(planPath)
			if err != nil {
				return err
			}
			goal, err := profile.optionalTargets(cfg)
			if err != nil {
				return err
			}

			logger := newLogger(cfg, cmd.ErrOrStderr())
			gateway, closeBackends, err := newGateway(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeBackends() //nolint:errcheck

			out := cmd.OutOrStdout()
			opts := reconcile.Options{
				ForceRecalculate: force,
				Concurrency:      cfg.Concurrency,
				Logger:           logger,
			}
			if cfg.Verbose {
				fmt.Fprintf(out, "Estimator chain: %v\n", gateway.Backends())
				opts.OnProgress = func(ev reconcile.ProgressEvent) {
					line := fmt.Sprintf("  [%d/%d] %s: %s", ev.Index+1, ev.Total, ev.Slot, ev.Status)
					if ev.Message != "" {
						line += " (" + ev.Message + ")"
					}
					fmt.Fprintln(out, line)
				}
			}

			start := time.Now()
			updated, report, err := reconcile.New(gateway, opts).Reconcile(cmd.Context(), plan)
			if err != nil {
				return err
			}

			if err := writePlanFile(outPath, updated); err != nil {
				return err
			}
			if reportPath != "" {
				if err := writeJSONFile(reportPath, report); err != nil {
					return err
				}
			}

			printer := observability.NewPrinter(out)
			printer.PrintReport(report)
			if cfg.Verbose {
				summary := aggregate.Summarize(updated, goal)
				printer.PrintSummary(&summary)
			}
			fmt.Fprintf(out, "✓ Wrote %s in %v\n", outPath, time.Since(start).Round(time.Millisecond))

			if strict && report.HasFailures() {
				return fmt.Errorf("%d slot(s) failed: %v", len(report.Failed()), report.Failed())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Plan file to reconcile")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Where to write the updated plan (default: overwrite --plan)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Also write the reconciliation report as JSON")
	cmd.Flags().BoolVar(&force, "force", false, "Re-estimate every named row, discarding current values")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when any slot failed")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Slots estimated in parallel")
	profile.bind(cmd)
	mustMarkRequired(cmd, "plan")
	return cmd
}
