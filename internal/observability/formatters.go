// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/nutricalc/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxErrorsToShow caps how many failed slots a report box lists in detail
	maxErrorsToShow = 5
	// nameWidth is the food-name column width in plan tables
	nameWidth = 22
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, boxWidth-4), boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to width runes, marking the cut with "..."
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-3]) + "..."
}

// pad right-pads s with spaces to width runes
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// PrintTargets outputs the computed energy and macro targets.
func (p *Printer) PrintTargets(targets *types.EnergyTargets) {
	if targets == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Basal metabolic rate:   %6.0f kcal\n", targets.BasalKcal))
	sb.WriteString(fmt.Sprintf("Total expenditure:      %6.0f kcal\n", targets.TotalExpenditureKcal))
	sb.WriteString(fmt.Sprintf("Goal adjustment:        %+6.0f kcal\n", targets.AdjustmentKcal))
	sb.WriteString(fmt.Sprintf("Daily goal:             %6.0f kcal\n", targets.GoalKcal))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Protein:                %6.0f g\n", targets.TargetProteinG))
	sb.WriteString(fmt.Sprintf("Carbohydrate:           %6.0f g\n", targets.TargetCarbG))
	sb.WriteString(fmt.Sprintf("Fat:                    %6.0f g", targets.TargetFatG))

	p.printBox("DAILY TARGETS", sb.String())
}

// PrintPlan outputs every slot with its named rows and slot totals.
// Inert rows (no name) are not listed.
func (p *Printer) PrintPlan(plan *types.DietPlan, totals func(types.MealSlot) types.Totals) {
	if plan == nil || len(plan.Slots) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-*s %6s %5s %5s %5s\n", nameWidth, "Food", "kcal", "P", "C", "F"))
	for i, slot := range plan.Slots {
		sb.WriteString(slot.Label + "\n")
		named := 0
		for _, row := range slot.Rows {
			if !row.HasName() {
				continue
			}
			named++
			label := strings.TrimSpace(strings.TrimSpace(row.Quantity) + " " + strings.TrimSpace(row.Name))
			marker := " "
			if row.Unresolved() {
				marker = "?"
			}
			sb.WriteString(fmt.Sprintf("%s %s %6.0f %5.1f %5.1f %5.1f\n",
				marker, pad(truncate(label, nameWidth-2), nameWidth-2),
				row.Kcal, row.ProteinG, row.CarbG, row.FatG))
		}
		if named == 0 {
			sb.WriteString("  (empty)\n")
		}
		if totals != nil && named > 0 {
			t := totals(slot)
			sb.WriteString(fmt.Sprintf("  %s %6.0f %5.1f %5.1f %5.1f\n",
				pad("subtotal", nameWidth-2), t.Kcal, t.ProteinG, t.CarbG, t.FatG))
		}
		if i < len(plan.Slots)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("MEAL PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReport outputs the outcome of a reconciliation run.
func (p *Printer) PrintReport(report *types.ReconcileReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Report:          %s\n", report.ID))
	if report.Force {
		sb.WriteString("Mode:            force recalculate\n")
	}
	sb.WriteString(fmt.Sprintf("Estimator calls: %d\n", report.EstimatorCalls()))
	sb.WriteString(fmt.Sprintf("Resolved slots:  %d\n", len(report.Resolved())))
	sb.WriteString(fmt.Sprintf("Failed slots:    %d\n", len(report.Failed())))
	if !report.CompletedAt.IsZero() && !report.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Duration:        %s\n", report.CompletedAt.Sub(report.StartedAt).Round(1e6)))
	}

	shown := 0
	for _, slot := range report.Slots {
		if slot.Status != types.SlotFailed {
			continue
		}
		if shown == 0 {
			sb.WriteString("\nFailures:\n")
		}
		if shown == maxErrorsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Failed())-maxErrorsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("  ✗ %s: %s\n", slot.Label, slot.Error))
		shown++
	}

	p.printBox("RECONCILIATION REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSummary outputs per-slot totals, the day total and adherence when present.
func (p *Printer) PrintSummary(summary *types.PlanSummary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	for _, slot := range summary.Slots {
		sb.WriteString(fmt.Sprintf("%s %6.0f kcal\n", pad(truncate(slot.Label, 30), 30), slot.Totals.Kcal))
	}
	if len(summary.Slots) > 0 {
		sb.WriteString("\n")
	}
	d := summary.Day
	sb.WriteString(fmt.Sprintf("Day: %.0f kcal  P %.1fg  C %.1fg  F %.1fg\n", d.Kcal, d.ProteinG, d.CarbG, d.FatG))

	if summary.Targets != nil && summary.Adherence != nil {
		a := summary.Adherence
		sb.WriteString(fmt.Sprintf("Goal: %.0f kcal (%+.0f)\n", summary.Targets.GoalKcal, a.KcalDelta))
		sb.WriteString(fmt.Sprintf("Protein %+.0fg  Carb %+.0fg  Fat %+.0fg\n", a.ProteinDelta, a.CarbDelta, a.FatDelta))
		sb.WriteString(fmt.Sprintf("Progress: %s %3.0f%%", progressBar(a.KcalProgressRatio, 30), a.KcalProgressRatio*100))
	}

	p.printBox("DAY SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// progressBar renders ratio (0..1) as a bar of width cells
func progressBar(ratio float64, width int) string {
	filled := int(ratio*float64(width) + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
