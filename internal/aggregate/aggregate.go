// Package aggregate sums meal plan rows and compares the day against targets.
// Every function is pure and is expected to be called on each read.
package aggregate

import "github.com/jonathan/nutricalc/internal/types"

// SlotTotals sums every row in the slot, named or not
func SlotTotals(slot types.MealSlot) types.Totals {
	var t types.Totals
	for _, row := range slot.Rows {
		t = t.Add(types.Totals{
			Kcal:     row.Kcal,
			ProteinG: row.ProteinG,
			CarbG:    row.CarbG,
			FatG:     row.FatG,
		})
	}
	return t
}

// DayTotals sums SlotTotals over the plan in slot order
func DayTotals(plan *types.DietPlan) types.Totals {
	var t types.Totals
	if plan == nil {
		return t
	}
	for _, slot := range plan.Slots {
		t = t.Add(SlotTotals(slot))
	}
	return t
}

// Adherence returns actual minus target per field and the kcal progress ratio.
// The ratio is clamped to [0, 1] and is zero when the kcal target is not positive.
func Adherence(day types.Totals, targets types.EnergyTargets) types.Adherence {
	a := types.Adherence{
		KcalDelta:    day.Kcal - targets.GoalKcal,
		ProteinDelta: day.ProteinG - targets.TargetProteinG,
		CarbDelta:    day.CarbG - targets.TargetCarbG,
		FatDelta:     day.FatG - targets.TargetFatG,
	}
	if targets.GoalKcal > 0 {
		a.KcalProgressRatio = clamp(day.Kcal/targets.GoalKcal, 0, 1)
	}
	return a
}

// Summarize builds per-slot and day totals, plus adherence when targets are given
func Summarize(plan *types.DietPlan, targets *types.EnergyTargets) types.PlanSummary {
	summary := types.PlanSummary{Slots: []types.SlotSummary{}}
	if plan != nil {
		for _, slot := range plan.Slots {
			summary.Slots = append(summary.Slots, types.SlotSummary{Label: slot.Label, Totals: SlotTotals(slot)})
		}
	}
	summary.Day = DayTotals(plan)

	if targets != nil {
		t := *targets
		adherence := Adherence(summary.Day, t)
		summary.Targets = &t
		summary.Adherence = &adherence
	}
	return summary
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
