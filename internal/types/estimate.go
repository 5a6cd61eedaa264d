package types

// MacroEstimate is the estimator's answer for one food description
type MacroEstimate struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbG    float64 `json:"carb_g"`
	FatG     float64 `json:"fat_g"`
}

// Totals is a sum of the four numeric row fields
type Totals struct {
	Kcal     float64 `json:"kcal" yaml:"kcal"`
	ProteinG float64 `json:"protein_g" yaml:"protein_g"`
	CarbG    float64 `json:"carb_g" yaml:"carb_g"`
	FatG     float64 `json:"fat_g" yaml:"fat_g"`
}

// Add returns the field-wise sum of t and o
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Kcal:     t.Kcal + o.Kcal,
		ProteinG: t.ProteinG + o.ProteinG,
		CarbG:    t.CarbG + o.CarbG,
		FatG:     t.FatG + o.FatG,
	}
}

// Adherence compares actual day totals to the targets
type Adherence struct {
	KcalDelta    float64 `json:"kcal_delta"`
	ProteinDelta float64 `json:"protein_delta"`
	CarbDelta    float64 `json:"carb_delta"`
	FatDelta     float64 `json:"fat_delta"`
	// KcalProgressRatio is actual/target kcal clamped to [0, 1]; zero when the target is not positive
	KcalProgressRatio float64 `json:"kcal_progress_ratio"`
}

// SlotSummary pairs a slot label with its totals
type SlotSummary struct {
	Label  string `json:"label"`
	Totals Totals `json:"totals"`
}

// PlanSummary is the aggregated view of a plan against targets
type PlanSummary struct {
	Slots     []SlotSummary  `json:"slots"`
	Day       Totals         `json:"day"`
	Targets   *EnergyTargets `json:"targets,omitempty"`
	Adherence *Adherence     `json:"adherence,omitempty"`
}
