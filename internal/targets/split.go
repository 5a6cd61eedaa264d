package targets

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/nutricalc/internal/types"
)

// Energy density in kcal per gram
const (
	KcalPerGramProtein = 4.0
	KcalPerGramCarb    = 4.0
	KcalPerGramFat     = 9.0
)

// splitTolerance allows percentages like 33/33/33 to pass
const splitTolerance = 1.0

// EnergySplit distributes goal kcal across macros by percentage
type EnergySplit struct {
	ProteinPct float64 `json:"protein_pct" yaml:"protein_pct"`
	CarbPct    float64 `json:"carb_pct" yaml:"carb_pct"`
	FatPct     float64 `json:"fat_pct" yaml:"fat_pct"`
}

// DefaultEnergySplit is 40% protein, 40% carbohydrate, 20% fat
func DefaultEnergySplit() EnergySplit {
	return EnergySplit{ProteinPct: 40, CarbPct: 40, FatPct: 20}
}

// ParseEnergySplit reads "protein/carb/fat" percentages, e.g. "40/40/20"
func ParseEnergySplit(s string) (EnergySplit, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return EnergySplit{}, &InvalidInputError{Field: "split", Message: fmt.Sprintf("want protein/carb/fat, got %q", s)}
	}
	values := make([]float64, 3)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return EnergySplit{}, &InvalidInputError{Field: "split", Message: fmt.Sprintf("%q is not a number", part)}
		}
		values[i] = v
	}
	split := EnergySplit{ProteinPct: values[0], CarbPct: values[1], FatPct: values[2]}
	return split, split.Validate()
}

// Validate checks the percentages are non-negative and sum to 100
func (s EnergySplit) Validate() error {
	if s.ProteinPct < 0 || s.CarbPct < 0 || s.FatPct < 0 {
		return &InvalidInputError{Field: "split", Message: "percentages must be non-negative"}
	}
	sum := s.ProteinPct + s.CarbPct + s.FatPct
	if math.Abs(sum-100) > splitTolerance {
		return &InvalidInputError{Field: "split", Message: fmt.Sprintf("percentages sum to %v, want 100", sum)}
	}
	return nil
}

// ApplyEnergySplit replaces the gram targets with ones derived from goal kcal
func ApplyEnergySplit(t types.EnergyTargets, split EnergySplit) (types.EnergyTargets, error) {
	if err := split.Validate(); err != nil {
		return t, err
	}
	kcal := math.Max(t.GoalKcal, 0)
	t.TargetProteinG = math.Floor(kcal * split.ProteinPct / 100 / KcalPerGramProtein)
	t.TargetCarbG = math.Floor(kcal * split.CarbPct / 100 / KcalPerGramCarb)
	t.TargetFatG = math.Floor(kcal * split.FatPct / 100 / KcalPerGramFat)
	return t, nil
}
