// Package targets derives daily energy and macro targets from a biometric profile.
package targets

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/nutricalc/internal/types"
)

// Harris-Benedict coefficients: constant, per kg, per cm, per year
type bmrCoefficients struct {
	base, weight, height, age float64
}

var (
	maleBMR   = bmrCoefficients{base: 66.5, weight: 13.75, height: 5.003, age: 6.75}
	femaleBMR = bmrCoefficients{base: 655.1, weight: 9.563, height: 1.850, age: 4.676}
)

// BasalMetabolicRate returns the unrounded Harris-Benedict BMR for the profile
func BasalMetabolicRate(p types.Profile) float64 {
	c := maleBMR
	if p.Sex == types.SexFemale {
		c = femaleBMR
	}
	return c.base + c.weight*p.WeightKg + c.height*p.HeightCm - c.age*float64(p.AgeYears)
}

// DefaultRatios returns the grams-per-kg defaults for a goal.
// Leaner goals get more protein and fewer carbohydrates.
func DefaultRatios(goal types.Goal) types.MacroRatios {
	switch goal.Kind {
	case types.GoalCut:
		return types.MacroRatios{ProteinGPerKg: 2.2, CarbGPerKg: 2.0, FatGPerKg: 0.8}
	case types.GoalBulk:
		return types.MacroRatios{ProteinGPerKg: 2.0, CarbGPerKg: 4.0, FatGPerKg: 1.0}
	default:
		return types.MacroRatios{ProteinGPerKg: 1.8, CarbGPerKg: 3.0, FatGPerKg: 0.9}
	}
}

// Compute derives energy and macro targets.
//
// basal_kcal is the floored BMR, total expenditure is basal_kcal times the activity factor,
// goal_kcal is floor(expenditure + goal adjustment) and each macro target is
// floor(weight * ratio). Zero ratios fall back to DefaultRatios(goal).
func Compute(profile types.Profile, activity types.ActivityFactor, goal types.Goal, ratios types.MacroRatios) (types.EnergyTargets, error) {
	if err := profile.Validate(); err != nil {
		return types.EnergyTargets{}, invalidProfile(err)
	}
	if !activity.Valid() {
		return types.EnergyTargets{}, &InvalidInputError{
			Field:   "activity_factor",
			Message: fmt.Sprintf("%v is not a supported factor", float64(activity)),
		}
	}
	if err := validateGoal(goal); err != nil {
		return types.EnergyTargets{}, err
	}
	if ratios.IsZero() {
		ratios = DefaultRatios(goal)
	}
	if err := ratios.Validate(); err != nil {
		return types.EnergyTargets{}, &InvalidInputError{Field: "macro_ratios", Message: "ratios must be non-negative"}
	}

	basal := math.Floor(BasalMetabolicRate(profile))
	expenditure := basal * float64(activity)
	adjustment := goal.Adjustment()

	return types.EnergyTargets{
		BasalKcal:            basal,
		TotalExpenditureKcal: expenditure,
		AdjustmentKcal:       adjustment,
		GoalKcal:             math.Floor(expenditure + adjustment),
		TargetProteinG:       math.Floor(profile.WeightKg * ratios.ProteinGPerKg),
		TargetCarbG:          math.Floor(profile.WeightKg * ratios.CarbGPerKg),
		TargetFatG:           math.Floor(profile.WeightKg * ratios.FatGPerKg),
	}, nil
}

func validateGoal(goal types.Goal) error {
	switch goal.Kind {
	case types.GoalCut, types.GoalMaintain, types.GoalBulk:
	default:
		return &InvalidInputError{Field: "goal", Message: fmt.Sprintf("unknown kind %q", goal.Kind)}
	}
	if goal.Kcal < 0 || math.IsNaN(goal.Kcal) {
		return &InvalidInputError{Field: "goal", Message: "kcal must be non-negative"}
	}
	return nil
}

// invalidProfile converts validator output into an InvalidProfileError naming the bad fields
func invalidProfile(err error) error {
	out := &InvalidProfileError{Cause: err}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out.Fields = append(out.Fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return out
}
