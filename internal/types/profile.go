// Package types provides type definitions for structured data used throughout the nutricalc system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sex selects the coefficient set used for the basal metabolic rate formula
type Sex string

const (
	// SexMale uses the male Harris-Benedict coefficients
	SexMale Sex = "male"
	// SexFemale uses the female Harris-Benedict coefficients
	SexFemale Sex = "female"
)

// ParseSex normalizes user input into a Sex value
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "masculino":
		return SexMale, nil
	case "female", "f", "feminino":
		return SexFemale, nil
	default:
		return "", fmt.Errorf("unknown sex %q (want male or female)", s)
	}
}

// Profile holds the biometric inputs for a target calculation
type Profile struct {
	Sex      Sex     `json:"sex" yaml:"sex" validate:"required,oneof=male female"`
	WeightKg float64 `json:"weight_kg" yaml:"weight_kg" validate:"gt=0"`
	HeightCm float64 `json:"height_cm" yaml:"height_cm" validate:"gt=0"`
	AgeYears int     `json:"age_years" yaml:"age_years" validate:"gt=0"`
}

// Validate validates the Profile using the validator.
func (p *Profile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// ActivityFactor is the multiplier applied to basal energy to get total expenditure
type ActivityFactor float64

// Supported activity factors
const (
	ActivitySedentary  ActivityFactor = 1.2
	ActivityLight      ActivityFactor = 1.375
	ActivityModerate   ActivityFactor = 1.55
	ActivityActive     ActivityFactor = 1.725
	ActivityVeryActive ActivityFactor = 1.9
)

// activityLevels maps level names to factors. Order matters for ActivityLevels().
var activityLevels = []struct {
	Name   string
	Factor ActivityFactor
}{
	{"sedentary", ActivitySedentary},
	{"light", ActivityLight},
	{"moderate", ActivityModerate},
	{"active", ActivityActive},
	{"very_active", ActivityVeryActive},
}

// ActivityLevels returns the level names in increasing factor order
func ActivityLevels() []string {
	names := make([]string, 0, len(activityLevels))
	for _, l := range activityLevels {
		names = append(names, l.Name)
	}
	return names
}

// ParseActivityLevel accepts a level name ("moderate") or one of the five numeric factors ("1.55")
func ParseActivityLevel(s string) (ActivityFactor, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range activityLevels {
		if l.Name == s {
			return l.Factor, nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if a := ActivityFactor(f); a.Valid() {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown activity level %q (want one of %s)", s, strings.Join(ActivityLevels(), ", "))
}

// Valid reports whether a is one of the supported factors
func (a ActivityFactor) Valid() bool {
	for _, l := range activityLevels {
		if l.Factor == a {
			return true
		}
	}
	return false
}

// Name returns the level name for a, or the formatted factor if unknown
func (a ActivityFactor) Name() string {
	for _, l := range activityLevels {
		if l.Factor == a {
			return l.Name
		}
	}
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

// GoalKind tags the Goal variant
type GoalKind string

const (
	// GoalCut subtracts a deficit from expenditure
	GoalCut GoalKind = "cut"
	// GoalMaintain applies no adjustment
	GoalMaintain GoalKind = "maintain"
	// GoalBulk adds a surplus to expenditure
	GoalBulk GoalKind = "bulk"
)

// DefaultGoalKcal is the deficit/surplus used when a cut or bulk is named without an amount
const DefaultGoalKcal = 500.0

// Goal is the tagged variant Cut(deficit) | Maintain | Bulk(surplus).
// Kcal is the unsigned deficit or surplus and is ignored for Maintain.
type Goal struct {
	Kind GoalKind `json:"kind" yaml:"kind" validate:"required,oneof=cut maintain bulk"`
	Kcal float64  `json:"kcal,omitempty" yaml:"kcal,omitempty" validate:"gte=0"`
}

// Cut returns a deficit goal
func Cut(deficitKcal float64) Goal { return Goal{Kind: GoalCut, Kcal: deficitKcal} }

// Maintain returns the zero-adjustment goal
func Maintain() Goal { return Goal{Kind: GoalMaintain} }

// Bulk returns a surplus goal
func Bulk(surplusKcal float64) Goal { return Goal{Kind: GoalBulk, Kcal: surplusKcal} }

// ParseGoal builds a Goal from a name. A zero kcal for cut or bulk uses DefaultGoalKcal.
func ParseGoal(name string, kcal float64) (Goal, error) {
	if kcal < 0 {
		return Goal{}, fmt.Errorf("goal kcal must be non-negative, got %v", kcal)
	}
	if kcal == 0 {
		kcal = DefaultGoalKcal
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cut", "definicao", "definição":
		return Cut(kcal), nil
	case "maintain", "maintenance", "manutencao", "manutenção", "":
		return Maintain(), nil
	case "bulk", "hipertrofia":
		return Bulk(kcal), nil
	default:
		return Goal{}, fmt.Errorf("unknown goal %q (want cut, maintain or bulk)", name)
	}
}

// Adjustment returns the signed calorie adjustment for the goal
func (g Goal) Adjustment() float64 {
	switch g.Kind {
	case GoalCut:
		return -g.Kcal
	case GoalBulk:
		return g.Kcal
	default:
		return 0
	}
}

// MacroRatios are grams-per-kilogram-bodyweight targets
type MacroRatios struct {
	ProteinGPerKg float64 `json:"protein_g_per_kg" yaml:"protein_g_per_kg" validate:"gte=0"`
	CarbGPerKg    float64 `json:"carb_g_per_kg" yaml:"carb_g_per_kg" validate:"gte=0"`
	FatGPerKg     float64 `json:"fat_g_per_kg" yaml:"fat_g_per_kg" validate:"gte=0"`
}

// Validate validates the MacroRatios using the validator.
func (r *MacroRatios) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// IsZero reports whether no ratio was supplied
func (r MacroRatios) IsZero() bool {
	return r.ProteinGPerKg == 0 && r.CarbGPerKg == 0 && r.FatGPerKg == 0
}

// EnergyTargets are the derived daily energy and macro targets
type EnergyTargets struct {
	BasalKcal            float64 `json:"basal_kcal" yaml:"basal_kcal"`
	TotalExpenditureKcal float64 `json:"total_expenditure_kcal" yaml:"total_expenditure_kcal"`
	AdjustmentKcal       float64 `json:"adjustment_kcal" yaml:"adjustment_kcal"`
	GoalKcal             float64 `json:"goal_kcal" yaml:"goal_kcal"`
	TargetProteinG       float64 `json:"target_protein_g" yaml:"target_protein_g"`
	TargetCarbG          float64 `json:"target_carb_g" yaml:"target_carb_g"`
	TargetFatG           float64 `json:"target_fat_g" yaml:"target_fat_g"`
}
