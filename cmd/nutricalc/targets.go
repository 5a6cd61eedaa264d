package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jonathan/nutricalc/internal/config"
	"github.com/jonathan/nutricalc/internal/observability"
	"github.com/jonathan/nutricalc/internal/targets"
	"github.com/jonathan/nutricalc/internal/types"
)

// profileFlags are the biometric and goal flags. Unset flags fall back to the
// profile section of the config file.
type profileFlags struct {
	sex      string
	weightKg float64
	heightCm float64
	ageYears int
	activity string
	goal     string
	goalKcal float64
	ratios   types.MacroRatios
	split    string
}

func (p *profileFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&p.sex, "sex", "", "Sex for the BMR formula: male or female")
	f.Float64Var(&p.weightKg, "weight", 0, "Body weight in kg")
	f.Float64Var(&p.heightCm, "height", 0, "Height in cm")
	f.IntVar(&p.ageYears, "age", 0, "Age in years")
	f.StringVar(&p.activity, "activity", "", "Activity level (sedentary, light, moderate, active, very_active) or factor")
	f.StringVar(&p.goal, "goal", "", "Goal: cut, maintain or bulk")
	f.Float64Var(&p.goalKcal, "goal-kcal", 0, "Deficit or surplus in kcal (default 500 for cut and bulk)")
	f.Float64Var(&p.ratios.ProteinGPerKg, "protein-ratio", 0, "Protein grams per kg (default depends on goal)")
	f.Float64Var(&p.ratios.CarbGPerKg, "carb-ratio", 0, "Carbohydrate grams per kg (default depends on goal)")
	f.Float64Var(&p.ratios.FatGPerKg, "fat-ratio", 0, "Fat grams per kg (default depends on goal)")
	f.StringVar(&p.split, "split", "", "Derive macros from goal kcal as protein/carb/fat percentages, e.g. 40/40/20")
}

func (p *profileFlags) merge(c config.ProfileConfig) {
	if p.sex == "" {
		p.sex = c.Sex
	}
	if p.weightKg == 0 {
		p.weightKg = c.WeightKg
	}
	if p.heightCm == 0 {
		p.heightCm = c.HeightCm
	}
	if p.ageYears == 0 {
		p.ageYears = c.AgeYears
	}
	if p.activity == "" {
		p.activity = c.Activity
	}
	if p.goal == "" {
		p.goal = c.Goal
	}
	if p.goalKcal == 0 {
		p.goalKcal = c.GoalKcal
	}
}

// empty reports whether no profile input was given at all
func (p *profileFlags) empty() bool {
	return p.sex == "" && p.weightKg == 0 && p.heightCm == 0 && p.ageYears == 0
}

// compute parses the merged inputs and runs the target calculation
func (p *profileFlags) compute() (*types.EnergyTargets, error) {
	sex, err := types.ParseSex(p.sex)
	if err != nil {
		return nil, err
	}
	activity := types.ActivitySedentary
	if p.activity != "" {
		if activity, err = types.ParseActivityLevel(p.activity); err != nil {
			return nil, err
		}
	}
	goal, err := types.ParseGoal(p.goal, p.goalKcal)
	if err != nil {
		return nil, err
	}

	profile := types.Profile{Sex: sex, WeightKg: p.weightKg, HeightCm: p.heightCm, AgeYears: p.ageYears}
	result, err := targets.Compute(profile, activity, goal, p.ratios)
	if err != nil {
		return nil, err
	}

	if p.split != "" {
		split, err := targets.ParseEnergySplit(p.split)
		if err != nil {
			return nil, err
		}
		if result, err = targets.ApplyEnergySplit(result, split); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// optionalTargets computes targets when any profile input was given, else nil
func (p *profileFlags) optionalTargets(cfg config.Config) (*types.EnergyTargets, error) {
	p.merge(cfg.Profile)
	if p.empty() {
		return nil, nil
	}
	return p.compute()
}

func newTargetsCmd(g *globalFlags) *cobra.Command {
	var (
		profile profileFlags
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Compute daily energy and macro targets",
		Long:  "Computes basal metabolic rate (Harris-Benedict), total expenditure for an activity level, the goal-adjusted calorie target and per-macro gram targets.",
		Example: `  nutricalc targets --sex male --weight 101 --height 177 --age 19 --activity sedentary --goal maintain
  nutricalc targets --sex female --weight 60 --height 165 --age 30 --goal cut --goal-kcal 300 --split 40/40/20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			profile.merge(cfg.Profile)

			result, err := profile.compute()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintTargets(result)
			return nil
		},
	}
	profile.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print targets as JSON")
	return cmd
}
