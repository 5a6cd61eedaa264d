package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nutricalc/internal/types"
)

var referenceProfileArgs = []string{"--sex", "male", "--weight", "101", "--height", "177", "--age", "19", "--activity", "sedentary"}

func TestTargetsCommand(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, append([]string{"targets"}, referenceProfileArgs...)...)
	require.NoError(t, err, out)
	requireContains(t, out, "DAILY TARGETS", "2212 kcal", "2654 kcal")
}

func TestTargetsCommand_JSON(t *testing.T) {
	isolateEnv(t)

	args := append([]string{"targets", "--json", "--goal", "cut", "--split", "40/40/20"}, referenceProfileArgs...)
	out, err := runCLI(t, args...)
	require.NoError(t, err, out)

	var got types.EnergyTargets
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, -500.0, got.AdjustmentKcal, "cut without an amount uses the default deficit")
	assert.Equal(t, 2154.0, got.GoalKcal)
	assert.Equal(t, 215.0, got.TargetProteinG) // floor(2154 * 0.4 / 4)
}

func TestTargetsCommand_ProfileFromConfig(t *testing.T) {
	isolateEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
profile:
  sex: male
  weight_kg: 101
  height_cm: 177
  age_years: 19
  activity: sedentary
`), 0o644))

	out, err := runCLI(t, "targets", "--config", cfgPath, "--json")
	require.NoError(t, err, out)
	var got types.EnergyTargets
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2654.0, got.GoalKcal)

	// Flags override the file
	out, err = runCLI(t, "targets", "--config", cfgPath, "--json", "--weight", "80")
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Less(t, got.GoalKcal, 2654.0)
}

func TestTargetsCommand_InvalidInput(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing profile", []string{"targets"}},
		{"zero weight", []string{"targets", "--sex", "male", "--height", "177", "--age", "19"}},
		{"unknown activity", append([]string{"targets"}, append(referenceProfileArgs, "--activity", "couch")...)},
		{"unknown goal", append([]string{"targets", "--goal", "shred"}, referenceProfileArgs...)},
		{"bad split", append([]string{"targets", "--split", "50/50"}, referenceProfileArgs...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestPlanInitShowValidateReset(t *testing.T) {
	isolateEnv(t)
	for _, name := range []string{"plan.json", "plan.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			out, err := runCLI(t, "plan", "init", "--out", path)
			require.NoError(t, err, out)
			assert.Contains(t, out, "Wrote default plan")

			_, err = runCLI(t, "plan", "init", "--out", path)
			assert.ErrorContains(t, err, "already exists")

			out, err = runCLI(t, "plan", "validate", "--plan", path)
			require.NoError(t, err, out)
			assert.Contains(t, out, "6 slots, 24 rows")

			plan, err := readPlanFile(path)
			require.NoError(t, err)
			require.NoError(t, plan.AddRow("12:30 Lunch", types.FoodRow{Name: "rice", Quantity: "100g", Kcal: 130, CarbG: 28}))
			require.NoError(t, writePlanFile(path, plan))

			out, err = runCLI(t, "plan", "show", "--plan", path)
			require.NoError(t, err, out)
			requireContains(t, out, "MEAL PLAN", "100g rice", "DAY SUMMARY", "Day: 130 kcal")

			out, err = runCLI(t, "plan", "reset", "--plan", path)
			require.NoError(t, err, out)
			plan, err = readPlanFile(path)
			require.NoError(t, err)
			assert.Equal(t, types.DefaultPlan(), plan)
		})
	}
}

func TestPlanShow_WithTargetsJSON(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, writePlanFile(path, &types.DietPlan{Slots: []types.MealSlot{
		{Label: "Lunch", Rows: []types.FoodRow{{Name: "rice", Kcal: 1200}}},
	}}))

	out, err := runCLI(t, append([]string{"plan", "show", "--plan", path, "--json"}, referenceProfileArgs...)...)
	require.NoError(t, err, out)

	var summary types.PlanSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.NotNil(t, summary.Adherence)
	assert.Equal(t, -1454.0, summary.Adherence.KcalDelta)
	assert.InDelta(t, 1200.0/2654.0, summary.Adherence.KcalProgressRatio, 1e-9)
}

func TestPlanValidate_Errors(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"negative kcal", "neg.json", `[{"label": "a", "rows": [{"name": "x", "quantity": "", "kcal": -1, "protein_g": 0, "carb_g": 0, "fat_g": 0}]}]`, "kcal"},
		{"missing label", "nolabel.json", `[{"rows": []}]`, "label"},
		{"duplicate labels", "dup.yaml", "- label: a\n  rows: []\n- label: a\n  rows: []\n", "duplicate"},
		{"not a list", "obj.yaml", "label: a\n", "array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := runCLI(t, "plan", "validate", "--plan", path)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.wantErr)
		})
	}
}

func TestPlanSaveAndList(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.json")
	dbPath := filepath.Join(dir, "store", "plans.db")

	out, err := runCLI(t, "plan", "list", "--db", dbPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "No stored plans")

	_, err = runCLI(t, "plan", "init", "--out", planPath)
	require.NoError(t, err)
	out, err = runCLI(t, "plan", "save", "--plan", planPath, "--name", "week 1", "--db", dbPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, `Saved "week 1"`)

	// The store path can come from the environment too
	t.Setenv("NUTRICALC_SQLITE_PATH", dbPath)
	out, err = runCLI(t, "plan", "list")
	require.NoError(t, err, out)
	requireContains(t, out, "NAME", "week 1")
}

func TestReconcileCommand(t *testing.T) {
	isolateEnv(t)
	est := newFakeEstimator(t, nil)

	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.json")
	outPath := filepath.Join(dir, "out.json")
	reportPath := filepath.Join(dir, "report.json")
	require.NoError(t, writePlanFile(planPath, &types.DietPlan{Slots: []types.MealSlot{
		{Label: "Breakfast", Rows: []types.FoodRow{
			{Name: "oats", Quantity: "40g", Kcal: 150},
			{Name: "banana", Quantity: "1"},
			{Name: "milk", Quantity: "200ml"},
		}},
		{Label: "Lunch", Rows: []types.FoodRow{{}}},
	}}))

	out, err := runCLI(t, "reconcile", "--plan", planPath, "--out", outPath, "--report", reportPath, "-v")
	require.NoError(t, err, out)
	requireContains(t, out, "RECONCILIATION REPORT", "Estimator calls: 1", "[1/2] Breakfast: started", "[2/2] Lunch: skipped")
	assert.Equal(t, int32(1), est.calls.Load())

	updated, err := readPlanFile(outPath)
	require.NoError(t, err)
	rows := updated.Slots[0].Rows
	assert.Equal(t, 150.0, rows[0].Kcal)
	assert.Equal(t, 100.0, rows[1].Kcal)
	assert.Equal(t, 200.0, rows[2].Kcal)

	// Input is untouched when --out is given
	original, err := readPlanFile(planPath)
	require.NoError(t, err)
	assert.Equal(t, 0.0, original.Slots[0].Rows[1].Kcal)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report types.ReconcileReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, []string{"Breakfast"}, report.Resolved())
}

func TestReconcileCommand_InPlaceIsIdempotent(t *testing.T) {
	isolateEnv(t)
	est := newFakeEstimator(t, nil)

	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, writePlanFile(planPath, &types.DietPlan{Slots: []types.MealSlot{
		{Label: "Dinner", Rows: []types.FoodRow{{Name: "salmon", Quantity: "150g"}}},
	}}))

	_, err := runCLI(t, "reconcile", "--plan", planPath)
	require.NoError(t, err)
	_, err = runCLI(t, "reconcile", "--plan", planPath)
	require.NoError(t, err)
	assert.Equal(t, int32(1), est.calls.Load(), "resolved rows are not sent again")

	_, err = runCLI(t, "reconcile", "--plan", planPath, "--force")
	require.NoError(t, err)
	assert.Equal(t, int32(2), est.calls.Load())
}

func TestReconcileCommand_PartialFailure(t *testing.T) {
	isolateEnv(t)
	newFakeEstimator(t, func(descriptions []string) bool {
		return descriptions[0] == "1 portion tofu"
	})

	planPath := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, writePlanFile(planPath, &types.DietPlan{Slots: []types.MealSlot{
		{Label: "Lunch", Rows: []types.FoodRow{{Name: "tofu"}}},
		{Label: "Dinner", Rows: []types.FoodRow{{Name: "rice", Quantity: "100g"}}},
	}}))

	out, err := runCLI(t, "reconcile", "--plan", planPath)
	require.NoError(t, err, out)
	requireContains(t, out, "Failed slots:    1", "✗ Lunch")

	plan, err := readPlanFile(planPath)
	require.NoError(t, err)
	assert.Equal(t, 0.0, plan.Slots[0].Rows[0].Kcal)
	assert.Equal(t, 100.0, plan.Slots[1].Rows[0].Kcal)

	_, err = runCLI(t, "reconcile", "--plan", planPath, "--strict")
	assert.ErrorContains(t, err, "1 slot(s) failed")
}

func TestReconcileCommand_NoBackends(t *testing.T) {
	isolateEnv(t)
	planPath := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, writePlanFile(planPath, types.DefaultPlan()))

	_, err := runCLI(t, "reconcile", "--plan", planPath)
	assert.ErrorContains(t, err, "no estimator backend available")
}

func TestRequiredFlags(t *testing.T) {
	isolateEnv(t)
	for _, args := range [][]string{
		{"plan", "init"},
		{"plan", "show"},
		{"plan", "validate"},
		{"plan", "save", "--plan", "x.json"},
		{"reconcile"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := runCLI(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "required")
		})
	}
}

func TestModelsCommand_RequiresKey(t *testing.T) {
	isolateEnv(t)
	_, err := runCLI(t, "models")
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}
