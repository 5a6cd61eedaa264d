//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFoodRow_Unresolved(t *testing.T) {
	tests := []struct {
		name string
		row  FoodRow
		want bool
	}{
		{"named with zero kcal", FoodRow{Name: "Rice", Quantity: "100g"}, true},
		{"empty name", FoodRow{}, false},
		{"whitespace name", FoodRow{Name: "   "}, false},
		{"already resolved", FoodRow{Name: "Egg", Quantity: "2un", Kcal: 70, ProteinG: 6, FatG: 5}, false},
		{"macros but zero kcal", FoodRow{Name: "Coffee", ProteinG: 0.3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.row.Unresolved())
		})
	}
}

func TestDefaultPlan(t *testing.T) {
	plan := DefaultPlan()

	require.Len(t, plan.Slots, 6)
	assert.Equal(t, "07:00 Breakfast", plan.Slots[0].Label)
	assert.Equal(t, "22:00 Supper", plan.Slots[5].Label)
	for _, slot := range plan.Slots {
		assert.Len(t, slot.Rows, defaultRowsPerSlot)
		for _, row := range slot.Rows {
			assert.Equal(t, FoodRow{}, row)
		}
	}
	require.NoError(t, plan.Validate())
}

func TestDietPlan_Reset(t *testing.T) {
	plan := DefaultPlan()
	require.NoError(t, plan.AddRow("12:30 Lunch", FoodRow{Name: "Rice", Kcal: 130}))
	_, err := plan.AddSlot("23:30 Late")
	require.NoError(t, err)

	plan.Reset()

	assert.Equal(t, DefaultPlan().Labels(), plan.Labels())
	assert.Len(t, plan.Slot("12:30 Lunch").Rows, defaultRowsPerSlot)
}

func TestDietPlan_AddSlotRejectsDuplicates(t *testing.T) {
	plan := &DietPlan{}
	_, err := plan.AddSlot("Lunch")
	require.NoError(t, err)

	_, err = plan.AddSlot("Lunch")
	assert.Error(t, err)

	_, err = plan.AddSlot(" ")
	assert.Error(t, err)

	assert.Error(t, plan.AddRow("Dinner", FoodRow{Name: "Soup"}))
}

func TestDietPlan_Clone(t *testing.T) {
	plan := &DietPlan{Slots: []MealSlot{{Label: "Lunch", Rows: []FoodRow{{Name: "Rice"}}}}}
	clone := plan.Clone()
	clone.Slots[0].Rows[0].Kcal = 130

	assert.Equal(t, 0.0, plan.Slots[0].Rows[0].Kcal)
}

func TestDietPlan_JSONShape(t *testing.T) {
	plan := DietPlan{Slots: []MealSlot{
		{Label: "Lunch", Rows: []FoodRow{{Name: "Rice", Quantity: "100g", Kcal: 130}}},
		{Label: "Breakfast"},
	}}

	data, err := json.Marshal(plan)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"label": "Lunch", "rows": [{"name": "Rice", "quantity": "100g", "kcal": 130, "protein_g": 0, "carb_g": 0, "fat_g": 0}]},
		{"label": "Breakfast", "rows": []}
	]`, string(data))
	assert.Nil(t, plan.Slots[1].Rows, "marshal must not mutate the plan")
}

func TestDietPlan_UnmarshalJSON(t *testing.T) {
	t.Run("keeps order and defaults missing numbers to zero", func(t *testing.T) {
		var plan DietPlan
		err := json.Unmarshal([]byte(`[
			{"label": "Dinner", "rows": [{"name": "Soup"}]},
			{"label": "Breakfast", "rows": []}
		]`), &plan)
		require.NoError(t, err)

		assert.Equal(t, []string{"Dinner", "Breakfast"}, plan.Labels())
		assert.Equal(t, FoodRow{Name: "Soup"}, plan.Slots[0].Rows[0])
	})

	t.Run("rejects duplicate labels", func(t *testing.T) {
		var plan DietPlan
		err := json.Unmarshal([]byte(`[{"label": "Lunch"}, {"label": "Lunch"}]`), &plan)
		assert.Error(t, err)
	})
}

func TestDietPlan_YAML(t *testing.T) {
	doc := `
- label: Breakfast
  rows:
    - name: Oats
      quantity: 40g
- label: Lunch
  rows: []
`
	var plan DietPlan
	require.NoError(t, yaml.Unmarshal([]byte(doc), &plan))
	assert.Equal(t, []string{"Breakfast", "Lunch"}, plan.Labels())
	assert.Equal(t, "40g", plan.Slots[0].Rows[0].Quantity)

	out, err := yaml.Marshal(plan)
	require.NoError(t, err)
	assert.Contains(t, string(out), "label: Breakfast")
}

func TestFoodRow_Apply(t *testing.T) {
	row := FoodRow{Name: "Rice", Quantity: "100g"}
	row.Apply(MacroEstimate{Kcal: 130, ProteinG: 2.7, CarbG: 28, FatG: 0.3})

	assert.Equal(t, FoodRow{Name: "Rice", Quantity: "100g", Kcal: 130, ProteinG: 2.7, CarbG: 28, FatG: 0.3}, row)
}
