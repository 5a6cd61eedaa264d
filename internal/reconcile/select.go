package reconcile

import (
	"fmt"
	"strings"

	"github.com/jonathan/nutricalc/internal/types"
)

// fallbackQuantity stands in for an empty quantity column
const fallbackQuantity = "1 portion"

// Selection is the ordered set of rows in one slot that will be estimated
type Selection struct {
	Positions    []int
	Descriptions []string
}

// Empty reports whether nothing was selected
func (s Selection) Empty() bool {
	return len(s.Positions) == 0
}

// Select scans rows in order and records the ones to estimate.
// With force set, every named row is selected regardless of kcal.
func Select(slot types.MealSlot, force bool) Selection {
	var sel Selection
	for i, row := range slot.Rows {
		if !row.HasName() {
			continue
		}
		if !force && !row.Unresolved() {
			continue
		}
		sel.Positions = append(sel.Positions, i)
		sel.Descriptions = append(sel.Descriptions, Describe(row))
	}
	return sel
}

// Describe combines quantity and name into one estimator description
func Describe(row types.FoodRow) string {
	quantity := strings.TrimSpace(row.Quantity)
	if quantity == "" {
		quantity = fallbackQuantity
	}
	return fmt.Sprintf("%s %s", quantity, strings.TrimSpace(row.Name))
}

// Merge writes estimates[i] into the row at positions[i].
// Rows outside positions are never touched.
func Merge(slot *types.MealSlot, positions []int, estimates []types.MacroEstimate) error {
	if len(positions) != len(estimates) {
		return &MergeError{Slot: slot.Label, Expected: len(positions), Got: len(estimates)}
	}
	for _, pos := range positions {
		if pos < 0 || pos >= len(slot.Rows) {
			return fmt.Errorf("slot %q: position %d out of range", slot.Label, pos)
		}
	}
	for i, pos := range positions {
		slot.Rows[pos].Apply(estimates[i])
	}
	return nil
}
