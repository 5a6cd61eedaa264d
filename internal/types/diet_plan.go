package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FoodRow is a single editable line of a meal slot
type FoodRow struct {
	Name     string  `json:"name" yaml:"name"`
	Quantity string  `json:"quantity" yaml:"quantity"`
	Kcal     float64 `json:"kcal" yaml:"kcal"`
	ProteinG float64 `json:"protein_g" yaml:"protein_g"`
	CarbG    float64 `json:"carb_g" yaml:"carb_g"`
	FatG     float64 `json:"fat_g" yaml:"fat_g"`
}

// HasName reports whether the row carries a food name. Rows without one are inert.
func (r FoodRow) HasName() bool {
	return strings.TrimSpace(r.Name) != ""
}

// Unresolved reports whether the row still needs an estimate: named and kcal exactly zero.
func (r FoodRow) Unresolved() bool {
	return r.HasName() && r.Kcal == 0
}

// Apply overwrites the numeric fields with an estimate
func (r *FoodRow) Apply(e MacroEstimate) {
	r.Kcal = e.Kcal
	r.ProteinG = e.ProteinG
	r.CarbG = e.CarbG
	r.FatG = e.FatG
}

// MealSlot is a labelled, ordered group of food rows
type MealSlot struct {
	Label string    `json:"label" yaml:"label"`
	Rows  []FoodRow `json:"rows" yaml:"rows"`
}

// DietPlan is an ordered mapping of slot label to MealSlot.
// Slot order is chronological display order; labels are unique.
type DietPlan struct {
	Slots []MealSlot
}

const defaultRowsPerSlot = 4

// defaultSchedule is the slot layout a fresh session starts with
var defaultSchedule = []string{
	"07:00 Breakfast",
	"10:00 Morning snack",
	"12:30 Lunch",
	"16:00 Afternoon snack",
	"19:30 Dinner",
	"22:00 Supper",
}

// DefaultPlan returns the default empty schedule
func DefaultPlan() *DietPlan {
	plan := &DietPlan{Slots: make([]MealSlot, 0, len(defaultSchedule))}
	for _, label := range defaultSchedule {
		plan.Slots = append(plan.Slots, MealSlot{
			Label: label,
			Rows:  make([]FoodRow, defaultRowsPerSlot),
		})
	}
	return plan
}

// Reset replaces the plan contents with the default empty schedule
func (p *DietPlan) Reset() {
	p.Slots = DefaultPlan().Slots
}

// Labels returns slot labels in plan order
func (p *DietPlan) Labels() []string {
	labels := make([]string, len(p.Slots))
	for i, s := range p.Slots {
		labels[i] = s.Label
	}
	return labels
}

// Slot returns the slot with the given label, or nil
func (p *DietPlan) Slot(label string) *MealSlot {
	for i := range p.Slots {
		if p.Slots[i].Label == label {
			return &p.Slots[i]
		}
	}
	return nil
}

// AddSlot appends an empty slot. Labels must be unique.
func (p *DietPlan) AddSlot(label string) (*MealSlot, error) {
	if strings.TrimSpace(label) == "" {
		return nil, fmt.Errorf("slot label is empty")
	}
	if p.Slot(label) != nil {
		return nil, fmt.Errorf("slot %q already exists", label)
	}
	p.Slots = append(p.Slots, MealSlot{Label: label})
	return &p.Slots[len(p.Slots)-1], nil
}

// AddRow appends a row to the labelled slot
func (p *DietPlan) AddRow(label string, row FoodRow) error {
	slot := p.Slot(label)
	if slot == nil {
		return fmt.Errorf("slot %q not found", label)
	}
	slot.Rows = append(slot.Rows, row)
	return nil
}

// Clone returns a deep copy of the plan
func (p *DietPlan) Clone() *DietPlan {
	out := &DietPlan{Slots: make([]MealSlot, len(p.Slots))}
	for i, s := range p.Slots {
		out.Slots[i] = MealSlot{Label: s.Label, Rows: append([]FoodRow(nil), s.Rows...)}
	}
	return out
}

// Validate checks label uniqueness
func (p *DietPlan) Validate() error {
	seen := make(map[string]bool, len(p.Slots))
	for i, s := range p.Slots {
		if strings.TrimSpace(s.Label) == "" {
			return fmt.Errorf("slot %d has an empty label", i)
		}
		if seen[s.Label] {
			return fmt.Errorf("duplicate slot label %q", s.Label)
		}
		seen[s.Label] = true
	}
	return nil
}

// MarshalJSON encodes the plan as an ordered list of slots
func (p DietPlan) MarshalJSON() ([]byte, error) {
	slots := make([]MealSlot, len(p.Slots))
	for i, s := range p.Slots {
		if s.Rows == nil {
			s.Rows = []FoodRow{}
		}
		slots[i] = s
	}
	return json.Marshal(slots)
}

// UnmarshalJSON decodes an ordered list of slots
func (p *DietPlan) UnmarshalJSON(data []byte) error {
	var slots []MealSlot
	if err := json.Unmarshal(data, &slots); err != nil {
		return err
	}
	decoded := DietPlan{Slots: slots}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*p = decoded
	return nil
}

// MarshalYAML encodes the plan as an ordered list of slots
func (p DietPlan) MarshalYAML() (interface{}, error) {
	return p.Slots, nil
}

// UnmarshalYAML decodes an ordered list of slots
func (p *DietPlan) UnmarshalYAML(value *yaml.Node) error {
	var slots []MealSlot
	if err := value.Decode(&slots); err != nil {
		return err
	}
	decoded := DietPlan{Slots: slots}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*p = decoded
	return nil
}
