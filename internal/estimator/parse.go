package estimator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/nutricalc/internal/llm"
	"github.com/jonathan/nutricalc/internal/schemas"
	"github.com/jonathan/nutricalc/internal/types"
)

// FieldNames are the JSON keys a backend uses for the four macro values
type FieldNames struct {
	Kcal    string `json:"kcal" yaml:"kcal"`
	Protein string `json:"protein" yaml:"protein"`
	Carb    string `json:"carb" yaml:"carb"`
	Fat     string `json:"fat" yaml:"fat"`
}

// DefaultFieldNames matches the FoodRow JSON keys
func DefaultFieldNames() FieldNames {
	return FieldNames{Kcal: "kcal", Protein: "protein_g", Carb: "carb_g", Fat: "fat_g"}
}

// List returns the names in kcal, protein, carb, fat order
func (f FieldNames) List() []string {
	return []string{f.Kcal, f.Protein, f.Carb, f.Fat}
}

// IsZero reports whether no field name is set
func (f FieldNames) IsZero() bool {
	return f == FieldNames{}
}

// Validate requires four distinct, non-empty names
func (f FieldNames) Validate() error {
	seen := make(map[string]bool, 4)
	for _, name := range f.List() {
		if name == "" {
			return fmt.Errorf("estimate field names must not be empty")
		}
		if seen[name] {
			return fmt.Errorf("duplicate estimate field name %q", name)
		}
		seen[name] = true
	}
	return nil
}

// ParseEstimates reads exactly n estimates from a free-form response.
// The first balanced [...] span is taken; anything around it is ignored.
func ParseEstimates(text string, n int, fields FieldNames) ([]types.MacroEstimate, error) {
	span := llm.FirstJSONArray(text)
	if span == "" {
		return nil, &ParseError{Message: "no JSON array in response"}
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &items); err != nil {
		var raw []json.RawMessage
		if jsonErr := json.Unmarshal([]byte(span), &raw); jsonErr != nil {
			return nil, &ParseError{Message: "invalid JSON array", Cause: jsonErr}
		}
		// Valid array, but the elements are not objects
		return nil, &MalformedEstimateShapeError{Expected: n, Got: len(raw), Detail: "items must be objects"}
	}

	if err := schemas.ValidateJSONString(schemas.MacroArraySchema(n, fields.List()), span); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return nil, &MalformedEstimateShapeError{Expected: n, Got: len(items), Detail: validationErr.Summary()}
		}
		return nil, &ParseError{Message: "could not validate estimate array", Cause: err}
	}

	estimates := make([]types.MacroEstimate, len(items))
	for i, item := range items {
		values := make([]float64, 4)
		for j, name := range fields.List() {
			if err := json.Unmarshal(item[name], &values[j]); err != nil {
				return nil, &MalformedEstimateShapeError{
					Expected: n,
					Got:      len(items),
					Detail:   fmt.Sprintf("item %d field %s: %v", i, name, err),
				}
			}
		}
		estimates[i] = types.MacroEstimate{
			Kcal:     values[0],
			ProteinG: values[1],
			CarbG:    values[2],
			FatG:     values[3],
		}
	}
	return estimates, nil
}
