package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/nutricalc/internal/schemas"
	"github.com/jonathan/nutricalc/internal/types"
)

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// readPlanFile loads a plan from JSON or YAML. JSON documents are checked
// against the plan schema first so errors name the offending field.
func readPlanFile(path string) (*types.DietPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var plan types.DietPlan
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &plan); err != nil {
			return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
		}
		return &plan, nil
	}

	if err := schemas.ValidateDietPlan(data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return &plan, nil
}

// validatePlanFile checks a plan file against the schema. YAML is converted
// to JSON first so both formats get the same field-level errors.
func validatePlanFile(path string) (*types.DietPlan, error) {
	if !isYAML(path) {
		if err := schemas.ValidateDietPlanFile(path); err != nil {
			return nil, err
		}
		return readPlanFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("plan YAML is not representable as JSON: %w", err)
	}
	if err := schemas.ValidateDietPlan(asJSON); err != nil {
		return nil, err
	}
	return readPlanFile(path)
}

// writePlanFile writes plan in the format implied by the extension
func writePlanFile(path string, plan *types.DietPlan) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(plan)
	} else {
		data, err = json.MarshalIndent(plan, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
