// Package schemas provides JSON Schema validation for diet plan documents and estimator output.
package schemas

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed diet_plan.schema.json
var dietPlanSchema string

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Summary joins field errors on one line, for log output and failure reasons
func (ve *ValidationError) Summary() string {
	parts := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		parts[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return strings.Join(parts, "; ")
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// ValidateDietPlan validates a JSON plan document against the embedded diet plan schema
func ValidateDietPlan(document []byte) error {
	return validate("diet_plan.schema.json", gojsonschema.NewStringLoader(dietPlanSchema), gojsonschema.NewBytesLoader(document))
}

// ValidateDietPlanFile validates a JSON plan file against the embedded diet plan schema
func ValidateDietPlanFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve plan path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("failed to read plan file %s: %w", absPath, err)
	}
	return ValidateDietPlan(data)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	return validate("(string schema)", gojsonschema.NewStringLoader(schemaContent), gojsonschema.NewStringLoader(jsonContent))
}

// MacroArraySchema builds a schema for an array of exactly length objects,
// each requiring the given fields as non-negative numbers.
func MacroArraySchema(length int, fields []string) string {
	properties := make(map[string]any, len(fields))
	for _, f := range fields {
		properties[f] = map[string]any{"type": "number", "minimum": 0}
	}
	schema := map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "array",
		"minItems": length,
		"maxItems": length,
		"items": map[string]any{
			"type":       "object",
			"required":   fields,
			"properties": properties,
		},
	}
	// Marshal cannot fail on maps of strings, ints and slices
	data, _ := json.Marshal(schema)
	return string(data)
}

func validate(schemaName string, schemaLoader, documentLoader gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    schemaName,
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
