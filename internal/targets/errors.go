package targets

import (
	"fmt"
	"strings"
)

// InvalidProfileError is returned when biometric inputs cannot produce meaningful targets
type InvalidProfileError struct {
	Fields []string
	Cause  error
}

func (e *InvalidProfileError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid profile: %s", strings.Join(e.Fields, ", "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("invalid profile: %v", e.Cause)
	}
	return "invalid profile"
}

func (e *InvalidProfileError) Unwrap() error {
	return e.Cause
}

// InvalidInputError covers non-profile inputs: activity factor, goal, ratios, split
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
