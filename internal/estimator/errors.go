package estimator

import (
	"fmt"
	"strings"
)

// FailureKind classifies why a single backend attempt failed
type FailureKind string

const (
	// FailureTransport covers connection errors, timeouts and recovered panics
	FailureTransport FailureKind = "transport"
	// FailureStatus is a non-success HTTP status from the backend
	FailureStatus FailureKind = "status"
	// FailureParse means no balanced JSON array could be read from the response
	FailureParse FailureKind = "parse"
	// FailureShape means the array parsed but did not match the request
	FailureShape FailureKind = "shape"
)

// AttemptError records the failure of one backend for one batch
type AttemptError struct {
	Backend string
	Kind    FailureKind
	Message string
	Cause   error
}

func (e *AttemptError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Backend, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Backend, e.Kind, e.Message)
}

func (e *AttemptError) Unwrap() error {
	return e.Cause
}

// EstimationFailure is returned when no backend produced a usable answer.
// Attempts holds one entry per backend tried, in chain order.
type EstimationFailure struct {
	BatchSize int
	Attempts  []AttemptError
	// Cause is set when the chain could not start or the caller's context ended it early
	Cause error
}

func (e *EstimationFailure) Error() string {
	if len(e.Attempts) == 0 {
		if e.Cause != nil {
			return fmt.Sprintf("estimation of %d items aborted: %v", e.BatchSize, e.Cause)
		}
		return fmt.Sprintf("estimation of %d items failed: no backends configured", e.BatchSize)
	}
	return fmt.Sprintf("estimation of %d items failed on all %d backends: %s",
		e.BatchSize, len(e.Attempts), strings.Join(e.Reasons(), "; "))
}

func (e *EstimationFailure) Unwrap() error {
	return e.Cause
}

// Reasons returns one diagnostic line per attempt
func (e *EstimationFailure) Reasons() []string {
	reasons := make([]string, len(e.Attempts))
	for i := range e.Attempts {
		reasons[i] = e.Attempts[i].Error()
	}
	return reasons
}

// MalformedEstimateShapeError is a syntactically valid array that does not
// match the request: wrong length, or missing, non-numeric or negative fields.
type MalformedEstimateShapeError struct {
	Expected int
	Got      int
	Detail   string
}

func (e *MalformedEstimateShapeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("malformed estimate array (expected %d items, got %d): %s", e.Expected, e.Got, e.Detail)
	}
	return fmt.Sprintf("malformed estimate array (expected %d items, got %d)", e.Expected, e.Got)
}

// ParseError means the response held no readable JSON array
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// StatusError is a non-2xx answer from an HTTP backend
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}
