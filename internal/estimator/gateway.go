// Package estimator resolves food descriptions to macro estimates by walking
// an ordered chain of backends until one returns a well-formed answer.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/nutricalc/internal/types"
)

// DefaultAttemptTimeout bounds a single backend call
const DefaultAttemptTimeout = 30 * time.Second

// Options configures a Gateway
type Options struct {
	AttemptTimeout time.Duration
	Fields         FieldNames
	Logger         *slog.Logger
}

// Gateway tries backends in fixed order, one shot each
type Gateway struct {
	backends []Backend
	timeout  time.Duration
	fields   FieldNames
	logger   *slog.Logger
}

// NewGateway creates a gateway over backends, most preferred first
func NewGateway(backends []Backend, opts Options) *Gateway {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.Fields.IsZero() {
		opts.Fields = DefaultFieldNames()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Gateway{
		backends: append([]Backend(nil), backends...),
		timeout:  opts.AttemptTimeout,
		fields:   opts.Fields,
		logger:   opts.Logger,
	}
}

// Backends returns backend names in chain order
func (g *Gateway) Backends() []string {
	names := make([]string, len(g.backends))
	for i, b := range g.backends {
		names[i] = b.Name()
	}
	return names
}

// ResolveBatch returns one estimate per description, in the same order.
// When every backend fails the error is an *EstimationFailure.
func (g *Gateway) ResolveBatch(ctx context.Context, descriptions []string) ([]types.MacroEstimate, error) {
	if len(descriptions) == 0 {
		return []types.MacroEstimate{}, nil
	}

	prompt, err := BuildPrompt(descriptions, g.fields)
	if err != nil {
		return nil, &EstimationFailure{BatchSize: len(descriptions), Cause: err}
	}
	req := Request{Prompt: prompt, Descriptions: append([]string(nil), descriptions...)}

	failure := &EstimationFailure{BatchSize: len(descriptions)}
	for i, backend := range g.backends {
		if ctxErr := ctx.Err(); ctxErr != nil {
			failure.Cause = ctxErr
			break
		}

		start := time.Now()
		estimates, attemptErr := g.attempt(ctx, backend, req)
		if attemptErr == nil {
			g.logger.Debug("estimator: batch resolved",
				"backend", backend.Name(),
				"attempt", i+1,
				"items", len(descriptions),
				"duration", time.Since(start))
			return estimates, nil
		}

		g.logger.Warn("estimator: backend failed",
			"backend", backend.Name(),
			"attempt", i+1,
			"kind", attemptErr.Kind,
			"error", attemptErr.Error(),
			"duration", time.Since(start))
		failure.Attempts = append(failure.Attempts, *attemptErr)
	}

	return nil, failure
}

// backendResult carries one Estimate call back from its goroutine
type backendResult struct {
	text string
	err  error
}

// attempt runs one backend under the per-attempt timeout and classifies any failure.
// The call runs on its own goroutine so a backend that ignores its context
// still loses to the deadline.
func (g *Gateway) attempt(ctx context.Context, backend Backend, req Request) ([]types.MacroEstimate, *AttemptError) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan backendResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- backendResult{err: &panicError{value: r}}
			}
		}()
		text, err := backend.Estimate(attemptCtx, req)
		done <- backendResult{text: text, err: err}
	}()

	var res backendResult
	select {
	case res = <-done:
	case <-attemptCtx.Done():
		select {
		case res = <-done:
		default:
			return nil, classifyBackendError(backend.Name(), attemptCtx.Err(), attemptCtx)
		}
	}

	var panicErr *panicError
	if errors.As(res.err, &panicErr) {
		return nil, &AttemptError{
			Backend: backend.Name(),
			Kind:    FailureTransport,
			Message: fmt.Sprintf("backend panicked: %v", panicErr.value),
		}
	}
	if res.err != nil {
		return nil, classifyBackendError(backend.Name(), res.err, attemptCtx)
	}

	estimates, err := ParseEstimates(res.text, len(req.Descriptions), g.fields)
	if err != nil {
		kind := FailureParse
		var shapeErr *MalformedEstimateShapeError
		if errors.As(err, &shapeErr) {
			kind = FailureShape
		}
		return nil, &AttemptError{Backend: backend.Name(), Kind: kind, Message: "unusable response", Cause: err}
	}
	return estimates, nil
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func classifyBackendError(name string, err error, attemptCtx context.Context) *AttemptError {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return &AttemptError{Backend: name, Kind: FailureStatus, Message: "non-success status", Cause: err}
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &AttemptError{Backend: name, Kind: FailureTransport, Message: "attempt timed out", Cause: err}
	}
	return &AttemptError{Backend: name, Kind: FailureTransport, Message: "request failed", Cause: err}
}
