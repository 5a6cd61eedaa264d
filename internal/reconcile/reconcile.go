// Package reconcile fills in the macro values of meal plan rows that have a
// name but no calories yet, one estimator batch per slot.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/nutricalc/internal/types"
)

// Resolver estimates an ordered batch of food descriptions
type Resolver interface {
	ResolveBatch(ctx context.Context, descriptions []string) ([]types.MacroEstimate, error)
}

// ProgressStatus is the stage a slot has reached
type ProgressStatus string

const (
	ProgressStarted  ProgressStatus = "started"
	ProgressResolved ProgressStatus = "resolved"
	ProgressFailed   ProgressStatus = "failed"
	ProgressSkipped  ProgressStatus = "skipped"
)

// ProgressEvent is emitted as each slot moves through reconciliation
type ProgressEvent struct {
	Slot    string         `json:"slot"`
	Index   int            `json:"index"`
	Total   int            `json:"total"`
	Status  ProgressStatus `json:"status"`
	Message string         `json:"message,omitempty"`
}

// Options configures a Reconciler
type Options struct {
	// ForceRecalculate re-estimates every named row, discarding existing values
	ForceRecalculate bool
	// Concurrency is the number of slots in flight; values <= 1 are sequential
	Concurrency int
	// OnProgress, when set, is called serially for every slot event
	OnProgress func(ProgressEvent)
	Logger     *slog.Logger
}

// Reconciler runs select, describe, dispatch and merge over a plan
type Reconciler struct {
	resolver Resolver
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	progressMu sync.Mutex
}

// New creates a reconciler backed by resolver
func New(resolver Resolver, opts Options) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		resolver: resolver,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile returns an updated copy of plan and a report with one outcome
// per slot in plan order. The input plan is not modified. A failed slot keeps
// its rows unchanged and does not stop the remaining slots.
func (r *Reconciler) Reconcile(ctx context.Context, plan *types.DietPlan) (*types.DietPlan, *types.ReconcileReport, error) {
	if plan == nil {
		return nil, nil, fmt.Errorf("plan is nil")
	}
	if err := plan.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid plan: %w", err)
	}

	out := plan.Clone()
	report := &types.ReconcileReport{
		ID:        ulid.Make().String(),
		Force:     r.opts.ForceRecalculate,
		StartedAt: r.now().UTC(),
		Slots:     make([]types.SlotOutcome, len(out.Slots)),
	}

	if r.opts.Concurrency <= 1 {
		for i := range out.Slots {
			report.Slots[i] = r.reconcileSlot(ctx, &out.Slots[i], i, len(out.Slots))
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(r.opts.Concurrency)
		for i := range out.Slots {
			g.Go(func() error {
				// Each goroutine owns exactly one slot and one outcome index
				report.Slots[i] = r.reconcileSlot(ctx, &out.Slots[i], i, len(out.Slots))
				return nil
			})
		}
		_ = g.Wait()
	}

	report.CompletedAt = r.now().UTC()
	r.logger.Info("reconcile: plan processed",
		"report", report.ID,
		"slots", len(report.Slots),
		"estimator_calls", report.EstimatorCalls(),
		"failed", len(report.Failed()),
		"force", report.Force)
	return out, report, nil
}

func (r *Reconciler) reconcileSlot(ctx context.Context, slot *types.MealSlot, index, total int) types.SlotOutcome {
	outcome := types.SlotOutcome{Label: slot.Label}

	sel := Select(*slot, r.opts.ForceRecalculate)
	if sel.Empty() {
		outcome.Status = types.SlotSkipped
		r.emit(ProgressEvent{Slot: slot.Label, Index: index, Total: total, Status: ProgressSkipped})
		return outcome
	}
	outcome.Positions = sel.Positions
	outcome.Descriptions = sel.Descriptions

	if err := ctx.Err(); err != nil {
		return r.fail(outcome, index, total, err)
	}

	r.emit(ProgressEvent{
		Slot:    slot.Label,
		Index:   index,
		Total:   total,
		Status:  ProgressStarted,
		Message: fmt.Sprintf("estimating %d items", len(sel.Descriptions)),
	})

	start := time.Now()
	estimates, err := r.resolver.ResolveBatch(ctx, sel.Descriptions)
	if err != nil {
		return r.fail(outcome, index, total, err)
	}
	if err := Merge(slot, sel.Positions, estimates); err != nil {
		return r.fail(outcome, index, total, err)
	}

	r.logger.Debug("reconcile: slot resolved",
		"slot", slot.Label,
		"items", len(sel.Positions),
		"duration", time.Since(start))
	outcome.Status = types.SlotResolved
	r.emit(ProgressEvent{Slot: slot.Label, Index: index, Total: total, Status: ProgressResolved})
	return outcome
}

func (r *Reconciler) fail(outcome types.SlotOutcome, index, total int, err error) types.SlotOutcome {
	r.logger.Warn("reconcile: slot failed", "slot", outcome.Label, "error", err)
	outcome.Status = types.SlotFailed
	outcome.Error = err.Error()
	r.emit(ProgressEvent{Slot: outcome.Label, Index: index, Total: total, Status: ProgressFailed, Message: outcome.Error})
	return outcome
}

func (r *Reconciler) emit(ev ProgressEvent) {
	if r.opts.OnProgress == nil {
		return
	}
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.opts.OnProgress(ev)
}
