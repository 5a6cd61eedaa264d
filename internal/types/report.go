package types

import "time"

// SlotStatus is the reconciliation outcome for one meal slot
type SlotStatus string

const (
	// SlotResolved means every selected row received an estimate
	SlotResolved SlotStatus = "resolved"
	// SlotFailed means the estimator failed and no row was touched
	SlotFailed SlotStatus = "failed"
	// SlotSkipped means nothing in the slot needed estimating
	SlotSkipped SlotStatus = "skipped"
)

// SlotOutcome records what reconciliation did for one slot
type SlotOutcome struct {
	Label        string     `json:"label"`
	Status       SlotStatus `json:"status"`
	Positions    []int      `json:"positions,omitempty"`
	Descriptions []string   `json:"descriptions,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// ReconcileReport lists slot outcomes in plan order
type ReconcileReport struct {
	ID          string        `json:"id"`
	Force       bool          `json:"force"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Slots       []SlotOutcome `json:"slots"`
}

// Resolved returns the labels of slots that were updated
func (r *ReconcileReport) Resolved() []string {
	return r.labelsWith(SlotResolved)
}

// Failed returns the labels of slots whose estimation failed
func (r *ReconcileReport) Failed() []string {
	return r.labelsWith(SlotFailed)
}

// HasFailures reports whether any slot failed
func (r *ReconcileReport) HasFailures() bool {
	return len(r.Failed()) > 0
}

// EstimatorCalls counts slots that were dispatched to the estimator
func (r *ReconcileReport) EstimatorCalls() int {
	n := 0
	for _, s := range r.Slots {
		if s.Status != SlotSkipped {
			n++
		}
	}
	return n
}

func (r *ReconcileReport) labelsWith(status SlotStatus) []string {
	var labels []string
	for _, s := range r.Slots {
		if s.Status == status {
			labels = append(labels, s.Label)
		}
	}
	return labels
}
