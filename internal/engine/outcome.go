package engine

import (
	"time"

	"cinetag/internal/reconciler"
	"cinetag/internal/visibility"
)

// Outcome is the structured report for one reconciliation cycle. Callers
// get the full per-link and per-grant breakdown, never a bare boolean.
type Outcome struct {
	RunID      string             `json:"run_id,omitempty"`
	StartedAt  time.Time          `json:"started_at,omitzero"`
	FinishedAt time.Time          `json:"finished_at,omitzero"`
	Reconcile  *reconciler.Result `json:"reconcile,omitempty"`
	Visibility *visibility.Result `json:"visibility,omitempty"`
	// VisibilityErr is set when the whole visibility pass failed after the
	// filesystem pass succeeded.
	VisibilityErr error `json:"-"`
	// Coalesced marks a trigger that was folded into an in-flight cycle;
	// the running cycle re-runs on the caller's behalf.
	Coalesced bool `json:"coalesced,omitempty"`
}

// Mutations counts all link and grant changes across both passes.
func (o *Outcome) Mutations() int {
	total := 0
	if o.Reconcile != nil {
		total += o.Reconcile.Mutations()
	}
	if o.Visibility != nil {
		total += o.Visibility.Mutations()
	}
	return total
}

// FailureCount counts per-entry failures across both passes.
func (o *Outcome) FailureCount() int {
	total := 0
	if o.Reconcile != nil {
		total += len(o.Reconcile.Failures)
	}
	if o.Visibility != nil {
		total += len(o.Visibility.Failures)
	}
	if o.VisibilityErr != nil {
		total++
	}
	return total
}
