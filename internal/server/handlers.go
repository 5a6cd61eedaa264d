package server

import (
	"net/http"

	"github.com/jonathan/nutricalc/internal/aggregate"
	"github.com/jonathan/nutricalc/internal/reconcile"
	"github.com/jonathan/nutricalc/internal/targets"
	"github.com/jonathan/nutricalc/internal/types"
)

// TargetsRequest is the body of POST /targets
type TargetsRequest struct {
	Profile  types.Profile        `json:"profile"`
	Activity string               `json:"activity"`
	Goal     types.Goal           `json:"goal"`
	Ratios   types.MacroRatios    `json:"ratios,omitempty"`
	Split    *targets.EnergySplit `json:"split,omitempty"`
}

// ReconcileRequest is the body of POST /plans/reconcile and its stream variant
type ReconcileRequest struct {
	Plan    *types.DietPlan      `json:"plan"`
	Force   bool                 `json:"force,omitempty"`
	Targets *types.EnergyTargets `json:"targets,omitempty"`
}

// ReconcileResponse carries the updated plan, its report and a fresh summary
type ReconcileResponse struct {
	Plan    *types.DietPlan        `json:"plan"`
	Report  *types.ReconcileReport `json:"report"`
	Summary types.PlanSummary      `json:"summary"`
}

// SummaryRequest is the body of POST /plans/summary
type SummaryRequest struct {
	Plan    *types.DietPlan      `json:"plan"`
	Targets *types.EnergyTargets `json:"targets,omitempty"`
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	var req TargetsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	activity, err := types.ParseActivityLevel(req.Activity)
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "activity", Message: err.Error()})
		return
	}
	if req.Goal.Kind == "" {
		req.Goal = types.Maintain()
	}

	result, err := targets.Compute(req.Profile, activity, req.Goal, req.Ratios)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Split != nil {
		if result, err = targets.ApplyEnergySplit(result, *req.Split); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleDefaultPlan(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, types.DefaultPlan())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := requirePlan(req.Plan); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, aggregate.Summarize(req.Plan, req.Targets))
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeReconcile(w, r)
	if !ok {
		return
	}

	resp, err := s.reconcile(r, req, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleReconcileStream emits one "progress" event per slot transition and a
// final "complete" event carrying the plan, report and summary.
func (s *Server) handleReconcileStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeReconcile(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Reconciler serializes OnProgress calls, so writes never interleave
	resp, err := s.reconcile(r, req, func(ev reconcile.ProgressEvent) {
		sse.WriteEvent("progress", ev) //nolint:errcheck
	})
	if err != nil {
		sse.WriteError(err.Error())
		return
	}

	status := "completed"
	if resp.Report.HasFailures() {
		status = "partial"
	}
	sse.WriteComplete(status, resp)
}

func (s *Server) decodeReconcile(w http.ResponseWriter, r *http.Request) (ReconcileRequest, bool) {
	var req ReconcileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return req, false
	}
	if err := requirePlan(req.Plan); err != nil {
		s.fail(w, r, err)
		return req, false
	}
	return req, true
}

// reconcile runs one reconciliation bound to the request context
func (s *Server) reconcile(r *http.Request, req ReconcileRequest, onProgress func(reconcile.ProgressEvent)) (*ReconcileResponse, error) {
	rec := reconcile.New(s.resolver, reconcile.Options{
		ForceRecalculate: req.Force,
		Concurrency:      s.concurrency,
		OnProgress:       onProgress,
		Logger:           s.logger,
	})

	plan, report, err := rec.Reconcile(r.Context(), req.Plan)
	if err != nil {
		return nil, err
	}
	return &ReconcileResponse{
		Plan:    plan,
		Report:  report,
		Summary: aggregate.Summarize(plan, req.Targets),
	}, nil
}

func requirePlan(plan *types.DietPlan) error {
	if plan == nil {
		return &ErrValidation{Field: "plan", Message: "is required"}
	}
	if err := plan.Validate(); err != nil {
		return &ErrValidation{Field: "plan", Message: err.Error()}
	}
	return nil
}
