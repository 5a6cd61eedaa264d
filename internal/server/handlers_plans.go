package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jonathan/nutricalc/internal/types"
)

// CreatePlanRequest is the body of POST /plans. A missing plan starts from the default schedule.
type CreatePlanRequest struct {
	Name string          `json:"name"`
	Plan *types.DietPlan `json:"plan,omitempty"`
}

// UpdatePlanRequest is the body of PUT /plans/{id}. An empty name keeps the current one.
type UpdatePlanRequest struct {
	Name string          `json:"name,omitempty"`
	Plan *types.DietPlan `json:"plan"`
}

// StoredReconcileRequest is the body of POST /plans/{id}/reconcile
type StoredReconcileRequest struct {
	Force   bool                 `json:"force,omitempty"`
	Targets *types.EnergyTargets `json:"targets,omitempty"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.fail(w, r, &ErrValidation{Field: "name", Message: "is required"})
		return
	}
	if req.Plan == nil {
		req.Plan = types.DefaultPlan()
	}

	record, err := s.store.CreatePlan(r.Context(), req.Name, req.Plan)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, record)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListPlans(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"plans": records})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := planID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	record, err := s.store.GetPlan(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := planID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req UpdatePlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := requirePlan(req.Plan); err != nil {
		s.fail(w, r, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		current, err := s.store.GetPlan(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		name = current.Name
	}

	record, err := s.store.UpdatePlan(r.Context(), id, name, req.Plan)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := planID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.DeletePlan(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReconcileStored reconciles a stored plan, saves the result and
// records the report, even when some slots failed.
func (s *Server) handleReconcileStored(w http.ResponseWriter, r *http.Request) {
	id, err := planID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req StoredReconcileRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	record, err := s.store.GetPlan(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := s.reconcile(r, ReconcileRequest{Plan: record.Plan, Force: req.Force, Targets: req.Targets}, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.store.UpdatePlan(r.Context(), id, record.Name, resp.Plan); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.SaveReport(r.Context(), id, resp.Report); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleResetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := planID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	record, err := s.store.GetPlan(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	record.Plan.Reset()
	updated, err := s.store.UpdatePlan(r.Context(), id, record.Name, record.Plan)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	id, err := planID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Distinguish an unknown plan from one with no reports
	if _, err := s.store.GetPlan(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	reports, err := s.store.ListReports(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if reports == nil {
		reports = []types.ReconcileReport{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"reports": reports})
}

func planID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	return id, nil
}
