// Package db persists diet plans and their reconciliation reports.
// PostgreSQL backs the server; SQLite backs local CLI use.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/nutricalc/internal/types"
)

var (
	// ErrNotFound is returned when a plan ID does not exist
	ErrNotFound = errors.New("plan not found")
	// ErrInvalidPlan is returned when a plan fails validation before being stored
	ErrInvalidPlan = errors.New("invalid plan")
)

// PlanRecord is a stored plan with its metadata
type PlanRecord struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Plan      *types.DietPlan `json:"plan"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is the persistence contract shared by the PostgreSQL and SQLite backends
type Store interface {
	CreatePlan(ctx context.Context, name string, plan *types.DietPlan) (*PlanRecord, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*PlanRecord, error)
	ListPlans(ctx context.Context) ([]PlanRecord, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, name string, plan *types.DietPlan) (*PlanRecord, error)
	DeletePlan(ctx context.Context, id uuid.UUID) error
	SaveReport(ctx context.Context, planID uuid.UUID, report *types.ReconcileReport) error
	ListReports(ctx context.Context, planID uuid.UUID) ([]types.ReconcileReport, error)
	Close() error
}

func encodePlan(plan *types.DietPlan) ([]byte, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: plan is nil", ErrInvalidPlan)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan: %w", err)
	}
	return data, nil
}

func decodePlan(data []byte) (*types.DietPlan, error) {
	var plan types.DietPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	return &plan, nil
}

func jsonReport(report *types.ReconcileReport) ([]byte, error) {
	if report == nil || report.ID == "" {
		return nil, fmt.Errorf("report must have an ID")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

func decodeReport(data []byte) (types.ReconcileReport, error) {
	var report types.ReconcileReport
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return report, nil
}
