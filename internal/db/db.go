package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/jonathan/nutricalc/internal/types"
)

// PostgresStore wraps a PostgreSQL connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and applies pending migrations
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	err = RunMigrations(sqlDB, DialectPostgres)
	_ = sqlDB.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// CreatePlan stores a new plan under a fresh UUID
func (s *PostgresStore) CreatePlan(ctx context.Context, name string, plan *types.DietPlan) (*PlanRecord, error) {
	doc, err := encodePlan(plan)
	if err != nil {
		return nil, err
	}

	rec := &PlanRecord{ID: uuid.New(), Name: name, Plan: plan.Clone()}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO diet_plans (id, name, document)
		 VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		rec.ID, name, doc,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}
	return rec, nil
}

// GetPlan retrieves a plan by ID
func (s *PostgresStore) GetPlan(ctx context.Context, id uuid.UUID) (*PlanRecord, error) {
	var rec PlanRecord
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, document, created_at, updated_at
		 FROM diet_plans WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.Name, &doc, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	if rec.Plan, err = decodePlan(doc); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListPlans returns all plans, most recently updated first
func (s *PostgresStore) ListPlans(ctx context.Context) ([]PlanRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, document, created_at, updated_at
		 FROM diet_plans ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	records := []PlanRecord{}
	for rows.Next() {
		var rec PlanRecord
		var doc []byte
		if err := rows.Scan(&rec.ID, &rec.Name, &doc, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		if rec.Plan, err = decodePlan(doc); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdatePlan replaces the plan document and name
func (s *PostgresStore) UpdatePlan(ctx context.Context, id uuid.UUID, name string, plan *types.DietPlan) (*PlanRecord, error) {
	doc, err := encodePlan(plan)
	if err != nil {
		return nil, err
	}

	rec := &PlanRecord{ID: id, Name: name, Plan: plan.Clone()}
	err = s.pool.QueryRow(ctx,
		`UPDATE diet_plans SET name = $2, document = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		id, name, doc,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}
	return rec, nil
}

// DeletePlan removes a plan and, by cascade, its reports
func (s *PostgresStore) DeletePlan(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM diet_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveReport stores a reconciliation report against a plan
func (s *PostgresStore) SaveReport(ctx context.Context, planID uuid.UUID, report *types.ReconcileReport) error {
	doc, err := jsonReport(report)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO reconcile_reports (id, plan_id, report, failed_slots, created_at)
		 SELECT $1::text, id, $3::jsonb, $4::int, $5::timestamptz FROM diet_plans WHERE id = $2`,
		report.ID, planID, doc, len(report.Failed()), completedAt(report),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReports returns a plan's reports, oldest first
func (s *PostgresStore) ListReports(ctx context.Context, planID uuid.UUID) ([]types.ReconcileReport, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM diet_plans WHERE id = $1)`, planID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check plan: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT report FROM reconcile_reports WHERE plan_id = $1 ORDER BY id`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []types.ReconcileReport{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report, err := decodeReport(doc)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func completedAt(report *types.ReconcileReport) time.Time {
	if report.CompletedAt.IsZero() {
		return time.Now().UTC()
	}
	return report.CompletedAt
}

// Compile-time interface checks
var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
