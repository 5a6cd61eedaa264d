package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/nutricalc/internal/types"
)

// SQLiteStore is the file-backed store used by the CLI
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dbPath, applies pragmas and runs migrations.
// Use ":memory:" for a throwaway store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := enablePragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db, DialectSQLite); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return t, nil
}

// CreatePlan stores a new plan under a fresh UUID
func (s *SQLiteStore) CreatePlan(ctx context.Context, name string, plan *types.DietPlan) (*PlanRecord, error) {
	doc, err := encodePlan(plan)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	ts := s.timestamp()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO diet_plans (id, name, document, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), name, string(doc), ts, ts,
	); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}
	return s.GetPlan(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*PlanRecord, error) {
	var rec PlanRecord
	var id, doc, created, updated string
	if err := row.Scan(&id, &rec.Name, &doc, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse plan id %q: %w", id, err)
	}
	if rec.Plan, err = decodePlan([]byte(doc)); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetPlan retrieves a plan by ID
func (s *SQLiteStore) GetPlan(ctx context.Context, id uuid.UUID) (*PlanRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, document, created_at, updated_at FROM diet_plans WHERE id = ?`,
		id.String(),
	)
	rec, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return rec, nil
}

// ListPlans returns all plans, most recently updated first
func (s *SQLiteStore) ListPlans(ctx context.Context) ([]PlanRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, document, created_at, updated_at FROM diet_plans ORDER BY updated_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []PlanRecord{}
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// UpdatePlan replaces the plan document and name
func (s *SQLiteStore) UpdatePlan(ctx context.Context, id uuid.UUID, name string, plan *types.DietPlan) (*PlanRecord, error) {
	doc, err := encodePlan(plan)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE diet_plans SET name = ?, document = ?, updated_at = ? WHERE id = ?`,
		name, string(doc), s.timestamp(), id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetPlan(ctx, id)
}

// DeletePlan removes a plan and, by cascade, its reports
func (s *SQLiteStore) DeletePlan(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM diet_plans WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveReport stores a reconciliation report against a plan
func (s *SQLiteStore) SaveReport(ctx context.Context, planID uuid.UUID, report *types.ReconcileReport) error {
	doc, err := jsonReport(report)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reconcile_reports (id, plan_id, report, failed_slots, created_at)
		 SELECT ?, id, ?, ?, ? FROM diet_plans WHERE id = ?`,
		report.ID, string(doc), len(report.Failed()), completedAt(report).Format(time.RFC3339Nano), planID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReports returns a plan's reports, oldest first
func (s *SQLiteStore) ListReports(ctx context.Context, planID uuid.UUID) ([]types.ReconcileReport, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM diet_plans WHERE id = ?`, planID.String(),
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check plan: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT report FROM reconcile_reports WHERE plan_id = ? ORDER BY id`,
		planID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	reports := []types.ReconcileReport{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report, err := decodeReport([]byte(doc))
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
