package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nutricalc/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "nutricalc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func samplePlan() *types.DietPlan {
	return &types.DietPlan{Slots: []types.MealSlot{
		{Label: "07:00 Breakfast", Rows: []types.FoodRow{{Name: "Oats", Quantity: "40g"}, {}}},
		{Label: "12:30 Lunch", Rows: []types.FoodRow{{Name: "Rice", Quantity: "100g", Kcal: 130, ProteinG: 2.7, CarbG: 28, FatG: 0.3}}},
	}}
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	rec, err := store.CreatePlan(context.Background(), "mem", types.DefaultPlan())
	require.NoError(t, err)
	assert.Len(t, rec.Plan.Slots, 6)
}

func TestSQLiteStore_PlanLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.CreatePlan(ctx, "cutting week", samplePlan())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "cutting week", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.GetPlan(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, samplePlan(), got.Plan)
	assert.Equal(t, []string{"07:00 Breakfast", "12:30 Lunch"}, got.Plan.Labels())

	store.now = func() time.Time { return created.UpdatedAt.Add(time.Minute) }
	edited := samplePlan()
	edited.Slots[0].Rows[0].Kcal = 150
	updated, err := store.UpdatePlan(ctx, created.ID, "renamed", edited)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, 150.0, updated.Plan.Slots[0].Rows[0].Kcal)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	require.NoError(t, store.DeletePlan(ctx, created.ID))
	_, err = store.GetPlan(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListPlans(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	plans, err := store.ListPlans(ctx)
	require.NoError(t, err)
	assert.Empty(t, plans)

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	first, err := store.CreatePlan(ctx, "first", samplePlan())
	require.NoError(t, err)
	store.now = func() time.Time { return base.Add(time.Hour) }
	second, err := store.CreatePlan(ctx, "second", types.DefaultPlan())
	require.NoError(t, err)

	plans, err = store.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, second.ID, plans[0].ID)
	assert.Equal(t, first.ID, plans[1].ID)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	missing := uuid.New()

	_, err := store.GetPlan(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.UpdatePlan(ctx, missing, "x", samplePlan())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeletePlan(ctx, missing), ErrNotFound)
	assert.ErrorIs(t, store.SaveReport(ctx, missing, &types.ReconcileReport{ID: "01HZ"}), ErrNotFound)

	_, err = store.ListReports(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_RejectsInvalidPlan(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	dup := &types.DietPlan{Slots: []types.MealSlot{{Label: "A"}, {Label: "A"}}}
	_, err := store.CreatePlan(ctx, "dup", dup)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = store.CreatePlan(ctx, "nil", nil)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestSQLiteStore_Reports(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec, err := store.CreatePlan(ctx, "plan", samplePlan())
	require.NoError(t, err)

	reports := []*types.ReconcileReport{
		{
			ID:          "01HX0000000000000000000001",
			StartedAt:   time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
			CompletedAt: time.Date(2024, 5, 1, 8, 0, 2, 0, time.UTC),
			Slots: []types.SlotOutcome{
				{Label: "07:00 Breakfast", Status: types.SlotFailed, Positions: []int{0}, Error: "all backends failed"},
				{Label: "12:30 Lunch", Status: types.SlotSkipped},
			},
		},
		{
			ID:          "01HX0000000000000000000002",
			Force:       true,
			StartedAt:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
			CompletedAt: time.Date(2024, 5, 1, 9, 0, 1, 0, time.UTC),
			Slots:       []types.SlotOutcome{{Label: "07:00 Breakfast", Status: types.SlotResolved, Positions: []int{0}}},
		},
	}
	// Saved out of order; listing sorts by ULID
	require.NoError(t, store.SaveReport(ctx, rec.ID, reports[1]))
	require.NoError(t, store.SaveReport(ctx, rec.ID, reports[0]))

	got, err := store.ListReports(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, *reports[0], got[0])
	assert.Equal(t, *reports[1], got[1])

	assert.Error(t, store.SaveReport(ctx, rec.ID, &types.ReconcileReport{}))

	// Deleting the plan cascades to its reports
	require.NoError(t, store.DeletePlan(ctx, rec.ID))
	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(1) FROM reconcile_reports`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, RunMigrations(store.db, DialectSQLite))
}

func TestRunMigrations_UnsupportedDialect(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	err = RunMigrations(db, "mysql")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "unsupported dialect")
}
