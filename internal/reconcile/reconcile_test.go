package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nutricalc/internal/estimator"
	"github.com/jonathan/nutricalc/internal/types"
)

// MockResolver implements Resolver for testing
type MockResolver struct {
	ResolveBatchFunc func(ctx context.Context, descriptions []string) ([]types.MacroEstimate, error)

	mu      sync.Mutex
	batches [][]string
}

func (m *MockResolver) ResolveBatch(ctx context.Context, descriptions []string) ([]types.MacroEstimate, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), descriptions...))
	m.mu.Unlock()
	if m.ResolveBatchFunc != nil {
		return m.ResolveBatchFunc(ctx, descriptions)
	}
	return indexedEstimates(descriptions), nil
}

func (m *MockResolver) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// indexedEstimates returns distinct values per position: kcal 100, 200, 300...
func indexedEstimates(descriptions []string) []types.MacroEstimate {
	out := make([]types.MacroEstimate, len(descriptions))
	for i := range descriptions {
		n := float64(i + 1)
		out[i] = types.MacroEstimate{Kcal: 100 * n, ProteinG: 10 * n, CarbG: 20 * n, FatG: n}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func planOf(slots ...types.MealSlot) *types.DietPlan {
	return &types.DietPlan{Slots: slots}
}

func TestSelect(t *testing.T) {
	slot := types.MealSlot{Label: "Lunch", Rows: []types.FoodRow{
		{Name: "Rice", Quantity: "100g"},
		{},
		{Name: "Egg", Quantity: "2un", Kcal: 70, ProteinG: 6, FatG: 5},
	}}

	sel := Select(slot, false)
	assert.Equal(t, []int{0}, sel.Positions)
	assert.Equal(t, []string{"100g Rice"}, sel.Descriptions)

	forced := Select(slot, true)
	assert.Equal(t, []int{0, 2}, forced.Positions)
	assert.Equal(t, []string{"100g Rice", "2un Egg"}, forced.Descriptions)

	assert.True(t, Select(types.MealSlot{Rows: []types.FoodRow{{}, {Quantity: "100g"}}}, true).Empty())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		row  types.FoodRow
		want string
	}{
		{types.FoodRow{Name: "arroz", Quantity: "200g de"}, "200g de arroz"},
		{types.FoodRow{Name: "banana"}, "1 portion banana"},
		{types.FoodRow{Name: " oats ", Quantity: "  "}, "1 portion oats"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.row))
	}
}

func TestMerge_OrderPreserving(t *testing.T) {
	slot := types.MealSlot{Label: "Dinner", Rows: []types.FoodRow{
		{Name: "a"},
		{Name: "kept-1", Kcal: 11, ProteinG: 1, CarbG: 1, FatG: 1},
		{Name: "b"},
		{Name: "kept-2", Kcal: 22, ProteinG: 2, CarbG: 2, FatG: 2},
		{Name: "c"},
	}}
	estimates := []types.MacroEstimate{
		{Kcal: 100, ProteinG: 10, CarbG: 20, FatG: 1},
		{Kcal: 200, ProteinG: 20, CarbG: 40, FatG: 2},
		{Kcal: 300, ProteinG: 30, CarbG: 60, FatG: 3},
	}

	require.NoError(t, Merge(&slot, []int{0, 2, 4}, estimates))

	assert.Equal(t, 100.0, slot.Rows[0].Kcal)
	assert.Equal(t, 200.0, slot.Rows[2].Kcal)
	assert.Equal(t, 300.0, slot.Rows[4].Kcal)
	assert.Equal(t, 3.0, slot.Rows[4].FatG)
	assert.Equal(t, types.FoodRow{Name: "kept-1", Kcal: 11, ProteinG: 1, CarbG: 1, FatG: 1}, slot.Rows[1])
	assert.Equal(t, types.FoodRow{Name: "kept-2", Kcal: 22, ProteinG: 2, CarbG: 2, FatG: 2}, slot.Rows[3])
}

func TestMerge_Errors(t *testing.T) {
	slot := types.MealSlot{Label: "Lunch", Rows: []types.FoodRow{{Name: "a"}, {Name: "b"}}}

	err := Merge(&slot, []int{0, 1}, indexedEstimates([]string{"x"}))
	var mergeErr *MergeError
	require.True(t, errors.As(err, &mergeErr))
	assert.Equal(t, 2, mergeErr.Expected)
	assert.Equal(t, 1, mergeErr.Got)

	assert.Error(t, Merge(&slot, []int{5}, indexedEstimates([]string{"x"})))
	assert.Zero(t, slot.Rows[0].Kcal)
}

func TestReconcile_ResolvesOnlyUnresolvedRows(t *testing.T) {
	resolver := &MockResolver{}
	plan := planOf(types.MealSlot{Label: "Lunch", Rows: []types.FoodRow{
		{Name: "Rice", Quantity: "100g"},
		{},
		{Name: "Egg", Quantity: "2un", Kcal: 70, ProteinG: 6, FatG: 5},
		{Name: "Beans"},
	}})

	updated, report, err := New(resolver, Options{Logger: quietLogger()}).Reconcile(context.Background(), plan)
	require.NoError(t, err)

	require.Equal(t, [][]string{{"100g Rice", "1 portion Beans"}}, resolver.batches)
	rows := updated.Slots[0].Rows
	assert.Equal(t, 100.0, rows[0].Kcal)
	assert.Equal(t, types.FoodRow{}, rows[1])
	assert.Equal(t, 70.0, rows[2].Kcal)
	assert.Equal(t, 200.0, rows[3].Kcal)

	require.Len(t, report.Slots, 1)
	assert.Equal(t, types.SlotResolved, report.Slots[0].Status)
	assert.Equal(t, []int{0, 3}, report.Slots[0].Positions)

	// Input plan is untouched
	assert.Zero(t, plan.Slots[0].Rows[0].Kcal)
}

func TestReconcile_Idempotent(t *testing.T) {
	resolver := &MockResolver{}
	r := New(resolver, Options{Logger: quietLogger()})
	plan := types.DefaultPlan()
	require.NoError(t, plan.AddRow("12:30 Lunch", types.FoodRow{Name: "Chicken", Quantity: "150g"}))
	plan.Slots[0].Rows[0] = types.FoodRow{Name: "Oats", Quantity: "40g"}

	first, report, err := r.Reconcile(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.Calls())
	assert.Equal(t, 2, report.EstimatorCalls())

	second, report, err := r.Reconcile(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.Calls())
	assert.Equal(t, 0, report.EstimatorCalls())
	assert.Empty(t, report.Resolved())
	assert.Equal(t, first, second)
}

func TestReconcile_PartialFailureIsolation(t *testing.T) {
	resolver := &MockResolver{ResolveBatchFunc: func(_ context.Context, descriptions []string) ([]types.MacroEstimate, error) {
		if strings.Contains(descriptions[0], "mystery") {
			return nil, &estimator.EstimationFailure{
				BatchSize: len(descriptions),
				Attempts:  []estimator.AttemptError{{Backend: "a", Kind: estimator.FailureTransport, Message: "request failed"}},
			}
		}
		return indexedEstimates(descriptions), nil
	}}
	plan := planOf(
		types.MealSlot{Label: "A", Rows: []types.FoodRow{{Name: "mystery meat"}, {Name: "bread"}}},
		types.MealSlot{Label: "B", Rows: []types.FoodRow{{Name: "apple"}}},
	)

	updated, report, err := New(resolver, Options{Logger: quietLogger()}).Reconcile(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, plan.Slots[0], updated.Slots[0])
	assert.Equal(t, 100.0, updated.Slots[1].Rows[0].Kcal)

	assert.Equal(t, []string{"A"}, report.Failed())
	assert.Equal(t, []string{"B"}, report.Resolved())
	assert.True(t, report.HasFailures())
	assert.Contains(t, report.Slots[0].Error, "request failed")
}

func TestReconcile_ForceRecalculate(t *testing.T) {
	resolver := &MockResolver{}
	plan := planOf(types.MealSlot{Label: "Snack", Rows: []types.FoodRow{
		{Name: "Yogurt", Kcal: 999, ProteinG: 99},
		{},
		{Name: "Granola"},
	}})

	updated, report, err := New(resolver, Options{ForceRecalculate: true, Logger: quietLogger()}).Reconcile(context.Background(), plan)
	require.NoError(t, err)

	assert.True(t, report.Force)
	assert.Equal(t, 100.0, updated.Slots[0].Rows[0].Kcal)
	assert.Equal(t, 10.0, updated.Slots[0].Rows[0].ProteinG)
	assert.Equal(t, types.FoodRow{}, updated.Slots[0].Rows[1])
	assert.Equal(t, 200.0, updated.Slots[0].Rows[2].Kcal)
}

func TestReconcile_WrongEstimateCountFailsSlot(t *testing.T) {
	resolver := &MockResolver{ResolveBatchFunc: func(context.Context, []string) ([]types.MacroEstimate, error) {
		return indexedEstimates([]string{"only one"}), nil
	}}
	plan := planOf(types.MealSlot{Label: "Lunch", Rows: []types.FoodRow{{Name: "a"}, {Name: "b"}}})

	updated, report, err := New(resolver, Options{Logger: quietLogger()}).Reconcile(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, types.SlotFailed, report.Slots[0].Status)
	assert.Zero(t, updated.Slots[0].Rows[0].Kcal)
	assert.Zero(t, updated.Slots[0].Rows[1].Kcal)
}

func TestReconcile_Concurrent(t *testing.T) {
	resolver := &MockResolver{ResolveBatchFunc: func(_ context.Context, descriptions []string) ([]types.MacroEstimate, error) {
		time.Sleep(5 * time.Millisecond)
		// Encode the slot number carried in the description into kcal
		out := make([]types.MacroEstimate, len(descriptions))
		for i, d := range descriptions {
			out[i] = types.MacroEstimate{Kcal: float64(len(d))*1000 + float64(i+1)}
		}
		return out, nil
	}}
	plan := &types.DietPlan{}
	labels := []string{"s1", "s2", "s3", "s4", "s5", "s6"}
	for i, label := range labels {
		_, err := plan.AddSlot(label)
		require.NoError(t, err)
		name := strings.Repeat("x", i+1)
		require.NoError(t, plan.AddRow(label, types.FoodRow{Name: name, Quantity: "1"}))
		require.NoError(t, plan.AddRow(label, types.FoodRow{Name: name, Quantity: "2"}))
	}

	updated, report, err := New(resolver, Options{Concurrency: 3, Logger: quietLogger()}).Reconcile(context.Background(), plan)
	require.NoError(t, err)

	var reported []string
	for _, s := range report.Slots {
		reported = append(reported, s.Label)
		assert.Equal(t, types.SlotResolved, s.Status)
	}
	assert.Equal(t, labels, reported)

	for i, slot := range updated.Slots {
		descLen := float64(len("1 ") + i + 1)
		assert.Equal(t, descLen*1000+1, slot.Rows[0].Kcal, slot.Label)
		assert.Equal(t, descLen*1000+2, slot.Rows[1].Kcal, slot.Label)
	}
	assert.Equal(t, 6, resolver.Calls())
}

func TestReconcile_CancelledContext(t *testing.T) {
	resolver := &MockResolver{}
	plan := planOf(
		types.MealSlot{Label: "A", Rows: []types.FoodRow{{Name: "a"}}},
		types.MealSlot{Label: "B", Rows: []types.FoodRow{{}}},
		types.MealSlot{Label: "C", Rows: []types.FoodRow{{Name: "c"}}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, report, err := New(resolver, Options{Logger: quietLogger()}).Reconcile(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, 0, resolver.Calls())
	assert.Equal(t, []string{"A", "C"}, report.Failed())
	assert.Equal(t, types.SlotSkipped, report.Slots[1].Status)
	assert.Contains(t, report.Slots[0].Error, context.Canceled.Error())
}

func TestReconcile_ProgressEvents(t *testing.T) {
	var events []ProgressEvent
	resolver := &MockResolver{ResolveBatchFunc: func(_ context.Context, d []string) ([]types.MacroEstimate, error) {
		if d[0] == "1 portion bad" {
			return nil, errors.New("boom")
		}
		return indexedEstimates(d), nil
	}}
	plan := planOf(
		types.MealSlot{Label: "A", Rows: []types.FoodRow{{Name: "good"}}},
		types.MealSlot{Label: "B"},
		types.MealSlot{Label: "C", Rows: []types.FoodRow{{Name: "bad"}}},
	)

	_, _, err := New(resolver, Options{
		OnProgress: func(ev ProgressEvent) { events = append(events, ev) },
		Logger:     quietLogger(),
	}).Reconcile(context.Background(), plan)
	require.NoError(t, err)

	var got []string
	for _, ev := range events {
		got = append(got, ev.Slot+":"+string(ev.Status))
		assert.Equal(t, 3, ev.Total)
	}
	assert.Equal(t, []string{"A:started", "A:resolved", "B:skipped", "C:started", "C:failed"}, got)
	assert.Equal(t, "boom", events[4].Message)
}

func TestReconcile_Report(t *testing.T) {
	r := New(&MockResolver{}, Options{Logger: quietLogger()})
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	_, report, err := r.Reconcile(context.Background(), types.DefaultPlan())
	require.NoError(t, err)

	_, err = ulid.Parse(report.ID)
	assert.NoError(t, err)
	assert.Equal(t, fixed, report.StartedAt)
	assert.Equal(t, fixed, report.CompletedAt)
	assert.Len(t, report.Slots, 6)
	assert.False(t, report.HasFailures())
}

func TestReconcile_InvalidPlan(t *testing.T) {
	r := New(&MockResolver{}, Options{Logger: quietLogger()})

	_, _, err := r.Reconcile(context.Background(), nil)
	assert.Error(t, err)

	_, _, err = r.Reconcile(context.Background(), planOf(types.MealSlot{Label: "A"}, types.MealSlot{Label: "A"}))
	assert.Error(t, err)
}

func TestReconcile_WithGateway(t *testing.T) {
	backend := estimator.NewHTTPBackend("unused", "http://127.0.0.1:0", nil)
	gw := estimator.NewGateway([]estimator.Backend{backend}, estimator.Options{AttemptTimeout: time.Second, Logger: quietLogger()})

	plan := planOf(types.MealSlot{Label: "A", Rows: []types.FoodRow{{Name: "a"}}})
	updated, report, err := New(gw, Options{Logger: quietLogger()}).Reconcile(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, report.Failed())
	assert.Contains(t, report.Slots[0].Error, "unused")
	assert.Zero(t, updated.Slots[0].Rows[0].Kcal)
}
