package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/me/godag/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestDagRoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	end := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	dag := &model.Dag{
		ID:          "etl",
		Description: "extract transform load",
		Schedule:    "@daily",
		EndDate:     &end,
		Tasks: []model.TaskDef{
			{ID: "extract", MaxRetries: 2},
			{ID: "load", Upstream: []string{"extract"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateDag(ctx, dag); err != nil {
		t.Fatalf("CreateDag: %v", err)
	}

	got, err := st.GetDag(ctx, "etl")
	if err != nil {
		t.Fatalf("GetDag: %v", err)
	}
	if got == nil {
		t.Fatal("GetDag returned nil")
	}
	if len(got.Tasks) != 2 || got.Tasks[1].Upstream[0] != "extract" {
		t.Errorf("tasks round-trip = %+v", got.Tasks)
	}
	if got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Errorf("EndDate = %v, want %v", got.EndDate, end)
	}

	missing, err := st.GetDag(ctx, "nope")
	if err != nil {
		t.Fatalf("GetDag(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("GetDag(missing) = %+v, want nil", missing)
	}
}

// Timestamps are normalized on write: no matter what zone we hand the store,
// we always get back the same instant with a UTC location.
func TestTimestampsStoredUTC(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	warsaw := time.FixedZone("Europe/Warsaw", 2*3600)
	logical := time.Date(2024, 6, 1, 14, 30, 0, 0, warsaw)

	run := &model.DagRun{
		ID:          "run_tz",
		DagID:       "etl",
		LogicalDate: &logical,
		State:       model.RunStateQueued,
		CreatedAt:   time.Date(2024, 6, 1, 14, 30, 0, 0, warsaw),
	}
	if err := st.CreateDagRun(ctx, run); err != nil {
		t.Fatalf("CreateDagRun: %v", err)
	}

	got, err := st.GetDagRun(ctx, "run_tz")
	if err != nil {
		t.Fatalf("GetDagRun: %v", err)
	}
	if got.LogicalDate == nil {
		t.Fatal("LogicalDate is nil")
	}
	if got.LogicalDate.Location() != time.UTC {
		t.Errorf("LogicalDate location = %v, want UTC", got.LogicalDate.Location())
	}
	if !got.LogicalDate.Equal(logical) {
		t.Errorf("LogicalDate = %v, want same instant as %v", got.LogicalDate, logical)
	}
	if got.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location = %v, want UTC", got.CreatedAt.Location())
	}
}

// The logical date is written once at run creation; UpdateDagRun must not
// change it even if the caller mutated the struct.
func TestUpdateDagRunPreservesLogicalDate(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	logical := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	run := &model.DagRun{
		ID:          "run_1",
		DagID:       "etl",
		LogicalDate: &logical,
		State:       model.RunStateQueued,
		CreatedAt:   time.Now().UTC(),
	}
	if err := st.CreateDagRun(ctx, run); err != nil {
		t.Fatalf("CreateDagRun: %v", err)
	}

	mutated := logical.Add(24 * time.Hour)
	run.LogicalDate = &mutated
	run.State = model.RunStateRunning
	if err := st.UpdateDagRun(ctx, run); err != nil {
		t.Fatalf("UpdateDagRun: %v", err)
	}

	got, err := st.GetDagRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetDagRun: %v", err)
	}
	if got.State != model.RunStateRunning {
		t.Errorf("State = %s, want RUNNING", got.State)
	}
	if !got.LogicalDate.Equal(logical) {
		t.Errorf("LogicalDate = %v, want unchanged %v", got.LogicalDate, logical)
	}
}

func TestTaskInstanceLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ti := &model.TaskInstance{
		ID:        "ti_1",
		RunID:     "run_1",
		DagID:     "etl",
		TaskID:    "extract",
		State:     model.TaskStateScheduled,
		MaxTries:  3,
		CreatedAt: now,
	}
	if err := st.CreateTaskInstance(ctx, ti); err != nil {
		t.Fatalf("CreateTaskInstance: %v", err)
	}

	scheduled, err := st.GetTaskInstancesByState(ctx, model.TaskStateScheduled)
	if err != nil {
		t.Fatalf("GetTaskInstancesByState: %v", err)
	}
	if len(scheduled) != 1 || scheduled[0].ID != "ti_1" {
		t.Fatalf("scheduled = %+v, want [ti_1]", scheduled)
	}

	queued := now.Add(time.Second)
	ti.State = model.TaskStateQueued
	ti.QueuedAt = &queued
	if err := st.UpdateTaskInstance(ctx, ti); err != nil {
		t.Fatalf("UpdateTaskInstance: %v", err)
	}

	got, err := st.GetTaskInstance(ctx, "ti_1")
	if err != nil {
		t.Fatalf("GetTaskInstance: %v", err)
	}
	if got.State != model.TaskStateQueued {
		t.Errorf("State = %s, want QUEUED", got.State)
	}
	if got.QueuedAt == nil || !got.QueuedAt.Equal(queued) {
		t.Errorf("QueuedAt = %v, want %v", got.QueuedAt, queued)
	}

	byRun, err := st.ListTaskInstancesByRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("ListTaskInstancesByRun: %v", err)
	}
	if len(byRun) != 1 {
		t.Errorf("ListTaskInstancesByRun = %d items, want 1", len(byRun))
	}
}
