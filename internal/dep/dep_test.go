package dep

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/me/godag/internal/store"
	"github.com/me/godag/internal/timeutil"
	"github.com/me/godag/pkg/model"
)

// now is the frozen instant used across dependency tests.
var now = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// fixture seeds a dag, one run, and one SCHEDULED task instance, and returns
// the instance. Pass nil logicalDate for a run with no data interval.
func fixture(t *testing.T, st store.Store, dag *model.Dag, logicalDate *time.Time) *model.TaskInstance {
	t.Helper()
	ctx := context.Background()

	dag.CreatedAt = now
	dag.UpdatedAt = now
	if err := st.CreateDag(ctx, dag); err != nil {
		t.Fatalf("CreateDag: %v", err)
	}

	run := &model.DagRun{
		ID:          "run_" + dag.ID,
		DagID:       dag.ID,
		LogicalDate: logicalDate,
		State:       model.RunStateRunning,
		CreatedAt:   now,
	}
	if err := st.CreateDagRun(ctx, run); err != nil {
		t.Fatalf("CreateDagRun: %v", err)
	}

	ti := &model.TaskInstance{
		ID:        "ti_" + dag.ID + "_" + dag.Tasks[0].ID,
		RunID:     run.ID,
		DagID:     dag.ID,
		TaskID:    dag.Tasks[0].ID,
		State:     model.TaskStateScheduled,
		MaxTries:  dag.Tasks[0].MaxRetries,
		CreatedAt: now,
	}
	if err := st.CreateTaskInstance(ctx, ti); err != nil {
		t.Fatalf("CreateTaskInstance: %v", err)
	}
	return ti
}

func ptr(t time.Time) *time.Time { return &t }

// fakeDep is a configurable dependency for evaluator tests.
type fakeDep struct {
	name      string
	ignorable bool
	statuses  []Status
	err       error
	calls     int
}

func (d *fakeDep) Name() string    { return d.name }
func (d *fakeDep) Ignorable() bool { return d.ignorable }

func (d *fakeDep) Evaluate(ctx context.Context, ti *model.TaskInstance, dctx *Context) ([]Status, error) {
	d.calls++
	return d.statuses, d.err
}

var _ Dependency = (*fakeDep)(nil)
var _ Dependency = (*RunnableLogicalDateDep)(nil)
var _ Dependency = (*UpstreamSuccessDep)(nil)
var _ Dependency = (*NotInRetryPeriodDep)(nil)
var _ Dependency = (*RunIfDep)(nil)

func frozenClock() timeutil.Clock {
	return timeutil.NewFrozenClock(now)
}
