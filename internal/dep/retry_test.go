package dep

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/me/godag/internal/timeutil"
	"github.com/me/godag/pkg/model"
)

func retryFixture(t *testing.T, endedAgo time.Duration) (*model.TaskInstance, *Context) {
	t.Helper()
	st := testStore(t)
	dag := &model.Dag{
		ID:    "retrying",
		Tasks: []model.TaskDef{{ID: "flaky", MaxRetries: 3, RetryDelaySeconds: 300}},
	}
	ti := fixture(t, st, dag, nil)
	ti.State = model.TaskStateUpForRetry
	ti.TryNumber = 1
	ended := now.Add(-endedAgo)
	ti.EndedAt = &ended
	if err := st.UpdateTaskInstance(context.Background(), ti); err != nil {
		t.Fatalf("UpdateTaskInstance: %v", err)
	}
	return ti, NewContext(st)
}

func TestStillInRetryPeriod(t *testing.T) {
	ti, dctx := retryFixture(t, time.Minute) // delay is 5m, only 1m elapsed

	statuses, err := NewNotInRetryPeriodDep(timeutil.NewFrozenClock(now)).Evaluate(context.Background(), ti, dctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("got %d statuses, want 1", len(statuses))
	}
	if !strings.Contains(statuses[0].Reason, "not ready for retry yet") {
		t.Errorf("reason = %q", statuses[0].Reason)
	}
	// The reason cites the retry instant: ended 1m ago + 5m delay = now + 4m.
	if !strings.Contains(statuses[0].Reason, "retried at 2023-06-01T00:04:00Z") {
		t.Errorf("reason = %q", statuses[0].Reason)
	}
}

func TestRetryPeriodElapsed(t *testing.T) {
	ti, dctx := retryFixture(t, 10*time.Minute)

	statuses, err := NewNotInRetryPeriodDep(timeutil.NewFrozenClock(now)).Evaluate(context.Background(), ti, dctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("got %d statuses, want 0: %+v", len(statuses), statuses)
	}
}

func TestNotUpForRetryPasses(t *testing.T) {
	st := testStore(t)
	dag := &model.Dag{ID: "steady", Tasks: []model.TaskDef{{ID: "work"}}}
	ti := fixture(t, st, dag, nil) // SCHEDULED

	statuses, err := NewNotInRetryPeriodDep(timeutil.NewFrozenClock(now)).Evaluate(context.Background(), ti, NewContext(st))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("got %d statuses, want 0", len(statuses))
	}
}

func TestIgnoreInRetryPeriodFlag(t *testing.T) {
	ti, dctx := retryFixture(t, time.Minute)

	flagged := NewContext(dctx.Store(), WithFlag(FlagIgnoreInRetryPeriod))
	statuses, err := NewNotInRetryPeriodDep(timeutil.NewFrozenClock(now)).Evaluate(context.Background(), ti, flagged)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("got %d statuses, want 0 with ignore_in_retry_period", len(statuses))
	}
}
