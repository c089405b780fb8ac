package dep

import (
	"context"
	"strings"
	"testing"

	"github.com/me/godag/pkg/model"
)

func TestRunIfTrue(t *testing.T) {
	st := testStore(t)
	dag := &model.Dag{ID: "cond", Tasks: []model.TaskDef{{ID: "work", RunIf: "ti.try_number < 3"}}}
	ti := fixture(t, st, dag, nil)

	statuses, err := NewRunIfDep().Evaluate(context.Background(), ti, NewContext(st))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("got %d statuses, want 0: %+v", len(statuses), statuses)
	}
}

func TestRunIfFalse(t *testing.T) {
	st := testStore(t)
	dag := &model.Dag{ID: "cond_f", Tasks: []model.TaskDef{{ID: "work", RunIf: "ti.task_id === 'other'"}}}
	ti := fixture(t, st, dag, nil)

	statuses, err := NewRunIfDep().Evaluate(context.Background(), ti, NewContext(st))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("got %d statuses, want 1", len(statuses))
	}
	if !strings.Contains(statuses[0].Reason, "run_if condition evaluated to false") {
		t.Errorf("reason = %q", statuses[0].Reason)
	}
}

func TestRunIfAbsentIsVacuous(t *testing.T) {
	st := testStore(t)
	dag := &model.Dag{ID: "plain", Tasks: []model.TaskDef{{ID: "work"}}}
	ti := fixture(t, st, dag, nil)

	statuses, err := NewRunIfDep().Evaluate(context.Background(), ti, NewContext(st))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("got %d statuses, want 0", len(statuses))
	}
}

// A broken predicate surfaces as an error, not a failing status.
func TestRunIfBrokenExpressionErrors(t *testing.T) {
	st := testStore(t)
	dag := &model.Dag{ID: "broken", Tasks: []model.TaskDef{{ID: "work", RunIf: "ti.("}}}
	ti := fixture(t, st, dag, nil)

	_, err := NewRunIfDep().Evaluate(context.Background(), ti, NewContext(st))
	if err == nil {
		t.Fatal("Evaluate should error on a broken expression")
	}
}

func TestRunIfSeesRunContext(t *testing.T) {
	st := testStore(t)
	dag := &model.Dag{ID: "runref", Tasks: []model.TaskDef{{ID: "work", RunIf: "run.logical_date === '2023-05-01T00:00:00Z'"}}}
	logical := now.AddDate(0, -1, 0)
	ti := fixture(t, st, dag, &logical)

	statuses, err := NewRunIfDep().Evaluate(context.Background(), ti, NewContext(st))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("got %d statuses, want 0: %+v", len(statuses), statuses)
	}
}
