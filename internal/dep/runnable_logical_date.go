package dep

import (
	"context"
	"fmt"

	"github.com/me/godag/internal/timeutil"
	"github.com/me/godag/pkg/model"
)

// RunnableLogicalDateDep determines whether a task instance's logical date is
// valid: not in the future, and not past the task's or the DAG's end date.
//
// The three checks are independent; every applicable failure is reported, so
// one evaluation may yield 0 to 3 statuses.
type RunnableLogicalDateDep struct {
	clock timeutil.Clock
}

// NewRunnableLogicalDateDep creates the logical-date dependency. The clock is
// injected so temporal checks are deterministic under test.
func NewRunnableLogicalDateDep(clock timeutil.Clock) *RunnableLogicalDateDep {
	return &RunnableLogicalDateDep{clock: clock}
}

// Name implements Dependency.
func (d *RunnableLogicalDateDep) Name() string {
	return "Logical Date"
}

// Ignorable implements Dependency. A user forcing a manual run may override
// a logical-date failure.
func (d *RunnableLogicalDateDep) Ignorable() bool {
	return true
}

// Evaluate implements Dependency.
//
// A task instance whose run or logical date cannot be resolved is vacuously
// satisfied: with no defined logical date there is nothing to judge against
// time bounds.
func (d *RunnableLogicalDateDep) Evaluate(ctx context.Context, ti *model.TaskInstance, dctx *Context) ([]Status, error) {
	if dctx.Flag(FlagIgnoreAllDeps) {
		return nil, nil
	}

	run, err := dctx.DagRun(ctx, ti)
	if err != nil {
		return nil, fmt.Errorf("resolve run for %s: %w", ti.Key(), err)
	}
	if run == nil || run.LogicalDate == nil {
		return nil, nil
	}
	logical := run.LogicalDate.UTC()

	curDate := d.clock.Now()

	var statuses []Status

	if logical.After(curDate) {
		statuses = append(statuses, FailingStatus(fmt.Sprintf(
			"Logical date %s is in the future (the current date is %s).",
			timeutil.Format(logical), timeutil.Format(curDate))))
	}

	dag, err := dctx.Store().GetDag(ctx, ti.DagID)
	if err != nil {
		return nil, fmt.Errorf("resolve dag for %s: %w", ti.Key(), err)
	}
	if dag == nil {
		return statuses, nil
	}

	if task := dag.Task(ti.TaskID); task != nil && task.EndDate != nil && logical.After(task.EndDate.UTC()) {
		statuses = append(statuses, FailingStatus(fmt.Sprintf(
			"The logical date is %s but this is after the task's end date %s.",
			timeutil.Format(logical), timeutil.Format(*task.EndDate))))
	}

	if dag.EndDate != nil && logical.After(dag.EndDate.UTC()) {
		statuses = append(statuses, FailingStatus(fmt.Sprintf(
			"The logical date is %s but this is after the DAG's end date %s.",
			timeutil.Format(logical), timeutil.Format(*dag.EndDate))))
	}

	return statuses, nil
}
