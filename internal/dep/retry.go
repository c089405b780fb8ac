package dep

import (
	"context"
	"fmt"

	"github.com/me/godag/internal/timeutil"
	"github.com/me/godag/pkg/model"
)

// NotInRetryPeriodDep blocks a task instance that failed recently from
// re-running before its retry delay has elapsed.
type NotInRetryPeriodDep struct {
	clock timeutil.Clock
}

// NewNotInRetryPeriodDep creates the retry-backoff dependency.
func NewNotInRetryPeriodDep(clock timeutil.Clock) *NotInRetryPeriodDep {
	return &NotInRetryPeriodDep{clock: clock}
}

// Name implements Dependency.
func (d *NotInRetryPeriodDep) Name() string {
	return "Not In Retry Period"
}

// Ignorable implements Dependency.
func (d *NotInRetryPeriodDep) Ignorable() bool {
	return true
}

// Evaluate implements Dependency. Only instances in UP_FOR_RETRY with a
// recorded end time are in a retry period; everything else passes.
func (d *NotInRetryPeriodDep) Evaluate(ctx context.Context, ti *model.TaskInstance, dctx *Context) ([]Status, error) {
	if dctx.Flag(FlagIgnoreAllDeps) || dctx.Flag(FlagIgnoreInRetryPeriod) {
		return nil, nil
	}
	if ti.State != model.TaskStateUpForRetry || ti.EndedAt == nil {
		return nil, nil
	}

	dag, err := dctx.Store().GetDag(ctx, ti.DagID)
	if err != nil {
		return nil, fmt.Errorf("resolve dag for %s: %w", ti.Key(), err)
	}
	if dag == nil {
		return nil, nil
	}
	task := dag.Task(ti.TaskID)
	if task == nil {
		return nil, nil
	}

	nextRetry := ti.EndedAt.UTC().Add(task.RetryDelay())
	now := d.clock.Now()
	if now.Before(nextRetry) {
		return []Status{FailingStatus(fmt.Sprintf(
			"Task is not ready for retry yet but will be retried automatically. Current date is %s and task will be retried at %s.",
			timeutil.Format(now), timeutil.Format(nextRetry)))}, nil
	}
	return nil, nil
}
