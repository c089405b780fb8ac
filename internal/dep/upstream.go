package dep

import (
	"context"
	"fmt"

	"github.com/me/godag/pkg/model"
)

// UpstreamSuccessDep checks that every upstream task of the instance has
// finished successfully within the same run.
type UpstreamSuccessDep struct{}

// NewUpstreamSuccessDep creates the upstream-success dependency.
func NewUpstreamSuccessDep() *UpstreamSuccessDep {
	return &UpstreamSuccessDep{}
}

// Name implements Dependency.
func (d *UpstreamSuccessDep) Name() string {
	return "Trigger Rule"
}

// Ignorable implements Dependency.
func (d *UpstreamSuccessDep) Ignorable() bool {
	return true
}

// Evaluate implements Dependency. A missing upstream instance counts as not
// done: the run may still be materializing its tasks.
func (d *UpstreamSuccessDep) Evaluate(ctx context.Context, ti *model.TaskInstance, dctx *Context) ([]Status, error) {
	if dctx.Flag(FlagIgnoreAllDeps) || dctx.Flag(FlagIgnoreTaskDeps) {
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
	if task == nil || len(task.Upstream) == 0 {
		return nil, nil
	}

	siblings, err := dctx.Store().ListTaskInstancesByRun(ctx, ti.RunID)
	if err != nil {
		return nil, fmt.Errorf("list task instances for run %s: %w", ti.RunID, err)
	}
	byTask := make(map[string]*model.TaskInstance, len(siblings))
	for _, s := range siblings {
		byTask[s.TaskID] = s
	}

	var done, failed int
	for _, up := range task.Upstream {
		upTI, ok := byTask[up]
		if !ok {
			continue
		}
		switch upTI.State {
		case model.TaskStateSuccess:
			done++
		case model.TaskStateFailed, model.TaskStateSkipped:
			failed++
		}
	}

	total := len(task.Upstream)
	if done == total {
		return nil, nil
	}

	return []Status{FailingStatus(fmt.Sprintf(
		"Task's upstream tasks have not succeeded: %d of %d done, %d failed or skipped.",
		done, total, failed))}, nil
}
