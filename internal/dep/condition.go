package dep

import (
	"context"
	"fmt"

	"github.com/me/godag/internal/jsexpr"
	"github.com/me/godag/internal/timeutil"
	"github.com/me/godag/pkg/model"
)

// RunIfDep evaluates a task definition's optional run_if predicate: a small
// JavaScript expression over the task instance and its run. A false result
// yields one failing status; an absent predicate passes vacuously.
type RunIfDep struct {
	eval *jsexpr.Evaluator
}

// NewRunIfDep creates the run-condition dependency.
func NewRunIfDep() *RunIfDep {
	return &RunIfDep{eval: jsexpr.NewEvaluator()}
}

// Name implements Dependency.
func (d *RunIfDep) Name() string {
	return "Run Condition"
}

// Ignorable implements Dependency.
func (d *RunIfDep) Ignorable() bool {
	return true
}

// Evaluate implements Dependency. A predicate that fails to evaluate is an
// error, not a failing status: a broken expression should surface to the
// scheduler's error log rather than silently gate the task.
func (d *RunIfDep) Evaluate(ctx context.Context, ti *model.TaskInstance, dctx *Context) ([]Status, error) {
	if dctx.Flag(FlagIgnoreAllDeps) {
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
	if task == nil || task.RunIf == "" {
		return nil, nil
	}

	vars := map[string]any{
		"ti": map[string]any{
			"task_id":    ti.TaskID,
			"dag_id":     ti.DagID,
			"try_number": ti.TryNumber,
			"max_tries":  ti.MaxTries,
			"state":      ti.State.String(),
		},
	}
	if run, err := dctx.DagRun(ctx, ti); err != nil {
		return nil, err
	} else if run != nil {
		runVars := map[string]any{"id": run.ID, "state": run.State.String()}
		if run.LogicalDate != nil {
			runVars["logical_date"] = timeutil.Format(*run.LogicalDate)
		}
		vars["run"] = runVars
	}

	ok, err := d.eval.EvalBool(task.RunIf, vars)
	if err != nil {
		return nil, fmt.Errorf("run_if for %s: %w", ti.Key(), err)
	}
	if !ok {
		return []Status{FailingStatus(fmt.Sprintf(
			"Task's run_if condition evaluated to false: %s", task.RunIf))}, nil
	}
	return nil, nil
}
