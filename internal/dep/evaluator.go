package dep

import (
	"context"
	"log/slog"

	"github.com/me/godag/pkg/model"
)

// Evaluator runs a configured, ordered set of dependencies against a task
// instance and aggregates their statuses. The set is fixed at construction;
// evaluation order follows registration order so reason reporting is
// deterministic.
//
// Evaluators hold no per-call state: concurrent calls for different task
// instances are safe as long as each call gets its own Context.
type Evaluator struct {
	deps   []Dependency
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator over the given dependencies.
func NewEvaluator(logger *slog.Logger, deps ...Dependency) *Evaluator {
	return &Evaluator{
		deps:   deps,
		logger: logger.With("component", "dep_evaluator"),
	}
}

// Dependencies returns the registered dependencies in evaluation order.
func (e *Evaluator) Dependencies() []Dependency {
	return e.deps
}

// GetAllStatuses evaluates every dependency and returns every failing status
// in registration order. Used for diagnostics and UIs; never short-circuits.
// A data-access failure in any dependency aborts the whole call.
func (e *Evaluator) GetAllStatuses(ctx context.Context, ti *model.TaskInstance, dctx *Context) ([]Status, error) {
	var all []Status
	for _, d := range e.deps {
		statuses, err := d.Evaluate(ctx, ti, dctx)
		if err != nil {
			return nil, err
		}
		all = append(all, statuses...)
	}
	return all, nil
}

// IsMet reports whether the task instance may run now. It stops at the first
// blocking failure. A failure from an ignorable dependency blocks only in
// strict mode; otherwise it is logged as an overridable warning.
func (e *Evaluator) IsMet(ctx context.Context, ti *model.TaskInstance, dctx *Context) (bool, error) {
	for _, d := range e.deps {
		statuses, err := d.Evaluate(ctx, ti, dctx)
		if err != nil {
			return false, err
		}
		if len(statuses) == 0 {
			continue
		}
		if d.Ignorable() && !dctx.Strict() {
			for _, st := range statuses {
				e.logger.Warn("ignorable dependency not met",
					"dep", d.Name(), "ti", ti.Key(), "reason", st.Reason)
			}
			continue
		}
		e.logger.Debug("dependency not met",
			"dep", d.Name(), "ti", ti.Key(), "reason", statuses[0].Reason)
		return false, nil
	}
	return true, nil
}
