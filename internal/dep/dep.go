// Package dep implements the task-runnability dependency system: a set of
// pluggable predicates deciding whether a task instance is eligible to run
// now, with structured pass/fail statuses for schedulers and UIs.
package dep

import (
	"context"

	"github.com/me/godag/pkg/model"
)

// Status is the immutable result of one dependency condition.
// Reason wording is user-facing and stable; operator tooling scrapes it.
type Status struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// FailingStatus builds a failed Status with the given reason.
func FailingStatus(reason string) Status {
	return Status{Passed: false, Reason: reason}
}

// Dependency is a named predicate over a task instance's current context.
//
// Evaluate returns only failing statuses; an empty slice means satisfied.
// Implementations are read-only with respect to the task instance and its
// run, and perform any data access through the context's store handle,
// honoring ctx cancellation. Each call produces fresh results; nothing is
// cached across evaluations.
//
// Ignorable marks dependencies whose failures a caller may treat as
// overridable warnings (e.g. when a user forces a manual run) rather than
// hard blocks.
type Dependency interface {
	Name() string
	Ignorable() bool
	Evaluate(ctx context.Context, ti *model.TaskInstance, dctx *Context) ([]Status, error)
}
