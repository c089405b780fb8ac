// Package jsexpr evaluates user-supplied JavaScript predicates (goja).
// It backs the run_if condition on task definitions: a small boolean
// expression evaluated against the task instance and its run.
package jsexpr

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// interruptAfter bounds a single predicate evaluation. Predicates are tiny;
// anything running this long is looping.
const interruptAfter = 250 * time.Millisecond

// Evaluator evaluates boolean predicates in a fresh JavaScript runtime per
// call. A fresh VM keeps evaluations independent (no state leaks between
// tasks) at negligible cost for expressions this small.
type Evaluator struct{}

// NewEvaluator creates a predicate evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvalBool evaluates expr with the given variables bound as globals and
// returns its truthiness. An empty expression is an error; callers decide
// upstream whether an absent predicate means vacuously true.
func (e *Evaluator) EvalBool(expr string, vars map[string]any) (bool, error) {
	if expr == "" {
		return false, fmt.Errorf("empty expression")
	}

	vm := goja.New()
	for name, val := range vars {
		if err := vm.Set(name, val); err != nil {
			return false, fmt.Errorf("set %s: %w", name, err)
		}
	}

	timer := time.AfterFunc(interruptAfter, func() {
		vm.Interrupt("predicate timed out")
	})
	defer timer.Stop()

	val, err := vm.RunString(expr)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	return val.ToBoolean(), nil
}
