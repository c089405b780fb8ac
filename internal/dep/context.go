package dep

import (
	"context"

	"github.com/me/godag/internal/store"
	"github.com/me/godag/pkg/model"
)

// Flag names a boolean override consulted by individual dependencies.
// The Evaluator never interprets these; it only passes the context through.
type Flag string

const (
	// FlagIgnoreAllDeps makes every dependency vacuously satisfied.
	FlagIgnoreAllDeps Flag = "ignore_all_deps"
	// FlagIgnoreTaskDeps disables the upstream-success check.
	FlagIgnoreTaskDeps Flag = "ignore_task_deps"
	// FlagIgnoreInRetryPeriod disables the retry-backoff check.
	FlagIgnoreInRetryPeriod Flag = "ignore_in_retry_period"
)

// Context is the per-evaluation bag passed to every dependency: a data-access
// scope and named boolean overrides. Construct a fresh one per evaluation
// call and treat it as immutable for that call's duration.
type Context struct {
	st     store.Store
	flags  map[Flag]bool
	strict bool

	// run memoizes the DagRun lookup so the dependencies in one evaluation
	// share a single read.
	run       *model.DagRun
	runLoaded bool
}

// ContextOption configures a Context at construction.
type ContextOption func(*Context)

// WithFlag sets a named override flag.
func WithFlag(f Flag) ContextOption {
	return func(c *Context) {
		c.flags[f] = true
	}
}

// WithStrict makes failures from ignorable dependencies block IsMet.
// By default they are reported but non-blocking.
func WithStrict() ContextOption {
	return func(c *Context) {
		c.strict = true
	}
}

// NewContext creates an evaluation context backed by the given store.
func NewContext(st store.Store, opts ...ContextOption) *Context {
	c := &Context{st: st, flags: make(map[Flag]bool)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Flag reports whether the named override is set.
func (c *Context) Flag(f Flag) bool {
	return c.flags[f]
}

// Strict reports whether ignorable failures should block.
func (c *Context) Strict() bool {
	return c.strict
}

// Store returns the data-access scope for dependency reads.
func (c *Context) Store() store.Store {
	return c.st
}

// DagRun resolves the task instance's owning run, memoized for this
// evaluation. Returns nil (no error) when the run record no longer exists;
// callers treat that as "not yet determinable" and pass vacuously.
func (c *Context) DagRun(ctx context.Context, ti *model.TaskInstance) (*model.DagRun, error) {
	if c.runLoaded {
		return c.run, nil
	}
	run, err := c.st.GetDagRun(ctx, ti.RunID)
	if err != nil {
		return nil, err
	}
	c.run = run
	c.runLoaded = true
	return run, nil
}
