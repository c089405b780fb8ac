package model

import (
	"time"
)

// Dag is a registered workflow definition. It owns an ordered set of task
// definitions and the temporal bounds (start/end dates) that gate its runs.
type Dag struct {
	ID          string     `json:"id"`
	Description string     `json:"description,omitempty"`
	Schedule    string     `json:"schedule,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Tasks       []TaskDef  `json:"tasks"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Task returns the task definition with the given ID, or nil.
func (d *Dag) Task(taskID string) *TaskDef {
	for i := range d.Tasks {
		if d.Tasks[i].ID == taskID {
			return &d.Tasks[i]
		}
	}
	return nil
}

// TaskDef is the static definition of one task within a DAG. A TaskDef is
// instantiated as a TaskInstance each time its DAG runs.
type TaskDef struct {
	ID                string     `json:"id"`
	Upstream          []string   `json:"upstream,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	MaxRetries        int        `json:"max_retries"`
	RetryDelaySeconds int        `json:"retry_delay_seconds,omitempty"`

	// RunIf is an optional JavaScript predicate evaluated against the task
	// instance before it may run. Empty means unconditional.
	RunIf string `json:"run_if,omitempty"`
}

// RetryDelay returns the configured retry delay as a duration.
// Defaults to 5 minutes when unset, matching the scheduler's retry gate.
func (t *TaskDef) RetryDelay() time.Duration {
	if t.RetryDelaySeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(t.RetryDelaySeconds) * time.Second
}
