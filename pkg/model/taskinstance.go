package model

import (
	"time"
)

// TaskInstance is a concrete, schedulable unit of work: one TaskDef
// materialized within one DagRun. It holds a non-owning back-reference to
// its run via RunID; dependency checks read it but never mutate it.
type TaskInstance struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	DagID     string       `json:"dag_id"`
	TaskID    string       `json:"task_id"`
	State     TaskState    `json:"state"`
	TryNumber int          `json:"try_number"`
	MaxTries  int          `json:"max_tries"`
	CreatedAt time.Time    `json:"created_at"`
	QueuedAt  *time.Time   `json:"queued_at,omitempty"`
	StartedAt *time.Time   `json:"started_at,omitempty"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
}

// Key returns the human-readable identity of this instance within its DAG.
func (ti *TaskInstance) Key() string {
	return ti.DagID + "." + ti.TaskID
}
