package model

import (
	"time"
)

// DagRun is one materialized execution of a DAG.
//
// LogicalDate is the nominal instant this run represents, distinct from
// wall-clock execution time (a run for the 2024-01-01 data interval may
// execute days later). It is assigned when the run is created and is
// immutable for the lifetime of the run; a nil LogicalDate means the run
// carries no data interval (e.g. an ad-hoc manual run) and cannot be judged
// against time bounds.
type DagRun struct {
	ID          string     `json:"id"`
	DagID       string     `json:"dag_id"`
	LogicalDate *time.Time `json:"logical_date,omitempty"`
	State       RunState   `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}
