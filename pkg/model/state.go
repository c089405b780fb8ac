package model

// TaskState represents the lifecycle state of a TaskInstance.
type TaskState string

const (
	TaskStateNone       TaskState = "NONE"
	TaskStateScheduled  TaskState = "SCHEDULED"
	TaskStateQueued     TaskState = "QUEUED"
	TaskStateRunning    TaskState = "RUNNING"
	TaskStateSuccess    TaskState = "SUCCESS"
	TaskStateFailed     TaskState = "FAILED"
	TaskStateUpForRetry TaskState = "UP_FOR_RETRY"
	TaskStateSkipped    TaskState = "SKIPPED"
)

// String returns the string representation of the task state.
func (s TaskState) String() string {
	return string(s)
}

// IsTerminal returns true if the task instance is in a final state.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateSuccess, TaskStateFailed, TaskStateSkipped:
		return true
	}
	return false
}

// ValidTaskTransitions defines the allowed state transitions for TaskInstances.
var ValidTaskTransitions = map[TaskState][]TaskState{
	TaskStateNone:       {TaskStateScheduled, TaskStateSkipped},
	TaskStateScheduled:  {TaskStateQueued, TaskStateSkipped},
	TaskStateQueued:     {TaskStateRunning},
	TaskStateRunning:    {TaskStateSuccess, TaskStateFailed, TaskStateSkipped},
	TaskStateFailed:     {TaskStateUpForRetry},
	TaskStateUpForRetry: {TaskStateScheduled},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	for _, allowed := range ValidTaskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RunState represents the lifecycle state of a DagRun.
type RunState string

const (
	RunStateQueued  RunState = "QUEUED"
	RunStateRunning RunState = "RUNNING"
	RunStateSuccess RunState = "SUCCESS"
	RunStateFailed  RunState = "FAILED"
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	return s == RunStateSuccess || s == RunStateFailed
}

// ValidRunTransitions defines the allowed state transitions for DagRuns.
var ValidRunTransitions = map[RunState][]RunState{
	RunStateQueued:  {RunStateRunning, RunStateFailed},
	RunStateRunning: {RunStateSuccess, RunStateFailed},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s RunState) CanTransitionTo(next RunState) bool {
	for _, allowed := range ValidRunTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
