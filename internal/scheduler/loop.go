package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/me/godag/internal/dep"
	"github.com/me/godag/internal/store"
	"github.com/me/godag/internal/timeutil"
	"github.com/me/godag/pkg/model"
)

// Config holds scheduler configuration.
type Config struct {
	PollInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{PollInterval: 2 * time.Second}
}

// Loop implements the Scheduler interface with a polling-based scheduling
// loop. Each tick evaluates runnability with the dependency evaluator and
// advances instances whose dependencies are met.
type Loop struct {
	store     store.Store
	evaluator *dep.Evaluator
	clock     timeutil.Clock
	config    Config
	logger    *slog.Logger
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewLoop creates a new scheduler loop.
func NewLoop(st store.Store, eval *dep.Evaluator, clock timeutil.Clock, cfg Config, logger *slog.Logger) *Loop {
	return &Loop{
		store:     st,
		evaluator: eval,
		clock:     clock,
		config:    cfg,
		logger:    logger.With("component", "scheduler"),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the scheduling loop. Blocks until ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.logger.Info("scheduler started", "poll_interval", l.config.PollInterval)
	ticker := time.NewTicker(l.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler stopping (context cancelled)")
			close(l.doneCh)
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Info("scheduler stopping (stop called)")
			close(l.doneCh)
			return nil
		case <-ticker.C:
			if err := l.Tick(ctx); err != nil {
				l.logger.Error("tick error", "error", err)
			}
		}
	}
}

// Stop gracefully shuts down the scheduler and waits for the current tick to finish.
func (l *Loop) Stop() error {
	close(l.stopCh)
	<-l.doneCh
	return nil
}

// Tick runs a single scheduling iteration.
func (l *Loop) Tick(ctx context.Context) error {
	// Phase 1: Queue SCHEDULED instances whose dependencies are met.
	if err := l.advanceScheduled(ctx); err != nil {
		return fmt.Errorf("phase 1 (scheduled): %w", err)
	}

	// Phase 2: Move UP_FOR_RETRY instances back to SCHEDULED; the retry
	// backoff itself is enforced by the retry-period dependency.
	if err := l.rescheduleRetries(ctx); err != nil {
		return fmt.Errorf("phase 2 (retries): %w", err)
	}

	// Phase 3: Finalize runs where all instances are terminal.
	if err := l.finalizeRuns(ctx); err != nil {
		return fmt.Errorf("phase 3 (finalize): %w", err)
	}

	return nil
}

// advanceScheduled transitions SCHEDULED instances to QUEUED when their
// dependencies are met. The automatic path evaluates in strict mode, so
// ignorable failures gate here too; only explicit user overrides (via the
// API) evaluate without strict. A fresh dep context per instance keeps
// evaluations independent.
func (l *Loop) advanceScheduled(ctx context.Context) error {
	scheduled, err := l.store.GetTaskInstancesByState(ctx, model.TaskStateScheduled)
	if err != nil {
		return err
	}

	for _, ti := range scheduled {
		met, err := l.evaluator.IsMet(ctx, ti, dep.NewContext(l.store, dep.WithStrict()))
		if err != nil {
			l.logger.Error("evaluate dependencies", "ti", ti.Key(), "error", err)
			continue
		}
		if !met {
			l.logger.Debug("dependencies not met", "ti", ti.Key())
			continue
		}

		queuedAt := l.clock.Now()
		ti.State = model.TaskStateQueued
		ti.QueuedAt = &queuedAt
		if err := l.store.UpdateTaskInstance(ctx, ti); err != nil {
			l.logger.Error("queue task instance", "ti", ti.Key(), "error", err)
			continue
		}
		l.logger.Info("task instance queued", "ti", ti.Key(), "run_id", ti.RunID)
	}

	return nil
}

// rescheduleRetries moves UP_FOR_RETRY instances back to SCHEDULED so the
// next advanceScheduled pass evaluates them against the retry-period gate.
func (l *Loop) rescheduleRetries(ctx context.Context) error {
	retrying, err := l.store.GetTaskInstancesByState(ctx, model.TaskStateUpForRetry)
	if err != nil {
		return err
	}

	for _, ti := range retrying {
		met, err := l.evaluator.IsMet(ctx, ti, dep.NewContext(l.store, dep.WithStrict()))
		if err != nil {
			l.logger.Error("evaluate retry gate", "ti", ti.Key(), "error", err)
			continue
		}
		if !met {
			continue
		}

		ti.State = model.TaskStateScheduled
		ti.TryNumber++
		if err := l.store.UpdateTaskInstance(ctx, ti); err != nil {
			l.logger.Error("reschedule retry", "ti", ti.Key(), "error", err)
			continue
		}
		l.logger.Info("task instance rescheduled for retry", "ti", ti.Key(), "attempt", ti.TryNumber)
	}

	return nil
}

// finalizeRuns marks runs SUCCESS/FAILED once all their instances are terminal.
func (l *Loop) finalizeRuns(ctx context.Context) error {
	for _, state := range []model.RunState{model.RunStateQueued, model.RunStateRunning} {
		runs, err := l.activeRuns(ctx, state)
		if err != nil {
			return err
		}
		for _, run := range runs {
			if err := l.finalizeRun(ctx, run); err != nil {
				l.logger.Error("finalize run", "run_id", run.ID, "error", err)
			}
		}
	}
	return nil
}

func (l *Loop) activeRuns(ctx context.Context, state model.RunState) ([]*model.DagRun, error) {
	// Walk runs per DAG; DAG counts are small in this deployment shape.
	dags, _, err := l.store.ListDags(ctx, model.ListOptions{Limit: 100})
	if err != nil {
		return nil, err
	}
	var active []*model.DagRun
	for _, dag := range dags {
		runs, _, err := l.store.ListDagRunsByDag(ctx, dag.ID, model.ListOptions{Limit: 100})
		if err != nil {
			return nil, err
		}
		for _, run := range runs {
			if run.State == state {
				active = append(active, run)
			}
		}
	}
	return active, nil
}

func (l *Loop) finalizeRun(ctx context.Context, run *model.DagRun) error {
	tis, err := l.store.ListTaskInstancesByRun(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(tis) == 0 {
		return nil
	}

	allTerminal := true
	anyFailed := false
	for _, ti := range tis {
		if !ti.State.IsTerminal() {
			allTerminal = false
			break
		}
		if ti.State == model.TaskStateFailed {
			anyFailed = true
		}
	}
	if !allTerminal {
		return nil
	}

	ended := l.clock.Now()
	if anyFailed {
		run.State = model.RunStateFailed
	} else {
		run.State = model.RunStateSuccess
	}
	run.EndedAt = &ended
	if err := l.store.UpdateDagRun(ctx, run); err != nil {
		return err
	}
	l.logger.Info("run finalized", "run_id", run.ID, "state", run.State)
	return nil
}

// MaterializeRun creates a DagRun and one SCHEDULED TaskInstance per task
// definition. The logical date is assigned here and never changes for the
// lifetime of the run.
func MaterializeRun(ctx context.Context, st store.Store, dag *model.Dag, logicalDate *time.Time, clock timeutil.Clock) (*model.DagRun, error) {
	now := clock.Now()
	if logicalDate != nil {
		utc := logicalDate.UTC()
		logicalDate = &utc
	}

	run := &model.DagRun{
		ID:          "run_" + uuid.New().String()[:8],
		DagID:       dag.ID,
		LogicalDate: logicalDate,
		State:       model.RunStateRunning,
		CreatedAt:   now,
		StartedAt:   &now,
	}
	if err := st.CreateDagRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	for _, task := range dag.Tasks {
		ti := &model.TaskInstance{
			ID:        "ti_" + uuid.New().String()[:8],
			RunID:     run.ID,
			DagID:     dag.ID,
			TaskID:    task.ID,
			State:     model.TaskStateScheduled,
			MaxTries:  task.MaxRetries,
			CreatedAt: now,
		}
		if err := st.CreateTaskInstance(ctx, ti); err != nil {
			return nil, fmt.Errorf("create task instance %s: %w", task.ID, err)
		}
	}
	return run, nil
}
