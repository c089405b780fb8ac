package store

import (
	"context"

	"github.com/me/godag/pkg/model"
)

// Store defines the persistence layer for GoDag entities. It doubles as the
// data-access scope handed to dependency checks: dependencies issue reads
// through it and never write.
type Store interface {
	// Dag CRUD
	CreateDag(ctx context.Context, dag *model.Dag) error
	GetDag(ctx context.Context, id string) (*model.Dag, error)
	ListDags(ctx context.Context, opts model.ListOptions) ([]*model.Dag, int, error)
	UpdateDag(ctx context.Context, dag *model.Dag) error
	DeleteDag(ctx context.Context, id string) error

	// DagRun operations. LogicalDate is written once at creation;
	// UpdateDagRun deliberately does not touch it.
	CreateDagRun(ctx context.Context, run *model.DagRun) error
	GetDagRun(ctx context.Context, id string) (*model.DagRun, error)
	ListDagRunsByDag(ctx context.Context, dagID string, opts model.ListOptions) ([]*model.DagRun, int, error)
	UpdateDagRun(ctx context.Context, run *model.DagRun) error

	// TaskInstance operations
	CreateTaskInstance(ctx context.Context, ti *model.TaskInstance) error
	GetTaskInstance(ctx context.Context, id string) (*model.TaskInstance, error)
	ListTaskInstancesByRun(ctx context.Context, runID string) ([]*model.TaskInstance, error)
	GetTaskInstancesByState(ctx context.Context, state model.TaskState) ([]*model.TaskInstance, error)
	UpdateTaskInstance(ctx context.Context, ti *model.TaskInstance) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
