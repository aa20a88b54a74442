package storage

import (
	"context"

	"github.com/Megamind2600/TimerAD/internal/core/model"
)

// Repository is the interface for task persistence.
type Repository interface {
	CreateTask(ctx context.Context, t model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) error
	DeleteTask(ctx context.Context, id string) error

	// ApplyTimerDelta atomically increments the task's time counters by the
	// given relative delta and returns the updated task. It must be atomic
	// with respect to other updates of the same id.
	ApplyTimerDelta(ctx context.Context, id string, delta model.TimerDelta) (*model.Task, error)
}
