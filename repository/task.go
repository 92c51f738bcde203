package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/fastygo/taskboard/domain"
)

// TaskStore is the persistent collection of tasks. Every method is atomic on its own;
// callers must not assume atomicity across calls.
type TaskStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error)
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Insert(ctx context.Context, task *domain.Task) (*domain.Task, error)
	UpdateFields(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	Remove(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error
}

// NewTaskID returns a time-ordered UUIDv7. IDs minted by one process sort in creation
// order, which breaks created_at ties in stores that keep coarse timestamps.
func NewTaskID() string {
	return uuid.Must(uuid.NewV7()).String()
}
