// Package client keeps a local task list in step with a task backend.
package client

import (
	"context"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository/memory"
	taskUC "github.com/fastygo/taskboard/usecase/task"
)

// Backend performs task operations on behalf of the identity it was built with.
type Backend interface {
	List(ctx context.Context) ([]domain.Task, error)
	Create(ctx context.Context, title string) (*domain.Task, error)
	Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id string) (string, error)
}

// LocalBackend runs the task use case in process, for demo and offline use.
type LocalBackend struct {
	uc    *taskUC.UseCase
	actor string
}

// NewLocalBackend acts as actor against uc.
func NewLocalBackend(uc *taskUC.UseCase, actor string) *LocalBackend {
	return &LocalBackend{uc: uc, actor: actor}
}

// NewDemoBackend starts an empty in-memory board for actor.
func NewDemoBackend(actor string) *LocalBackend {
	return NewLocalBackend(taskUC.New(memory.NewTaskStore(), nil), actor)
}

func (b *LocalBackend) List(ctx context.Context) ([]domain.Task, error) {
	return b.uc.List(ctx, b.actor)
}

func (b *LocalBackend) Create(ctx context.Context, title string) (*domain.Task, error) {
	return b.uc.Create(ctx, b.actor, title)
}

func (b *LocalBackend) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	return b.uc.Update(ctx, b.actor, id, patch)
}

func (b *LocalBackend) Delete(ctx context.Context, id string) (string, error) {
	return b.uc.Delete(ctx, b.actor, id)
}
