package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	appLogger "github.com/fastygo/taskboard/pkg/logger"
	"github.com/fastygo/taskboard/repository"
)

// UseCase exposes the ownership-scoped task operations. The acting identity is always explicit.
type UseCase struct {
	tasks  repository.TaskStore
	logger *zap.Logger
}

func New(tasks repository.TaskStore, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		logger: logger,
	}
}

// List returns every task owned by actor, oldest first.
func (uc *UseCase) List(ctx context.Context, actor string) ([]domain.Task, error) {
	if actor == "" {
		return nil, domain.ErrUnauthorized
	}
	tasks, err := uc.tasks.ListByOwner(ctx, actor)
	if err != nil {
		uc.log(ctx).Error("list tasks failed", zap.String("actor", actor), zap.Error(err))
		return nil, err
	}
	return tasks, nil
}

// Create stores a new todo task owned by actor.
func (uc *UseCase) Create(ctx context.Context, actor, title string) (*domain.Task, error) {
	if actor == "" {
		return nil, domain.ErrUnauthorized
	}
	task := domain.NewTask(actor, title)
	if task.Title == "" {
		return nil, domain.ErrTitleRequired
	}

	created, err := uc.tasks.Insert(ctx, task)
	if err != nil {
		uc.log(ctx).Error("create task failed", zap.String("actor", actor), zap.Error(err))
		return nil, err
	}
	uc.log(ctx).Info("task created", zap.String("task_id", created.ID), zap.String("actor", actor))
	return created, nil
}

// Get returns a single task after checking existence, then ownership.
func (uc *UseCase) Get(ctx context.Context, actor, id string) (*domain.Task, error) {
	return uc.lookup(ctx, actor, id)
}

// Update applies patch to a task actor owns.
func (uc *UseCase) Update(ctx context.Context, actor, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if _, err := uc.lookup(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	updated, err := uc.tasks.UpdateFields(ctx, id, patch)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.log(ctx).Error("update task failed", zap.String("task_id", id), zap.Error(err))
		}
		return nil, err
	}
	uc.log(ctx).Info("task updated", zap.String("task_id", id), zap.String("status", updated.Status.String()))
	return updated, nil
}

// Delete removes a task actor owns and returns its id.
func (uc *UseCase) Delete(ctx context.Context, actor, id string) (string, error) {
	if _, err := uc.lookup(ctx, actor, id); err != nil {
		return "", err
	}
	if err := uc.tasks.Remove(ctx, id); err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.log(ctx).Error("delete task failed", zap.String("task_id", id), zap.Error(err))
		}
		return "", err
	}
	uc.log(ctx).Info("task deleted", zap.String("task_id", id), zap.String("actor", actor))
	return id, nil
}

func (uc *UseCase) lookup(ctx context.Context, actor, id string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, task); err != nil {
		uc.log(ctx).Warn("task access denied", zap.String("task_id", id), zap.String("actor", actor))
		return nil, err
	}
	return task, nil
}

func (uc *UseCase) log(ctx context.Context) *zap.Logger {
	return appLogger.WithRequestID(ctx, uc.logger)
}
