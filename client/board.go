package client

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
)

// pendingPrefix marks optimistic tasks the backend has not confirmed yet.
const pendingPrefix = "pending-"

// Board is the local copy of one user's tasks. Changes show up locally before the
// backend confirms them and are rolled back if the backend refuses.
type Board struct {
	backend Backend
	logger  *zap.Logger

	mu    sync.RWMutex
	tasks []domain.Task
}

func NewBoard(backend Backend, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{backend: backend, logger: logger}
}

// Tasks returns a snapshot of the local list.
func (b *Board) Tasks() []domain.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// IsPending reports whether t is an optimistic entry awaiting the backend.
func IsPending(t domain.Task) bool {
	return strings.HasPrefix(t.ID, pendingPrefix)
}

// Sync replaces the local list with the backend's. On failure the local list is kept.
func (b *Board) Sync(ctx context.Context) error {
	tasks, err := b.backend.List(ctx)
	if err != nil {
		b.logger.Warn("sync failed", zap.Error(err))
		return err
	}
	b.mu.Lock()
	b.tasks = append([]domain.Task(nil), tasks...)
	b.mu.Unlock()
	return nil
}

func (b *Board) Add(ctx context.Context, title string) (*domain.Task, error) {
	title = domain.NormalizeTitle(title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}

	placeholder := domain.Task{
		ID:     pendingPrefix + uuid.NewString(),
		Title:  title,
		Status: domain.StatusTodo,
	}
	b.mu.Lock()
	b.tasks = append(b.tasks, placeholder)
	b.mu.Unlock()

	created, err := b.backend.Create(ctx, title)

	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.indexOf(placeholder.ID)
	if err != nil {
		if idx >= 0 {
			b.tasks = append(b.tasks[:idx], b.tasks[idx+1:]...)
		}
		b.logger.Warn("add rolled back", zap.Error(err))
		return nil, err
	}
	if idx >= 0 {
		b.tasks[idx] = *created
	} else {
		b.tasks = append(b.tasks, *created)
	}
	return created, nil
}

func (b *Board) SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Task, error) {
	return b.update(ctx, id, domain.TaskPatch{Status: &status})
}

func (b *Board) Rename(ctx context.Context, id, title string) (*domain.Task, error) {
	return b.update(ctx, id, domain.TaskPatch{Title: &title})
}

func (b *Board) update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		return nil, domain.ErrTaskNotFound
	}
	prev := b.tasks[idx]
	optimistic := prev
	patch.Apply(&optimistic)
	b.tasks[idx] = optimistic
	b.mu.Unlock()

	updated, err := b.backend.Update(ctx, id, patch)

	b.mu.Lock()
	defer b.mu.Unlock()
	idx = b.indexOf(id)
	if err != nil {
		if idx >= 0 {
			b.tasks[idx] = prev
		}
		b.logger.Warn("update rolled back", zap.String("task_id", id), zap.Error(err))
		return nil, err
	}
	if idx >= 0 {
		b.tasks[idx] = *updated
	}
	return updated, nil
}

func (b *Board) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		return domain.ErrTaskNotFound
	}
	prev := b.tasks[idx]
	b.tasks = append(b.tasks[:idx], b.tasks[idx+1:]...)
	b.mu.Unlock()

	_, err := b.backend.Delete(ctx, id)
	if err == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if idx > len(b.tasks) {
		idx = len(b.tasks)
	}
	b.tasks = append(b.tasks, domain.Task{})
	copy(b.tasks[idx+1:], b.tasks[idx:])
	b.tasks[idx] = prev
	b.logger.Warn("remove rolled back", zap.String("task_id", id), zap.Error(err))
	return err
}

func (b *Board) indexOf(id string) int {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
