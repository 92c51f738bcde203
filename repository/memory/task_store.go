package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

// Option configures the in-memory stores.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TaskStore keeps tasks in process memory. It backs demo mode and tests.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	ids   []string
	now   func() time.Time
}

// NewTaskStore returns an empty store.
func NewTaskStore(opts ...Option) *TaskStore {
	o := buildOptions(opts)
	return &TaskStore{
		tasks: make(map[string]*domain.Task),
		now:   o.now,
	}
}

var _ repository.TaskStore = (*TaskStore)(nil)

func (s *TaskStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := []domain.Task{}
	for _, id := range s.ids {
		if t := s.tasks[id]; t.Owner == ownerID {
			res = append(res, *t)
		}
	}
	return res, nil
}

func (s *TaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *TaskStore) Insert(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	stored := *task
	stored.Title = domain.NormalizeTitle(stored.Title)
	if stored.Status == "" {
		stored.Status = domain.StatusTodo
	}
	if err := stored.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored.ID = repository.NewTaskID()
	now := s.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.tasks[stored.ID] = &stored
	s.ids = append(s.ids, stored.ID)

	out := stored
	return &out, nil
}

func (s *TaskStore) UpdateFields(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	patch.Apply(t)
	t.Touch(s.now())

	out := *t
	return &out, nil
}

func (s *TaskStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(s.tasks, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *TaskStore) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}
