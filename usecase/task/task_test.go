package task_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository/memory"
	"github.com/fastygo/taskboard/usecase/task"
)

// MockTaskStore records calls so tests can prove the store was never reached.
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Task), args.Error(1)
}

func (m *MockTaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskStore) Insert(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskStore) UpdateFields(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskStore) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newUseCase() *task.UseCase {
	return task.New(memory.NewTaskStore(), nil)
}

func TestAuthorize(t *testing.T) {
	owned := &domain.Task{ID: "t1", Owner: "u1"}

	tests := []struct {
		name    string
		actor   string
		task    *domain.Task
		wantErr error
	}{
		{name: "owner", actor: "u1", task: owned},
		{name: "other user", actor: "u2", task: owned, wantErr: domain.ErrUnauthorized},
		{name: "unauthenticated", actor: "", task: owned, wantErr: domain.ErrUnauthorized},
		{name: "prefix is not a match", actor: "u", task: owned, wantErr: domain.ErrUnauthorized},
		{name: "nil task", actor: "u1", task: nil, wantErr: domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := task.Authorize(tt.actor, tt.task)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreate_InvalidTitleNeverReachesStore(t *testing.T) {
	for _, title := range []string{"", "   ", "\t\n"} {
		store := new(MockTaskStore)
		uc := task.New(store, nil)

		_, err := uc.Create(context.Background(), "u1", title)
		assert.ErrorIs(t, err, domain.ErrTitleRequired)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	}
}

func TestCreate_PassesOwnerAndTodo(t *testing.T) {
	store := new(MockTaskStore)
	created := &domain.Task{ID: "t1", Owner: "u1", Title: "Buy milk", Status: domain.StatusTodo}
	store.On("Insert", mock.Anything, mock.MatchedBy(func(in *domain.Task) bool {
		return in.Owner == "u1" && in.Title == "Buy milk" && in.Status == domain.StatusTodo
	})).Return(created, nil)

	uc := task.New(store, nil)
	got, err := uc.Create(context.Background(), "u1", " Buy milk ")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	store.AssertExpectations(t)
}

func TestCreate_StoreFailure(t *testing.T) {
	store := new(MockTaskStore)
	boom := errors.New("connection reset")
	store.On("Insert", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := task.New(store, nil).Create(context.Background(), "u1", "x")
	assert.ErrorIs(t, err, boom)
}

func TestUnauthenticatedCallsAreRejected(t *testing.T) {
	store := new(MockTaskStore)
	uc := task.New(store, nil)
	ctx := context.Background()

	_, err := uc.List(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Create(ctx, "", "title")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	store.AssertNotCalled(t, "ListByOwner", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestExistenceIsCheckedBeforeOwnership(t *testing.T) {
	uc := newUseCase()
	ctx := context.Background()
	done := domain.StatusDone

	_, err := uc.Get(ctx, "u2", "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = uc.Update(ctx, "u2", "missing", domain.TaskPatch{Status: &done})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = uc.Delete(ctx, "u2", "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, err = uc.Delete(ctx, "", "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestForeignTasksAreUnreachable(t *testing.T) {
	uc := newUseCase()
	ctx := context.Background()

	owned, err := uc.Create(ctx, "u2", "private")
	require.NoError(t, err)

	title := "hijacked"
	_, err = uc.Get(ctx, "u1", owned.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Update(ctx, "u1", owned.ID, domain.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Delete(ctx, "u1", owned.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	list, err := uc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := uc.Get(ctx, "u2", owned.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Title)
}

func TestUpdate_GuardRunsBeforePatchValidation(t *testing.T) {
	uc := newUseCase()
	ctx := context.Background()
	owned, err := uc.Create(ctx, "u2", "private")
	require.NoError(t, err)

	_, err = uc.Update(ctx, "u1", owned.ID, domain.TaskPatch{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Update(ctx, "u2", owned.ID, domain.TaskPatch{})
	assert.ErrorIs(t, err, domain.ErrEmptyPatch)

	bad := domain.Status("blocked")
	_, err = uc.Update(ctx, "u2", owned.ID, domain.TaskPatch{Status: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestUpdate_ConcurrentDeleteSurfacesAsNotFound(t *testing.T) {
	store := new(MockTaskStore)
	existing := &domain.Task{ID: "t1", Owner: "u1", Title: "x", Status: domain.StatusTodo}
	store.On("GetByID", mock.Anything, "t1").Return(existing, nil)
	store.On("UpdateFields", mock.Anything, "t1", mock.Anything).Return(nil, domain.ErrTaskNotFound)

	done := domain.StatusDone
	_, err := task.New(store, nil).Update(context.Background(), "u1", "t1", domain.TaskPatch{Status: &done})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	store.AssertExpectations(t)
}

func TestRoundTripCreateThenList(t *testing.T) {
	uc := newUseCase()
	ctx := context.Background()

	_, err := uc.Create(ctx, "u1", "Buy milk")
	require.NoError(t, err)

	list, err := uc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Buy milk", list[0].Title)
	assert.Equal(t, domain.StatusTodo, list[0].Status)
	assert.Equal(t, "u1", list[0].Owner)
}

func TestDeleteTwiceIsNotFoundBothTimesAfterwards(t *testing.T) {
	uc := newUseCase()
	ctx := context.Background()

	created, err := uc.Create(ctx, "u1", "temp")
	require.NoError(t, err)

	id, err := uc.Delete(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	for i := 0; i < 2; i++ {
		_, err = uc.Delete(ctx, "u1", created.ID)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	}
}

func TestScenario_CompleteTask(t *testing.T) {
	uc := newUseCase()
	ctx := context.Background()

	created, err := uc.Create(ctx, "u1", "Write spec")
	require.NoError(t, err)

	done := domain.StatusDone
	_, err = uc.Update(ctx, "u1", created.ID, domain.TaskPatch{Status: &done})
	require.NoError(t, err)

	list, err := uc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, domain.StatusDone, list[0].Status)
	assert.True(t, list[0].UpdatedAt.After(list[0].CreatedAt))
}

func TestScenario_ForeignDeleteLeavesTask(t *testing.T) {
	uc := newUseCase()
	ctx := context.Background()

	created, err := uc.Create(ctx, "u1", "mine")
	require.NoError(t, err)

	_, err = uc.Delete(ctx, "u2", created.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	list, err := uc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestRandomUpdatesKeepStatusAndOwner(t *testing.T) {
	uc := newUseCase()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	candidates := []domain.Status{
		domain.StatusTodo, domain.StatusInProgress, domain.StatusDone,
		"", "archived", "DONE", "in progress",
	}

	created, err := uc.Create(ctx, "u1", "walk")
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		status := candidates[rng.Intn(len(candidates))]
		actor := "u1"
		if rng.Intn(4) == 0 {
			actor = "u2"
		}
		_, err := uc.Update(ctx, actor, created.ID, domain.TaskPatch{Status: &status})
		switch {
		case actor != "u1":
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		case !status.Valid():
			assert.ErrorIs(t, err, domain.ErrInvalidStatus)
		default:
			assert.NoError(t, err)
		}

		got, err := uc.Get(ctx, "u1", created.ID)
		require.NoError(t, err)
		assert.True(t, got.Status.Valid())
		assert.Equal(t, "u1", got.Owner)
	}
}
