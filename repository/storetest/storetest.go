// Package storetest holds the behavioural contract every repository.TaskStore and
// repository.UserRepository implementation must satisfy.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

// TaskStoreSuite runs the contract against a fresh store per test.
type TaskStoreSuite struct {
	suite.Suite
	NewStore func(t *testing.T) repository.TaskStore

	ctx   context.Context
	store repository.TaskStore
}

// RunTaskStore executes the task store contract.
func RunTaskStore(t *testing.T, newStore func(t *testing.T) repository.TaskStore) {
	suite.Run(t, &TaskStoreSuite{NewStore: newStore})
}

func (s *TaskStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore(s.T())
}

func (s *TaskStoreSuite) insert(owner, title string) *domain.Task {
	created, err := s.store.Insert(s.ctx, domain.NewTask(owner, title))
	s.Require().NoError(err)
	return created
}

func (s *TaskStoreSuite) TestInsertAssignsIdentityAndTimestamps() {
	created := s.insert("u1", "Buy milk")

	s.NotEmpty(created.ID)
	s.Equal("u1", created.Owner)
	s.Equal("Buy milk", created.Title)
	s.Equal(domain.StatusTodo, created.Status)
	s.False(created.CreatedAt.IsZero())
	s.False(created.UpdatedAt.IsZero())

	other := s.insert("u1", "Buy bread")
	s.NotEqual(created.ID, other.ID)
}

func (s *TaskStoreSuite) TestInsertDefaultsStatus() {
	created, err := s.store.Insert(s.ctx, &domain.Task{Owner: "u1", Title: "No status"})
	s.Require().NoError(err)
	s.Equal(domain.StatusTodo, created.Status)
}

func (s *TaskStoreSuite) TestInsertRejectsInvalidInput() {
	_, err := s.store.Insert(s.ctx, &domain.Task{Owner: "u1", Title: "   "})
	s.ErrorIs(err, domain.ErrTitleRequired)

	_, err = s.store.Insert(s.ctx, &domain.Task{Owner: "u1", Title: "ok", Status: "blocked"})
	s.ErrorIs(err, domain.ErrInvalidStatus)

	_, err = s.store.Insert(s.ctx, &domain.Task{Owner: "", Title: "orphan"})
	s.ErrorIs(err, domain.ErrOwnerRequired)

	tasks, err := s.store.ListByOwner(s.ctx, "u1")
	s.Require().NoError(err)
	s.Empty(tasks)
	orphans, err := s.store.ListByOwner(s.ctx, "")
	s.Require().NoError(err)
	s.Empty(orphans)
}

func (s *TaskStoreSuite) TestGetByID() {
	created := s.insert("u1", "Write spec")

	got, err := s.store.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal("u1", got.Owner)
	s.Equal("Write spec", got.Title)

	_, err = s.store.GetByID(s.ctx, "00000000-0000-0000-0000-000000000000")
	s.ErrorIs(err, domain.ErrTaskNotFound)
}

func (s *TaskStoreSuite) TestListByOwnerIsScoped() {
	var want []string
	for _, title := range []string{"one", "two", "three", "four", "five"} {
		want = append(want, s.insert("u1", title).ID)
	}
	s.insert("u2", "foreign")

	tasks, err := s.store.ListByOwner(s.ctx, "u1")
	s.Require().NoError(err)
	got := make([]string, 0, len(tasks))
	for _, task := range tasks {
		s.Equal("u1", task.Owner)
		got = append(got, task.ID)
	}
	s.Equal(want, got, "tasks must come back in creation order")

	none, err := s.store.ListByOwner(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *TaskStoreSuite) TestUpdateFields() {
	created := s.insert("u1", "draft")
	title := "final"
	done := domain.StatusDone

	updated, err := s.store.UpdateFields(s.ctx, created.ID, domain.TaskPatch{Title: &title, Status: &done})
	s.Require().NoError(err)
	s.Equal("final", updated.Title)
	s.Equal(domain.StatusDone, updated.Status)
	s.Equal("u1", updated.Owner)
	s.True(updated.UpdatedAt.After(created.CreatedAt), "updated_at %v should be after created_at %v", updated.UpdatedAt, created.CreatedAt)

	reopened := domain.StatusTodo
	again, err := s.store.UpdateFields(s.ctx, created.ID, domain.TaskPatch{Status: &reopened})
	s.Require().NoError(err)
	s.Equal(domain.StatusTodo, again.Status)
	s.Equal("final", again.Title)
	s.True(again.UpdatedAt.After(updated.UpdatedAt))

	got, err := s.store.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusTodo, got.Status)
	s.Equal("final", got.Title)
}

func (s *TaskStoreSuite) TestUpdateFieldsRejectsInvalidStatus() {
	created := s.insert("u1", "task")
	bad := domain.Status("archived")

	_, err := s.store.UpdateFields(s.ctx, created.ID, domain.TaskPatch{Status: &bad})
	s.ErrorIs(err, domain.ErrInvalidStatus)

	got, err := s.store.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusTodo, got.Status)
}

func (s *TaskStoreSuite) TestUpdateFieldsMissing() {
	done := domain.StatusDone
	_, err := s.store.UpdateFields(s.ctx, "00000000-0000-0000-0000-000000000000", domain.TaskPatch{Status: &done})
	s.ErrorIs(err, domain.ErrTaskNotFound)
}

func (s *TaskStoreSuite) TestRemove() {
	created := s.insert("u1", "temp")

	s.Require().NoError(s.store.Remove(s.ctx, created.ID))
	_, err := s.store.GetByID(s.ctx, created.ID)
	s.ErrorIs(err, domain.ErrTaskNotFound)

	s.ErrorIs(s.store.Remove(s.ctx, created.ID), domain.ErrTaskNotFound)
}

func (s *TaskStoreSuite) TestHealthCheck() {
	s.NoError(s.store.HealthCheck(s.ctx))
}

// RunUserRepository checks registration and lookups.
func RunUserRepository(t *testing.T, repo repository.UserRepository) {
	ctx := context.Background()

	user := &domain.User{Email: "  Alice@Example.com ", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)

	byEmail, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	err = repo.Create(ctx, &domain.User{Email: "alice@example.com", PasswordHash: "other"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
