package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type taskStore struct {
	pool *pgxpool.Pool
}

// NewTaskStore returns a Postgres-backed implementation of TaskStore.
func NewTaskStore(pool *pgxpool.Pool) repository.TaskStore {
	return &taskStore{pool: pool}
}

const taskColumns = `id, owner, title, status, created_at, updated_at`

func (r *taskStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE owner = $1
	ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE id = $1
	`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

func (r *taskStore) Insert(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	created := *task
	created.Title = domain.NormalizeTitle(created.Title)
	if created.Status == "" {
		created.Status = domain.StatusTodo
	}
	if err := created.Validate(); err != nil {
		return nil, err
	}
	created.ID = repository.NewTaskID()

	const query = `
	INSERT INTO tasks (id, owner, title, status)
	VALUES ($1, $2, $3, $4)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		created.ID,
		created.Owner,
		created.Title,
		string(created.Status),
	).Scan(&created.CreatedAt, &created.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return &created, nil
}

func (r *taskStore) UpdateFields(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	const query = `
	UPDATE tasks
	SET title = COALESCE($2, title),
		status = COALESCE($3, status),
		updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 millisecond')
	WHERE id = $1
	RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, id, patch.Title, status))
}

func (r *taskStore) Remove(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("remove task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskStore) HealthCheck(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var status string

	if err := row.Scan(
		&task.ID,
		&task.Owner,
		&task.Title,
		&status,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.Status = domain.Status(status)
	return &task, nil
}
