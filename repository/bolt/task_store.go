package bolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type taskRecord struct {
	domain.Task
	Seq uint64 `json:"seq"`
}

type taskStore struct {
	db *DB
}

// NewTaskStore returns a TaskStore persisted in the Bolt file.
func NewTaskStore(db *DB) repository.TaskStore {
	return &taskStore{db: db}
}

func ownerPrefix(owner string) []byte {
	return append([]byte(owner), 0)
}

// ownerKey orders an owner's tasks by insertion sequence.
func ownerKey(owner string, seq uint64) []byte {
	return append(ownerPrefix(owner), []byte(fmt.Sprintf("%020d", seq))...)
}

func (s *taskStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	tasks := []domain.Task{}
	err := s.db.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTasks)
		prefix := ownerPrefix(ownerID)
		c := tx.Bucket(bucketOwnerIndex).Cursor()
		for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
			var rec taskRecord
			found, err := getJSON(data, id, &rec)
			if err != nil {
				return err
			}
			if found {
				tasks = append(tasks, rec.Task)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var rec taskRecord
	var found bool
	err := s.db.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = getJSON(tx.Bucket(bucketTasks), []byte(id), &rec)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if !found {
		return nil, domain.ErrTaskNotFound
	}
	return &rec.Task, nil
}

func (s *taskStore) Insert(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	rec := taskRecord{Task: *task}
	rec.Title = domain.NormalizeTitle(rec.Title)
	if rec.Status == "" {
		rec.Status = domain.StatusTodo
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	rec.ID = repository.NewTaskID()
	now := s.db.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	err := s.db.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketOwnerIndex)
		seq, err := index.NextSequence()
		if err != nil {
			return err
		}
		rec.Seq = seq
		if err := putJSON(tx.Bucket(bucketTasks), []byte(rec.ID), rec); err != nil {
			return err
		}
		return index.Put(ownerKey(rec.Owner, seq), []byte(rec.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return &rec.Task, nil
}

func (s *taskStore) UpdateFields(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var rec taskRecord
	err := s.db.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTasks)
		found, err := getJSON(data, []byte(id), &rec)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrTaskNotFound
		}
		patch.Apply(&rec.Task)
		rec.Touch(s.db.now().UTC())
		return putJSON(data, []byte(id), rec)
	})
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &rec.Task, nil
}

func (s *taskStore) Remove(ctx context.Context, id string) error {
	err := s.db.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTasks)
		var rec taskRecord
		found, err := getJSON(data, []byte(id), &rec)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrTaskNotFound
		}
		if err := tx.Bucket(bucketOwnerIndex).Delete(ownerKey(rec.Owner, rec.Seq)); err != nil {
			return err
		}
		return data.Delete([]byte(id))
	})
	if err != nil && !errors.Is(err, domain.ErrTaskNotFound) {
		return fmt.Errorf("remove task: %w", err)
	}
	return err
}

func (s *taskStore) HealthCheck(ctx context.Context) error {
	return s.db.ping(ctx)
}
