package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type taskStore struct {
	coll *mongo.Collection
}

// NewTaskStore returns a TaskStore backed by a Mongo collection of task documents.
func NewTaskStore(coll *mongo.Collection) repository.TaskStore {
	return &taskStore{coll: coll}
}

// now is truncated to the millisecond precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *taskStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"owner": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := []domain.Task{}
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

func (s *taskStore) Insert(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	doc := *task
	doc.Title = domain.NormalizeTitle(doc.Title)
	if doc.Status == "" {
		doc.Status = domain.StatusTodo
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	doc.ID = repository.NewTaskID()
	ts := now()
	doc.CreatedAt = ts
	doc.UpdatedAt = ts

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return &doc, nil
}

func (s *taskStore) UpdateFields(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	// Pipeline update so updated_at can be computed from the stored value atomically.
	set := bson.M{
		"updated_at": bson.M{"$max": bson.A{now(), bson.M{"$add": bson.A{"$updated_at", 1}}}},
	}
	if patch.Title != nil {
		set["title"] = bson.M{"$literal": *patch.Title}
	}
	if patch.Status != nil {
		set["status"] = bson.M{"$literal": string(*patch.Status)}
	}
	update := mongo.Pipeline{{{Key: "$set", Value: set}}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var task domain.Task
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&task); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &task, nil
}

func (s *taskStore) Remove(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("remove task: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *taskStore) HealthCheck(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}
