package bolt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type userRepository struct {
	db *DB
}

// userRecord keeps the password hash, which domain.User hides from JSON.
type userRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func storedUser(u domain.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var rec userRecord
	var found bool
	err := r.db.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = getJSON(tx.Bucket(bucketUsers), []byte(id), &rec)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !found {
		return nil, domain.ErrUserNotFound
	}
	return rec.toDomain(), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var id []byte
	err := r.db.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketEmailIndex).Get([]byte(domain.NormalizeEmail(email))); v != nil {
			id = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if id == nil {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, string(id))
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	user.Email = domain.NormalizeEmail(user.Email)
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.db.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.db.db.Update(func(tx *bolt.Tx) error {
		emails := tx.Bucket(bucketEmailIndex)
		if emails.Get([]byte(user.Email)) != nil {
			return domain.ErrEmailTaken
		}
		if err := putJSON(tx.Bucket(bucketUsers), []byte(user.ID), storedUser(*user)); err != nil {
			return err
		}
		return emails.Put([]byte(user.Email), []byte(user.ID))
	})
	if err != nil && !errors.Is(err, domain.ErrEmailTaken) {
		return fmt.Errorf("create user: %w", err)
	}
	return err
}
