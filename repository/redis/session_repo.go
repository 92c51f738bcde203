package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

const (
	keyPrefix     = "taskboard:session:"
	extendRetries = 3
)

// Session hash fields. Timestamps are unix milliseconds.
const (
	fieldUserID    = "user_id"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
)

type sessionRepository struct {
	client redislib.UniversalClient
	ttl    time.Duration
}

// NewSessionRepository stores each refresh session as a hash whose key TTL tracks expires_at.
func NewSessionRepository(client redislib.UniversalClient, ttl time.Duration) repository.SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &sessionRepository{client: client, ttl: ttl}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	return load(ctx, r.client, id)
}

// hashReader is satisfied by both the client and a WATCH transaction.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redislib.MapStringStringCmd
}

// load reads a live session. A hash without user_id is a leftover partial write and
// counts as missing.
func load(ctx context.Context, c hashReader, id string) (*domain.Session, error) {
	fields, err := c.HGetAll(ctx, key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if fields[fieldUserID] == "" {
		return nil, domain.ErrSessionNotFound
	}

	session, err := decode(id, fields)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		session.ExpiresAt = session.CreatedAt.Add(r.ttl)
	}
	if time.Until(session.ExpiresAt) <= 0 {
		return domain.ErrSessionNotFound
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		write(ctx, pipe, session)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, key(id)).Err()
}

// Extend moves expires_at and the key TTL together. The read and the rewrite share a
// WATCH transaction, so a session that expires or is deleted meanwhile is never revived.
func (r *sessionRepository) Extend(ctx context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}

	extend := func(tx *redislib.Tx) error {
		session, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		session.ExpiresAt = time.Now().UTC().Add(ttl)

		_, err = tx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			write(ctx, pipe, session)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < extendRetries; attempt++ {
		err = r.client.Watch(ctx, extend, key(id))
		if !errors.Is(err, redislib.TxFailedErr) {
			break
		}
	}
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return err
		}
		return fmt.Errorf("extend session: %w", err)
	}
	return nil
}

// write replaces the whole hash so no partial session is ever left behind.
func write(ctx context.Context, pipe redislib.Pipeliner, session *domain.Session) {
	k := key(session.ID)
	pipe.Del(ctx, k)
	pipe.HSet(ctx, k, map[string]interface{}{
		fieldUserID:    session.UserID,
		fieldCreatedAt: session.CreatedAt.UnixMilli(),
		fieldExpiresAt: session.ExpiresAt.UnixMilli(),
	})
	pipe.ExpireAt(ctx, k, session.ExpiresAt)
}

func key(id string) string {
	return keyPrefix + id
}

func decode(id string, fields map[string]string) (*domain.Session, error) {
	created, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session %s created_at: %w", id, err)
	}
	expires, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session %s expires_at: %w", id, err)
	}
	return &domain.Session{
		ID:        id,
		UserID:    fields[fieldUserID],
		CreatedAt: time.UnixMilli(created).UTC(),
		ExpiresAt: time.UnixMilli(expires).UTC(),
	}, nil
}
