package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository/redis"
)

func startRedis(t *testing.T) *redislib.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redislib.NewClient(&redislib.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSessionRepository(t *testing.T) {
	client := startRedis(t)
	repo := redis.NewSessionRepository(client, time.Minute)
	ctx := context.Background()

	session := &domain.Session{ID: "s1", UserID: "u1"}
	require.NoError(t, repo.Save(ctx, session))
	assert.True(t, session.ExpiresAt.After(session.CreatedAt))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, repo.Extend(ctx, "s1", time.Hour))
	extended, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, extended.ExpiresAt.After(got.ExpiresAt))

	ttl, err := client.TTL(ctx, "taskboard:session:s1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)

	userID, err := client.HGet(ctx, "taskboard:session:s1", "user_id").Result()
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, repo.Extend(ctx, "s1", time.Hour), domain.ErrSessionNotFound)
}

func TestSessionRepositoryRejectsCorruptHash(t *testing.T) {
	client := startRedis(t)
	repo := redis.NewSessionRepository(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "taskboard:session:bad", "user_id", "u1", "created_at", "yesterday").Err())
	_, err := repo.Get(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepositoryExtendKeepsWholeHash(t *testing.T) {
	client := startRedis(t)
	repo := redis.NewSessionRepository(client, time.Minute)
	ctx := context.Background()

	session := &domain.Session{ID: "s2", UserID: "u2"}
	require.NoError(t, repo.Save(ctx, session))
	require.NoError(t, repo.Extend(ctx, "s2", time.Hour))

	fields, err := client.HGetAll(ctx, "taskboard:session:s2").Result()
	require.NoError(t, err)
	assert.Len(t, fields, 3)
	assert.Equal(t, "u2", fields["user_id"])

	got, err := repo.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, session.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
}

func TestSessionRepositoryTreatsPartialHashAsMissing(t *testing.T) {
	client := startRedis(t)
	repo := redis.NewSessionRepository(client, time.Minute)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).UnixMilli()
	require.NoError(t, client.HSet(ctx, "taskboard:session:partial", "expires_at", expires).Err())

	_, err := repo.Get(ctx, "partial")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, repo.Extend(ctx, "partial", time.Hour), domain.ErrSessionNotFound)

	exists, err := client.Exists(ctx, "taskboard:session:partial").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "extend must not rewrite a session it could not load")
}
