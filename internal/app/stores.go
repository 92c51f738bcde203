package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/internal/config"
	"github.com/fastygo/taskboard/internal/infrastructure/monitor"
	mongoInfra "github.com/fastygo/taskboard/internal/infrastructure/mongo"
	pgInfra "github.com/fastygo/taskboard/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/taskboard/internal/infrastructure/redis"
	"github.com/fastygo/taskboard/internal/services/lifecycle"
	"github.com/fastygo/taskboard/repository"
	boltRepo "github.com/fastygo/taskboard/repository/bolt"
	"github.com/fastygo/taskboard/repository/memory"
	mongoRepo "github.com/fastygo/taskboard/repository/mongo"
	pgRepo "github.com/fastygo/taskboard/repository/postgres"
	redisRepo "github.com/fastygo/taskboard/repository/redis"
)

// Stores groups the repositories one deployment uses.
type Stores struct {
	Tasks    repository.TaskStore
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Probes   []monitor.Probe
}

// MemoryStores keeps everything in process. Used for demos and tests.
func MemoryStores(sessionTTL time.Duration) *Stores {
	tasks := memory.NewTaskStore()
	return &Stores{
		Tasks:    tasks,
		Users:    memory.NewUserRepository(),
		Sessions: memory.NewSessionRepository(sessionTTL),
		Probes:   []monitor.Probe{{Name: "store", Check: tasks.HealthCheck}},
	}
}

// OpenStores connects the backend named by cfg.StoreDriver and registers its shutdown with manager.
func OpenStores(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var stores *Stores
	switch cfg.StoreDriver {
	case config.DriverMemory:
		stores = &Stores{
			Tasks: memory.NewTaskStore(),
			Users: memory.NewUserRepository(),
		}

	case config.DriverBolt:
		db, err := boltRepo.Open(cfg.Bolt.Path)
		if err != nil {
			return nil, err
		}
		manager.Register("bolt", func(ctx context.Context) error {
			return db.Close()
		})
		stores = &Stores{
			Tasks: boltRepo.NewTaskStore(db),
			Users: boltRepo.NewUserRepository(db),
		}

	case config.DriverPostgres:
		if cfg.Migrations.Enabled {
			if err := pgInfra.RunMigrations(cfg.Database.DSN(), logger); err != nil {
				return nil, err
			}
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, cfg.AppName, logger)
		if err != nil {
			return nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		manager.Register("postgres", func(ctx context.Context) error {
			pool.Close()
			return nil
		})
		stores = &Stores{
			Tasks: pgRepo.NewTaskStore(pool),
			Users: pgRepo.NewUserRepository(pool),
		}

	case config.DriverMongo:
		client, db, err := mongoInfra.Connect(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		manager.Register("mongo", func(ctx context.Context) error {
			return client.Disconnect(ctx)
		})
		stores = &Stores{
			Tasks: mongoRepo.NewTaskStore(db.Collection(mongoInfra.TasksCollection)),
			Users: mongoRepo.NewUserRepository(db.Collection(mongoInfra.UsersCollection)),
		}

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if len(stores.Probes) == 0 {
		stores.Probes = []monitor.Probe{{Name: "store", Check: stores.Tasks.HealthCheck}}
	}

	if stores.Sessions == nil {
		if err := openSessions(ctx, cfg, stores, manager, logger); err != nil {
			return nil, err
		}
	}

	logger.Info("stores ready", zap.String("driver", cfg.StoreDriver))
	return stores, nil
}

func openSessions(ctx context.Context, cfg *config.Config, stores *Stores, manager *lifecycle.Manager, logger *zap.Logger) error {
	if cfg.Redis.URL == "" {
		logger.Info("REDIS_URL not set, keeping refresh sessions in memory")
		stores.Sessions = memory.NewSessionRepository(cfg.JWT.SessionTTL)
		return nil
	}

	client, err := redisInfra.NewClient(ctx, cfg.Redis, cfg.AppName, logger)
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	manager.Register("redis", func(ctx context.Context) error {
		return client.Close()
	})

	stores.Sessions = redisRepo.NewSessionRepository(client, cfg.JWT.SessionTTL)
	stores.Probes = append(stores.Probes, monitor.Probe{
		Name:  "sessions",
		Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
	})
	return nil
}
