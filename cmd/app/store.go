package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker-api/internal/config"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo/memory"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo/mongodb"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo/postgres"
)

type store struct {
	users repo.UserRepository
	tasks repo.TaskRepository
	close func()
}

// openStore connects to the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return store{}, fmt.Errorf("mongodb: %w", err)
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return store{}, fmt.Errorf("mongodb: %w", err)
		}
		logger.Info("Successfully connected to MongoDB!", zap.String("database", cfg.MongoDatabase))
		return store{
			users: mongodb.NewUserRepo(db),
			tasks: mongodb.NewTaskRepo(db),
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Disconnect(ctx); err != nil {
					logger.Warn("mongodb disconnect", zap.Error(err))
				}
			},
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return store{}, fmt.Errorf("postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return store{}, fmt.Errorf("postgres: %w", err)
		}
		logger.Info("Successfully connected to the Database!")
		return store{
			users: postgres.NewUserRepo(pool),
			tasks: postgres.NewTaskRepo(pool),
			close: pool.Close,
		}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return store{
			users: memory.NewUserRepo(),
			tasks: memory.NewTaskRepo(),
			close: func() {},
		}, nil
	}

	return store{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
