package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/straye-as/enquiry-api/internal/config"
	"github.com/straye-as/enquiry-api/internal/database"
	"github.com/straye-as/enquiry-api/internal/logger"
	"github.com/straye-as/enquiry-api/internal/queue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Runtime is everything a process needs after startup
type Runtime struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Services *Services
	// Queue and Locker are nil when the queue is disabled
	Queue  *queue.AsynqQueue
	Locker *queue.RedisLocker

	redis *redis.Client
}

// Start loads configuration and secrets, connects to the database and
// the queue, and wires the services.
func Start(ctx context.Context, process string) (*Runtime, error) {
	basicCfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App, process)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	log.Info("starting",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment))

	// In development secrets come from the environment, elsewhere from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg, Logger: log, DB: db}
	opts := Options{}
	if cfg.Queue.Enabled {
		rt.Queue, err = queue.NewAsynqQueue(&cfg.Queue, log)
		if err != nil {
			rt.Close()
			return nil, err
		}
		opts.Queue = rt.Queue

		rt.redis, err = queue.OpenRedis(ctx, &cfg.Queue)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Locker = queue.NewRedisLocker(rt.redis)
		log.Info("delivery queue enabled", zap.String("redis_addr", cfg.Queue.RedisAddr))
	}

	rt.Services, err = Build(cfg, db, log, opts)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close releases connections opened by Start
func (rt *Runtime) Close() {
	if rt.Queue != nil {
		if err := rt.Queue.Close(); err != nil {
			rt.Logger.Warn("error closing queue client", zap.Error(err))
		}
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.Logger.Warn("error closing redis client", zap.Error(err))
		}
	}
	if sqlDB, err := rt.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = rt.Logger.Sync()
}
