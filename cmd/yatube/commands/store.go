package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/config"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/UkralStul/yatube/internal/storage/inmemory"
	"github.com/UkralStul/yatube/internal/storage/postgres"
)

// openStore создает хранилище нужного типа. Возвращаемая функция закрывает соединения.
func openStore(ctx context.Context, cfg config.Config) (storage.Storage, func(), error) {
	if cfg.Storage.Type != config.StoragePostgres {
		log.Info("[store] using in-memory storage")
		return inmemory.New(), func() {}, nil
	}

	pg, err := openPostgres(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Postgres.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
	}
	closeFn := func() {
		if err := pg.Close(); err != nil {
			log.Errorf("[store] failed to close postgres: %v", err)
		}
	}
	return pg, closeFn, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*postgres.Store, error) {
	level := logger.Warn
	if log.GetLevel() >= log.DebugLevel {
		level = logger.Info
	}
	pg, err := postgres.New(cfg.Postgres.DSN(), level)
	if err != nil {
		return nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Infof("[store] connected to postgres %s", cfg.Postgres)
	return pg, nil
}

func openCache(ctx context.Context, cfg config.Config) (cache.Cache, func(), error) {
	if cfg.Cache.Type != config.CacheRedis {
		return cache.NewMemory(), func() {}, nil
	}
	rc := cache.NewRedis(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Redis.Prefix)
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Infof("[cache] using redis at %s", cfg.Redis.Addr)
	closeFn := func() {
		if err := rc.Close(); err != nil {
			log.Errorf("[cache] failed to close redis: %v", err)
		}
	}
	return rc, closeFn, nil
}
