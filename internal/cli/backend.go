package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"hunt-service/internal/app"
	"hunt-service/internal/config"
	"hunt-service/internal/infra/memory"
	"hunt-service/internal/infra/postgres"
	redisinfra "hunt-service/internal/infra/redis"
)

// backend bundles the storage adapters chosen by config. Without a Postgres
// URL everything lives in memory; without a Redis address the catalog and
// feeds stay in process.
type backend struct {
	store    app.Store
	progress app.ProgressReader
	catalog  app.PuzzleCatalog
	feeds    app.FeedRepository
	closers  []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{}
	var loader app.PuzzleLoader

	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect read model: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		readModel := postgres.NewReadModel(pool)
		b.store = postgres.NewStore(db)
		b.progress = readModel
		loader = readModel
		logger.Info("using postgres store")
	} else {
		store := memory.NewStore()
		b.store = store
		b.progress = store
		loader = store
		logger.Warn("postgres not configured, data is kept in memory")
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		feeds := redisinfra.NewFeedStore(client, logger)
		b.closers = append(b.closers, func() { _ = feeds.Close() })
		b.catalog = redisinfra.NewPuzzleCatalog(client, loader, catalogTTL)
		b.feeds = feeds
		logger.Info("using redis puzzle catalog and leaderboard pub/sub", "addr", cfg.Redis.Addr)
	} else {
		b.catalog = memory.NewPuzzleCatalog(loader, catalogTTL)
		b.feeds = memory.NewFeedStore()
	}
	return b, nil
}
