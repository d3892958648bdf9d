// Package storage defines the uniform persistence contract for log
// entries and selects one of the three interchangeable backends at
// startup. Everything above this package (the worker, the query
// service) depends only on Backend, never on a concrete variant.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/emberlog/emberlog/internal/config"
	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/storage/pgdb"
	"github.com/emberlog/emberlog/internal/storage/redisdb"
	"github.com/emberlog/emberlog/internal/storage/sqlitedb"
	"github.com/emberlog/emberlog/internal/storage/storagetypes"
	"github.com/emberlog/emberlog/pkg/postgres"
	"github.com/emberlog/emberlog/pkg/redisconn"
	"github.com/emberlog/emberlog/pkg/sqlitepool"
)

type Backend interface {
	// Initialize creates the underlying table/stream if absent.
	// Idempotent and safe to call concurrently from multiple processes.
	Initialize(ctx context.Context) error

	// InsertBatch appends entries in order and assigns backend-native
	// ids to the elements of the slice.
	InsertBatch(ctx context.Context, entries []domain.LogEntry) error

	// Query returns one newest-first page plus the total number of
	// entries matching the filter.
	Query(ctx context.Context, filter storagetypes.Filter) ([]domain.LogEntry, int, error)

	// CountSince counts stored entries per level at or after since.
	// A zero since counts everything.
	CountSince(ctx context.Context, since time.Time) (domain.LevelCounts, error)

	LatestTimestamp(ctx context.Context) (time.Time, error)

	// TrimByCount removes the oldest entries beyond max. The redis
	// variant applies a documented-approximate cap.
	TrimByCount(ctx context.Context, max int) error

	// TrimByAge removes entries with timestamps before cutoff.
	TrimByAge(ctx context.Context, cutoff time.Time) error

	// Health never returns an error; failures come back as a degraded
	// Health value.
	Health(ctx context.Context) storagetypes.Health

	Close() error
}

// QueueDrainer is implemented by backends that stage accepted writes
// in an intermediate queue. The retention worker drains it every
// cycle, so staged entries become visible without new traffic.
type QueueDrainer interface {
	DrainQueued(ctx context.Context) error
}

// Open connects the backend selected by cfg. The returned Backend is
// not yet initialized; callers run Initialize once at startup and
// treat its failure as fatal.
func Open(cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		pool, err := sqlitepool.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return sqlitedb.New(pool), nil

	case config.BackendPostgres:
		pg, err := postgres.New(cfg.Storage.PGURL, postgres.MaxPoolSize(cfg.Storage.PGMaxPoolSize))
		if err != nil {
			return nil, fmt.Errorf("open postgres backend: %w", err)
		}
		return pgdb.New(pg, cfg.Storage.PGTable), nil

	case config.BackendRedis:
		client, err := redisconn.New(cfg.Storage.RedisAddr,
			redisconn.Password(cfg.Storage.RedisPassword),
			redisconn.Database(cfg.Storage.RedisDB),
		)
		if err != nil {
			return nil, fmt.Errorf("open redis backend: %w", err)
		}
		return redisdb.New(client, redisdb.Options{
			QueueKey:   cfg.Storage.QueueKey,
			StreamKey:  cfg.Storage.StreamKey,
			MaxEntries: cfg.Retention.MaxEntries,
		}), nil
	}

	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Storage.Backend)
}
