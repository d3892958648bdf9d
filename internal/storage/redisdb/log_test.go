package redisdb_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/storage/redisdb"
	"github.com/emberlog/emberlog/internal/storage/storagetypes"
	"github.com/emberlog/emberlog/pkg/redisconn"
)

const (
	testQueueKey  = "ember:queue"
	testStreamKey = "ember:logs"
)

func newStore(t *testing.T) (*redisdb.LogStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := redisconn.New(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := redisdb.New(client, redisdb.Options{
		QueueKey:   testQueueKey,
		StreamKey:  testStreamKey,
		MaxEntries: 10000,
	})
	require.NoError(t, store.Initialize(context.Background()))
	return store, mr
}

func seedEntries(t *testing.T, store *redisdb.LogStore, base time.Time, n int) []domain.LogEntry {
	t.Helper()

	entries := make([]domain.LogEntry, n)
	for i := range entries {
		level := domain.LevelError
		if i%3 == 0 {
			level = domain.LevelWarning
		}
		entries[i] = domain.LogEntry{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Level:     level,
			Event:     "unhandled_exception",
			Message:   fmt.Sprintf("boom %d", i),
		}
	}
	require.NoError(t, store.InsertBatch(context.Background(), entries))
	return entries
}

func TestInsertBatchDrainsQueueIntoStream(t *testing.T) {
	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)

	store, mr := newStore(t)
	batch := seedEntries(t, store, base, 5)

	// The list buffer is fully drained into the stream.
	assert.False(t, mr.Exists(testQueueKey))

	for _, entry := range batch {
		assert.NotEmpty(t, entry.ID)
	}

	got, total, err := store.Query(context.Background(), storagetypes.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, got, 5)
	assert.Equal(t, "boom 4", got[0].Message)
	assert.Equal(t, "boom 0", got[4].Message)
}

func TestInsertBatchDefersDrainWhenStreamBlocked(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)

	// A wrong-typed stream key makes every XADD fail.
	require.NoError(t, mr.Set(testStreamKey, "blocked"))

	first := []domain.LogEntry{
		{Timestamp: base, Level: domain.LevelError, Message: "e1"},
		{Timestamp: base.Add(time.Second), Level: domain.LevelError, Message: "e2"},
	}

	// The batch is accepted into the List buffer; no error surfaces,
	// so the worker never re-inserts it.
	require.NoError(t, store.InsertBatch(ctx, first))

	queued, err := mr.List(testQueueKey)
	require.NoError(t, err)
	assert.Len(t, queued, 2)

	mr.Del(testStreamKey)

	second := []domain.LogEntry{
		{Timestamp: base.Add(2 * time.Second), Level: domain.LevelError, Message: "e3"},
	}
	require.NoError(t, store.InsertBatch(ctx, second))

	// Every entry is persisted exactly once.
	got, total, err := store.Query(ctx, storagetypes.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 3)
	assert.Equal(t, "e3", got[0].Message)
	assert.Equal(t, "e2", got[1].Message)
	assert.Equal(t, "e1", got[2].Message)
	assert.False(t, mr.Exists(testQueueKey))
}

func TestDrainQueuedPublishesStagedEntries(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	// An entry a failed drain left staged in the List buffer.
	ms := time.Now().UTC().Add(-time.Minute).UnixMilli()
	_, err := mr.Lpush(testQueueKey, fmt.Sprintf(`{"ts":%d,"level":"ERROR","message":"staged"}`, ms))
	require.NoError(t, err)

	_, total, err := store.Query(ctx, storagetypes.Filter{})
	require.NoError(t, err)
	require.Equal(t, 0, total)

	// No new traffic: the drain pass alone makes it visible.
	require.NoError(t, store.DrainQueued(ctx))

	got, total, err := store.Query(ctx, storagetypes.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "staged", got[0].Message)
	assert.False(t, mr.Exists(testQueueKey))
}

func TestNewGuardsNonPositiveMaxEntries(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := redisconn.New(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := redisdb.New(client, redisdb.Options{
		QueueKey:  testQueueKey,
		StreamKey: testStreamKey,
	})
	require.NoError(t, store.Initialize(context.Background()))

	seedEntries(t, store, time.Now().UTC().Add(-time.Minute), 3)

	_, total, err := store.Query(context.Background(), storagetypes.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestInsertBatchRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	want := domain.LogEntry{
		Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
		Level:       domain.LevelError,
		Event:       "db_timeout",
		Message:     "query exceeded deadline",
		RequestID:   "req-123",
		Endpoint:    "/orders",
		HTTPMethod:  "POST",
		HTTPStatus:  500,
		IPAddress:   "10.1.2.3",
		DurationMs:  5321,
		Error:       "context deadline exceeded",
		StackTrace:  "main.go:42",
		Context:     map[string]any{"query": "orders_by_user", "retries": float64(2)},
		RequestBody: `{"user_id":7}`,
	}

	batch := []domain.LogEntry{want}
	require.NoError(t, store.InsertBatch(ctx, batch))

	got, total, err := store.Query(ctx, storagetypes.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, total)

	want.ID = batch[0].ID
	assert.Equal(t, want, got[0])
}

func TestQueryFiltersAndPagination(t *testing.T) {
	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)

	store, _ := newStore(t)
	seedEntries(t, store, base, 9)
	ctx := context.Background()

	byLevel, total, err := store.Query(ctx, storagetypes.Filter{Level: domain.LevelWarning})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	for _, entry := range byLevel {
		assert.Equal(t, domain.LevelWarning, entry.Level)
	}

	page, total, err := store.Query(ctx, storagetypes.Filter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 9, total)
	require.Len(t, page, 2)
	assert.Equal(t, "boom 6", page[0].Message)
	assert.Equal(t, "boom 5", page[1].Message)

	bySearch, total, err := store.Query(ctx, storagetypes.Filter{Search: "BOOM 4"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "boom 4", bySearch[0].Message)
}

func TestTrimByAgeUsesEntryTimestamps(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	// The stale entry arrives now but carries an old timestamp; the
	// age trim must still remove it.
	batch := []domain.LogEntry{
		{Timestamp: now.Add(-2 * time.Hour), Level: domain.LevelError, Message: "stale"},
		{Timestamp: now.Add(-10 * time.Minute), Level: domain.LevelError, Message: "fresh"},
	}
	require.NoError(t, store.InsertBatch(ctx, batch))

	require.NoError(t, store.TrimByAge(ctx, now.Add(-time.Hour)))

	got, total, err := store.Query(ctx, storagetypes.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Message)
}

func TestTrimByCount(t *testing.T) {
	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)

	store, _ := newStore(t)
	seedEntries(t, store, base, 50)
	ctx := context.Background()

	require.NoError(t, store.TrimByCount(ctx, 20))

	_, total, err := store.Query(ctx, storagetypes.Filter{})
	require.NoError(t, err)
	assert.LessOrEqual(t, total, 50)
	assert.GreaterOrEqual(t, total, 20)

	// The newest entry always survives a count trim.
	page, _, err := store.Query(ctx, storagetypes.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, "boom 49", page[0].Message)
}

func TestCountSinceAndLatestTimestamp(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	batch := []domain.LogEntry{
		{Timestamp: now.Add(-3 * time.Hour), Level: domain.LevelError, Message: "old error"},
		{Timestamp: now.Add(-30 * time.Minute), Level: domain.LevelError, Message: "recent error"},
		{Timestamp: now.Add(-20 * time.Minute), Level: domain.LevelWarning, Message: "recent warning"},
	}
	require.NoError(t, store.InsertBatch(ctx, batch))

	counts, err := store.CountSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.LevelCounts{Errors: 1, Warnings: 1, Total: 2}, counts)

	all, err := store.CountSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)

	latest, err := store.LatestTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-20*time.Minute), latest)
}

func TestHealthReportsQueueDepth(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	seedEntries(t, store, time.Now().UTC().Add(-time.Minute), 4)

	// A queued entry left behind by a crashed drain.
	_, err := mr.Lpush(testQueueKey, `{"ts":1,"level":"ERROR"}`)
	require.NoError(t, err)

	health := store.Health(ctx)
	assert.True(t, health.OK)
	assert.Equal(t, "redis", health.Backend)
	assert.Equal(t, int64(4), health.Entries)
	assert.Equal(t, int64(1), health.QueueDepth)
}

func TestHealthDegradedWhenDown(t *testing.T) {
	store, mr := newStore(t)
	mr.Close()

	health := store.Health(context.Background())
	assert.False(t, health.OK)
	assert.NotEmpty(t, health.Error)
}
