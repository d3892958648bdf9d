package emberlog_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlog/emberlog"
	"github.com/emberlog/emberlog/internal/config"
	"github.com/emberlog/emberlog/internal/metrics"
)

func sqliteConfig(t *testing.T, path string) *config.Config {
	t.Helper()

	cfg, err := config.New()
	require.NoError(t, err)
	cfg.Storage.SQLitePath = path
	cfg.Worker.IntervalSeconds = 3600
	return cfg
}

func TestPipelineCaptureFlushAndQuery(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "ember.db")

	pipeline, err := emberlog.Start(ctx, sqliteConfig(t, dbPath), metrics.NewTestCounters())
	require.NoError(t, err)

	pipeline.Capture(emberlog.LogEntry{
		Level:   emberlog.LevelError,
		Event:   "unhandled_exception",
		Message: "boom",
		Context: map[string]any{"password": "hunter2"},
	})
	pipeline.Capture(emberlog.LogEntry{
		Level:   emberlog.LevelWarning,
		Event:   "slow_query",
		Message: "orders took 4s",
	})
	pipeline.Capture(emberlog.LogEntry{
		Level:   "DEBUG",
		Message: "silently discarded",
	})

	assert.Equal(t, 2, pipeline.Buffered())
	assert.Equal(t, int64(2), pipeline.Captured())
	assert.Equal(t, int64(0), pipeline.Dropped())

	// Close flushes the buffer before releasing the backend.
	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, pipeline.Close(closeCtx))

	reopened, err := emberlog.Start(ctx, sqliteConfig(t, dbPath), metrics.NewTestCounters())
	require.NoError(t, err)
	defer reopened.Close(ctx)

	entries, total, err := reopened.Logs(ctx, emberlog.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "orders took 4s", entries[0].Message)
	assert.Equal(t, "***REDACTED***", entries[1].Context["password"])

	stats, err := reopened.Stats(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ErrorCount)
	assert.Equal(t, int64(1), stats.WarningCount)
	assert.False(t, stats.LatestTimestamp.IsZero())

	health := reopened.StorageHealth(ctx)
	assert.True(t, health.OK)
	assert.Equal(t, "sqlite", health.Backend)
}

func TestPipelineRequestRing(t *testing.T) {
	ctx := context.Background()

	pipeline, err := emberlog.Start(ctx, sqliteConfig(t, filepath.Join(t.TempDir(), "ember.db")), metrics.NewTestCounters())
	require.NoError(t, err)
	defer pipeline.Close(ctx)

	pipeline.RecordRequest(emberlog.RequestEvent{Method: "GET", Path: "/ok", Status: 200})
	pipeline.RecordRequest(emberlog.RequestEvent{Method: "GET", Path: "/broken", Status: 500})

	recent := pipeline.RecentRequests()
	require.Len(t, recent, 1)
	assert.Equal(t, "/broken", recent[0].Path)
}
