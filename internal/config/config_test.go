package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlog/emberlog/internal/config"
)

func TestNewReadsEnvDefaults(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)

	assert.Equal(t, config.BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "ember.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "ember_logs", cfg.Storage.PGTable)
	assert.Equal(t, "ember:queue", cfg.Storage.QueueKey)
	assert.Equal(t, "ember:logs", cfg.Storage.StreamKey)
	assert.Equal(t, 10000, cfg.Retention.MaxEntries)
	assert.Equal(t, 2048, cfg.Buffer.Capacity)
	assert.Equal(t, 1000, cfg.Requests.RingCapacity)
	assert.Equal(t, 8192, cfg.Capture.MaxBodyBytes)
	assert.Contains(t, cfg.Capture.SensitiveFields, "password")
	assert.False(t, cfg.Alerts.Enabled)

	assert.Equal(t, 168*time.Hour, cfg.RetentionWindow())
	assert.Equal(t, 5*time.Second, cfg.WorkerInterval())
	assert.Equal(t, 10*time.Second, cfg.WorkerShutdownTimeout())
	assert.Equal(t, 5*time.Minute, cfg.AlertCooldown())
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("MAX_ENTRIES", "500")

	cfg, err := config.New()
	require.NoError(t, err)

	assert.Equal(t, config.BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis.internal:6380", cfg.Storage.RedisAddr)
	assert.Equal(t, 500, cfg.Retention.MaxEntries)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr error
	}{
		{
			name:   "sqlite defaults are valid",
			mutate: func(cfg *config.Config) {},
		},
		{
			name: "unknown backend",
			mutate: func(cfg *config.Config) {
				cfg.Storage.Backend = "mongo"
			},
			wantErr: config.ErrUnknownBackend,
		},
		{
			name: "sqlite without path",
			mutate: func(cfg *config.Config) {
				cfg.Storage.SQLitePath = ""
			},
			wantErr: config.ErrMissingConnInfo,
		},
		{
			name: "postgres without url",
			mutate: func(cfg *config.Config) {
				cfg.Storage.Backend = config.BackendPostgres
			},
			wantErr: config.ErrMissingConnInfo,
		},
		{
			name: "postgres with injection in table name",
			mutate: func(cfg *config.Config) {
				cfg.Storage.Backend = config.BackendPostgres
				cfg.Storage.PGURL = "postgres://localhost:5432/ember"
				cfg.Storage.PGTable = "logs; DROP TABLE users"
			},
			wantErr: config.ErrBadTableName,
		},
		{
			name: "redis without addr",
			mutate: func(cfg *config.Config) {
				cfg.Storage.Backend = config.BackendRedis
				cfg.Storage.RedisAddr = ""
			},
			wantErr: config.ErrMissingConnInfo,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := config.New()
			require.NoError(t, err)

			tc.mutate(cfg)
			err = cfg.Validate()

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
