package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	errorsUtils "github.com/emberlog/emberlog/pkg/errors"

	"github.com/ilyakaznacheev/cleanenv"
	log "github.com/sirupsen/logrus"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type (
	Config struct {
		App        `yaml:"app"`
		Log        `yaml:"log"`
		Storage    `yaml:"storage"`
		Retention  `yaml:"retention"`
		Worker     `yaml:"worker"`
		Buffer     `yaml:"buffer"`
		Requests   `yaml:"requests"`
		Capture    `yaml:"capture"`
		Alerts     `yaml:"alerts"`
		Prometheus `yaml:"prometheus"`
	}

	App struct {
		Name    string `yaml:"name" env:"APP_NAME" env-default:"emberlog"`
		Version string `yaml:"version" env:"APP_VERSION" env-default:"dev"`
	}

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	}

	Storage struct {
		Backend       string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"sqlite"`
		SQLitePath    string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"ember.db"`
		PGURL         string `yaml:"pg_url" env:"PG_URL"`
		PGTable       string `yaml:"pg_table" env:"PG_TABLE" env-default:"ember_logs"`
		PGMaxPoolSize int    `yaml:"pg_max_pool_size" env:"PG_MAX_POOL_SIZE" env-default:"4"`
		RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
		RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
		RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
		QueueKey      string `yaml:"queue_key" env:"QUEUE_KEY" env-default:"ember:queue"`
		StreamKey     string `yaml:"stream_key" env:"STREAM_KEY" env-default:"ember:logs"`
	}

	Retention struct {
		MaxEntries     int `yaml:"max_entries" env:"MAX_ENTRIES" env-default:"10000"`
		RetentionHours int `yaml:"retention_hours" env:"RETENTION_HOURS" env-default:"168"`
	}

	Worker struct {
		IntervalSeconds        int `yaml:"interval_seconds" env:"WORKER_INTERVAL_SECONDS" env-default:"5"`
		BatchSize              int `yaml:"batch_size" env:"WORKER_BATCH_SIZE" env-default:"100"`
		ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" env:"WORKER_SHUTDOWN_TIMEOUT_SECONDS" env-default:"10"`
	}

	Buffer struct {
		Capacity int `yaml:"capacity" env:"BUFFER_CAPACITY" env-default:"2048"`
	}

	Requests struct {
		RingCapacity   int  `yaml:"ring_capacity" env:"REQUEST_RING_CAPACITY" env-default:"1000"`
		TrackAll       bool `yaml:"track_all" env:"REQUEST_TRACK_ALL" env-default:"false"`
		CaptureHeaders bool `yaml:"capture_headers" env:"REQUEST_CAPTURE_HEADERS" env-default:"false"`
	}

	Capture struct {
		MaxBodyBytes    int      `yaml:"max_body_bytes" env:"CAPTURE_MAX_BODY_BYTES" env-default:"8192"`
		SensitiveFields []string `yaml:"sensitive_fields" env:"CAPTURE_SENSITIVE_FIELDS" env-default:"password,passwd,token,api_key,apikey,secret,authorization,card_number,cvv,private_key,secret_key,ssn"`
	}

	Alerts struct {
		Enabled         bool     `yaml:"enabled" env:"ALERTS_ENABLED" env-default:"false"`
		Brokers         []string `yaml:"brokers" env:"ALERT_BROKERS" env-default:"localhost:9092"`
		Topic           string   `yaml:"topic" env:"ALERT_TOPIC" env-default:"emberlog-alerts"`
		MinLevel        string   `yaml:"min_level" env:"ALERT_MIN_LEVEL" env-default:"ERROR"`
		CooldownSeconds int      `yaml:"cooldown_seconds" env:"ALERT_COOLDOWN_SECONDS" env-default:"300"`
	}

	Prometheus struct {
		Port string `yaml:"port" env:"PROMETHEUS_PORT" env-default:"9090"`
	}
)

var (
	ErrUnknownBackend  = errors.New("unknown storage backend")
	ErrMissingConnInfo = errors.New("missing connection parameter for selected backend")
	ErrBadTableName    = errors.New("pg table name must be a plain SQL identifier")
)

// tableNameRe guards the one identifier we interpolate into SQL text.
var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func New() (*Config, error) {
	if envPath, ok := os.LookupEnv("EMBERLOG_ENV_PATH"); ok {
		if err := godotenv.Load(envPath); err != nil {
			return nil, errorsUtils.WrapPathErr(err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	cfg := &Config{}

	pathToConfig, ok := os.LookupEnv("EMBERLOG_CONFIG_PATH")
	if ok && pathToConfig != "" {
		if err := cleanenv.ReadConfig(pathToConfig, cfg); err != nil {
			return nil, errorsUtils.WrapPathErr(err)
		}
	} else {
		log.WithField("env_var", "EMBERLOG_CONFIG_PATH").
			Debug("Config path is not set, using environment only")
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, errorsUtils.WrapPathErr(err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the startup-time invariants: a known backend is
// selected and its required connection parameter is present. A failure
// here is fatal; misconfiguration must never surface at runtime.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path", ErrMissingConnInfo)
		}
	case BackendPostgres:
		if c.Storage.PGURL == "" {
			return fmt.Errorf("%w: pg_url", ErrMissingConnInfo)
		}
		if !tableNameRe.MatchString(c.Storage.PGTable) {
			return fmt.Errorf("%w: %q", ErrBadTableName, c.Storage.PGTable)
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr", ErrMissingConnInfo)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}
	return nil
}

func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.Retention.RetentionHours) * time.Hour
}

func (c *Config) WorkerInterval() time.Duration {
	return time.Duration(c.Worker.IntervalSeconds) * time.Second
}

func (c *Config) WorkerShutdownTimeout() time.Duration {
	return time.Duration(c.Worker.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) AlertCooldown() time.Duration {
	return time.Duration(c.Alerts.CooldownSeconds) * time.Second
}
