// Package emberlog is the embeddable capture pipeline: callers hand it
// error and warning events, a background worker flushes them into one
// of three interchangeable storage backends, and query methods read
// them back. Capture never blocks and never fails; storage trouble
// costs entries, not requests.
package emberlog

import (
	"context"
	"time"

	"github.com/emberlog/emberlog/internal/alert"
	kafkabroker "github.com/emberlog/emberlog/internal/alert/kafka"
	"github.com/emberlog/emberlog/internal/buffer"
	"github.com/emberlog/emberlog/internal/config"
	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/metrics"
	"github.com/emberlog/emberlog/internal/ringtrack"
	"github.com/emberlog/emberlog/internal/service"
	"github.com/emberlog/emberlog/internal/storage"
	"github.com/emberlog/emberlog/internal/storage/storagetypes"
	"github.com/emberlog/emberlog/internal/worker"
)

// Re-exported so embedders do not import internal packages.
type (
	LogEntry     = domain.LogEntry
	RequestEvent = domain.RequestEvent
	Stats        = domain.Stats
	Filter       = storagetypes.Filter
	Health       = storagetypes.Health
)

const (
	LevelError   = domain.LevelError
	LevelWarning = domain.LevelWarning
)

type Pipeline struct {
	cfg      *config.Config
	backend  storage.Backend
	buf      *buffer.Buffer
	worker   *worker.Worker
	producer *kafkabroker.Producer
	services *service.Services
	counters *metrics.Counters
}

// Start opens the configured backend, initializes its schema and
// launches the retention worker. Initialization failure is returned
// rather than deferred: a pipeline that cannot store anything should
// fail at startup, not silently drop every entry.
func Start(ctx context.Context, cfg *config.Config, counters *metrics.Counters) (*Pipeline, error) {
	backend, err := storage.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := backend.Initialize(ctx); err != nil {
		backend.Close()
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		backend:  backend,
		buf:      buffer.New(cfg.Buffer.Capacity),
		counters: counters,
	}

	var alerts *alert.Scheduler
	if cfg.Alerts.Enabled {
		p.producer = kafkabroker.NewProducer(kafkabroker.ProducerConfig{
			Brokers: cfg.Alerts.Brokers,
			Topic:   cfg.Alerts.Topic,
		})
		alerts = alert.NewScheduler(p.producer, counters, alert.Options{
			MinLevel: domain.Level(cfg.Alerts.MinLevel),
			Cooldown: cfg.AlertCooldown(),
		})
	}

	ring := ringtrack.New(cfg.Requests.RingCapacity, ringtrack.Options{
		TrackAll:       cfg.Requests.TrackAll,
		CaptureHeaders: cfg.Requests.CaptureHeaders,
	})

	p.services = service.NewServices(service.ServicesDependencies{
		Backend:         backend,
		Buffer:          p.buf,
		Ring:            ring,
		Alerts:          alerts,
		Counters:        counters,
		MaxBodyBytes:    cfg.Capture.MaxBodyBytes,
		SensitiveFields: cfg.Capture.SensitiveFields,
	})

	p.worker = worker.New(p.buf, backend, counters, worker.Options{
		Interval:    cfg.WorkerInterval(),
		BatchSize:   cfg.Worker.BatchSize,
		MaxEntries:  cfg.Retention.MaxEntries,
		Retention:   cfg.RetentionWindow(),
		BackendName: cfg.Storage.Backend,
	})
	p.worker.Start()

	return p, nil
}

func (p *Pipeline) Capture(entry LogEntry) {
	p.services.Capture.Capture(entry)
}

func (p *Pipeline) RecordRequest(event RequestEvent) {
	p.services.Capture.RecordRequest(event)
}

func (p *Pipeline) RecentRequests() []RequestEvent {
	return p.services.Capture.RecentRequests()
}

func (p *Pipeline) Logs(ctx context.Context, filter Filter) ([]LogEntry, int, error) {
	return p.services.Query.Logs(ctx, filter)
}

func (p *Pipeline) Stats(ctx context.Context, window time.Duration) (Stats, error) {
	return p.services.Query.Stats(ctx, window)
}

func (p *Pipeline) StorageHealth(ctx context.Context) Health {
	return p.services.Query.Health(ctx)
}

// Buffered reports entries waiting for the next flush; Dropped counts
// entries lost to buffer overflow since startup.
func (p *Pipeline) Buffered() int   { return p.buf.Len() }
func (p *Pipeline) Dropped() int64  { return p.buf.Dropped() }
func (p *Pipeline) Captured() int64 { return p.buf.Enqueued() }

// Close stops the worker, flushing buffered entries until the ctx
// deadline, then releases the backend and the alert producer.
func (p *Pipeline) Close(ctx context.Context) error {
	err := p.worker.Stop(ctx)

	if p.producer != nil {
		p.producer.Close()
	}
	if closeErr := p.backend.Close(); err == nil {
		err = closeErr
	}
	return err
}
