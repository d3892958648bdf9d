package service

import (
	"context"
	"time"

	"github.com/emberlog/emberlog/internal/alert"
	"github.com/emberlog/emberlog/internal/buffer"
	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/metrics"
	"github.com/emberlog/emberlog/internal/ringtrack"
	"github.com/emberlog/emberlog/internal/storage"
	"github.com/emberlog/emberlog/internal/storage/storagetypes"
)

type Capture interface {
	// Capture sanitizes and enqueues one entry. It never blocks and
	// never fails; invalid entries are silently discarded.
	Capture(entry domain.LogEntry)

	// RecordRequest adds the request to the in-memory ring.
	RecordRequest(event domain.RequestEvent)

	// RecentRequests returns the ring contents newest-first.
	RecentRequests() []domain.RequestEvent
}

type Query interface {
	Logs(ctx context.Context, filter storagetypes.Filter) ([]domain.LogEntry, int, error)
	Stats(ctx context.Context, window time.Duration) (domain.Stats, error)
	Health(ctx context.Context) storagetypes.Health
}

type Services struct {
	Capture Capture
	Query   Query
}

type ServicesDependencies struct {
	Backend  storage.Backend
	Buffer   *buffer.Buffer
	Ring     *ringtrack.Ring
	Alerts   *alert.Scheduler
	Counters *metrics.Counters

	MaxBodyBytes    int
	SensitiveFields []string
}

func NewServices(deps ServicesDependencies) *Services {
	return &Services{
		Capture: NewCaptureService(deps.Buffer, deps.Ring, deps.Alerts, deps.Counters, CaptureOptions{
			MaxBodyBytes:    deps.MaxBodyBytes,
			SensitiveFields: deps.SensitiveFields,
		}),
		Query: NewQueryService(deps.Backend),
	}
}
