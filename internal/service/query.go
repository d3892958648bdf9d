package service

import (
	"context"
	"time"

	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/storage"
	"github.com/emberlog/emberlog/internal/storage/storagetypes"
	errorsUtils "github.com/emberlog/emberlog/pkg/errors"
)

type QueryService struct {
	backend storage.Backend
}

func NewQueryService(backend storage.Backend) *QueryService {
	return &QueryService{backend: backend}
}

func (s *QueryService) Logs(ctx context.Context, filter storagetypes.Filter) ([]domain.LogEntry, int, error) {
	entries, total, err := s.backend.Query(ctx, filter)
	if err != nil {
		return nil, 0, errorsUtils.WrapPathErr(ErrQueryFailed)
	}
	return entries, total, nil
}

// Stats aggregates level counts over the trailing window. A zero
// window covers everything stored.
func (s *QueryService) Stats(ctx context.Context, window time.Duration) (domain.Stats, error) {
	var since time.Time
	if window > 0 {
		since = time.Now().UTC().Add(-window)
	}

	counts, err := s.backend.CountSince(ctx, since)
	if err != nil {
		return domain.Stats{}, errorsUtils.WrapPathErr(ErrQueryFailed)
	}
	latest, err := s.backend.LatestTimestamp(ctx)
	if err != nil {
		return domain.Stats{}, errorsUtils.WrapPathErr(ErrQueryFailed)
	}

	return domain.Stats{
		ErrorCount:      counts.Errors,
		WarningCount:    counts.Warnings,
		Total:           counts.Total,
		LatestTimestamp: latest,
	}, nil
}

func (s *QueryService) Health(ctx context.Context) storagetypes.Health {
	return s.backend.Health(ctx)
}
