package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/emberlog/emberlog/internal/domain"
	storage_mock "github.com/emberlog/emberlog/internal/mocks/storage"
	"github.com/emberlog/emberlog/internal/service"
	"github.com/emberlog/emberlog/internal/storage/storagetypes"
)

func TestQueryService_Logs(t *testing.T) {
	type mockBehavior func(b *storage_mock.MockBackend)

	entries := []domain.LogEntry{
		{ID: "2", Level: domain.LevelError, Message: "newer"},
		{ID: "1", Level: domain.LevelError, Message: "older"},
	}

	testCases := []struct {
		name         string
		filter       storagetypes.Filter
		mockBehavior mockBehavior
		want         []domain.LogEntry
		wantTotal    int
		wantErr      bool
	}{
		{
			name:   "success",
			filter: storagetypes.Filter{Level: domain.LevelError},
			mockBehavior: func(b *storage_mock.MockBackend) {
				b.EXPECT().
					Query(gomock.Any(), storagetypes.Filter{Level: domain.LevelError}).
					Return(entries, 42, nil)
			},
			want:      entries,
			wantTotal: 42,
		},
		{
			name:   "backend failure",
			filter: storagetypes.Filter{},
			mockBehavior: func(b *storage_mock.MockBackend) {
				b.EXPECT().
					Query(gomock.Any(), gomock.Any()).
					Return(nil, 0, errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			backend := storage_mock.NewMockBackend(ctrl)
			tc.mockBehavior(backend)

			svc := service.NewQueryService(backend)
			got, total, err := svc.Logs(context.Background(), tc.filter)

			if tc.wantErr {
				assert.ErrorIs(t, err, service.ErrQueryFailed)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantTotal, total)
		})
	}
}

func TestQueryService_Stats(t *testing.T) {
	latest := time.Now().UTC().Truncate(time.Millisecond)

	type mockBehavior func(b *storage_mock.MockBackend)

	testCases := []struct {
		name         string
		window       time.Duration
		mockBehavior mockBehavior
		want         domain.Stats
		wantErr      bool
	}{
		{
			name:   "windowed",
			window: time.Hour,
			mockBehavior: func(b *storage_mock.MockBackend) {
				b.EXPECT().
					CountSince(gomock.Any(), gomock.Cond(func(since time.Time) bool {
						return !since.IsZero()
					})).
					Return(domain.LevelCounts{Errors: 3, Warnings: 1, Total: 4}, nil)
				b.EXPECT().LatestTimestamp(gomock.Any()).Return(latest, nil)
			},
			want: domain.Stats{ErrorCount: 3, WarningCount: 1, Total: 4, LatestTimestamp: latest},
		},
		{
			name:   "zero window counts everything",
			window: 0,
			mockBehavior: func(b *storage_mock.MockBackend) {
				b.EXPECT().
					CountSince(gomock.Any(), time.Time{}).
					Return(domain.LevelCounts{Total: 10}, nil)
				b.EXPECT().LatestTimestamp(gomock.Any()).Return(latest, nil)
			},
			want: domain.Stats{Total: 10, LatestTimestamp: latest},
		},
		{
			name:   "count failure",
			window: time.Hour,
			mockBehavior: func(b *storage_mock.MockBackend) {
				b.EXPECT().
					CountSince(gomock.Any(), gomock.Any()).
					Return(domain.LevelCounts{}, errors.New("timeout"))
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			backend := storage_mock.NewMockBackend(ctrl)
			tc.mockBehavior(backend)

			svc := service.NewQueryService(backend)
			got, err := svc.Stats(context.Background(), tc.window)

			if tc.wantErr {
				assert.ErrorIs(t, err, service.ErrQueryFailed)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQueryService_Health(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := storage_mock.NewMockBackend(ctrl)
	backend.EXPECT().
		Health(gomock.Any()).
		Return(storagetypes.Health{OK: true, Backend: "sqlite", Entries: 5})

	svc := service.NewQueryService(backend)
	health := svc.Health(context.Background())

	assert.True(t, health.OK)
	assert.Equal(t, "sqlite", health.Backend)
}
