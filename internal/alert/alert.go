// Package alert publishes notifications for captured entries that
// clear a severity gate. Notifications are deduplicated per
// fingerprint for a cooldown window and published fire-and-forget, so
// a slow or absent broker never touches the capture path.
package alert

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/metrics"
)

type Producer interface {
	SendMessage(ctx context.Context, value []byte) error
}

type Options struct {
	MinLevel domain.Level
	Cooldown time.Duration

	// PublishTimeout bounds each broker call. Zero means 10s.
	PublishTimeout time.Duration
}

type Scheduler struct {
	producer Producer
	counters *metrics.Counters
	opts     Options

	mu       sync.Mutex
	lastSent map[string]time.Time

	now func() time.Time
}

type notification struct {
	Level     string `json:"level"`
	Event     string `json:"event"`
	Message   string `json:"message"`
	Endpoint  string `json:"endpoint,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"ts"`
}

func NewScheduler(producer Producer, counters *metrics.Counters, opts Options) *Scheduler {
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 10 * time.Second
	}
	return &Scheduler{
		producer: producer,
		counters: counters,
		opts:     opts,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Notify schedules a notification for the entry if its level clears
// the gate and its fingerprint is outside the cooldown window. The
// publish happens on its own goroutine; Notify itself never blocks.
func (s *Scheduler) Notify(entry *domain.LogEntry) {
	if s == nil || s.producer == nil {
		return
	}
	if !levelAtLeast(entry.Level, s.opts.MinLevel) {
		return
	}
	if !s.claimFingerprint(entry.Event + ":" + entry.Endpoint) {
		s.counters.AlertsSuppressed.Inc(entry.Event)
		return
	}

	payload, err := json.Marshal(notification{
		Level:     string(entry.Level),
		Event:     entry.Event,
		Message:   entry.Message,
		Endpoint:  entry.Endpoint,
		RequestID: entry.RequestID,
		Timestamp: entry.Timestamp.UTC().UnixMilli(),
	})
	if err != nil {
		log.Errorf("Failed to encode alert: %v", err)
		return
	}

	event := entry.Event
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.PublishTimeout)
		defer cancel()

		if err := s.producer.SendMessage(ctx, payload); err != nil {
			s.counters.AlertsFailed.Inc(event)
			return
		}
		s.counters.AlertsPublished.Inc(event)
	}()
}

// claimFingerprint reserves the fingerprint for one cooldown window.
// Stale fingerprints are pruned in passing so the map stays bounded by
// the set of recently active fingerprints.
func (s *Scheduler) claimFingerprint(fingerprint string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if sent, ok := s.lastSent[fingerprint]; ok && now.Sub(sent) < s.opts.Cooldown {
		return false
	}
	for fp, sent := range s.lastSent {
		if now.Sub(sent) >= s.opts.Cooldown {
			delete(s.lastSent, fp)
		}
	}
	s.lastSent[fingerprint] = now
	return true
}

func levelAtLeast(level, min domain.Level) bool {
	if min == "" || min == domain.LevelWarning {
		return true
	}
	return level == domain.LevelError
}
