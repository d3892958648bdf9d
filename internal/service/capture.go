package service

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emberlog/emberlog/internal/alert"
	"github.com/emberlog/emberlog/internal/buffer"
	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/metrics"
	"github.com/emberlog/emberlog/internal/ringtrack"
)

const redactedPlaceholder = "***REDACTED***"

type CaptureOptions struct {
	// MaxBodyBytes truncates captured request bodies. Zero disables
	// body capture entirely.
	MaxBodyBytes int

	// SensitiveFields are matched as lowercase substrings against
	// context and body keys; matching values are redacted.
	SensitiveFields []string
}

type CaptureService struct {
	buf      *buffer.Buffer
	ring     *ringtrack.Ring
	alerts   *alert.Scheduler
	counters *metrics.Counters

	maxBodyBytes int
	sensitive    []string
}

func NewCaptureService(buf *buffer.Buffer, ring *ringtrack.Ring, alerts *alert.Scheduler, cnt *metrics.Counters, opts CaptureOptions) *CaptureService {
	sensitive := make([]string, 0, len(opts.SensitiveFields))
	for _, field := range opts.SensitiveFields {
		if field = strings.ToLower(strings.TrimSpace(field)); field != "" {
			sensitive = append(sensitive, field)
		}
	}
	return &CaptureService{
		buf:          buf,
		ring:         ring,
		alerts:       alerts,
		counters:     cnt,
		maxBodyBytes: opts.MaxBodyBytes,
		sensitive:    sensitive,
	}
}

// Capture sanitizes the entry and hands it to the buffer. Entries with
// unknown levels are discarded without feedback: capture sits on the
// caller's request path and must never surface a failure there.
func (s *CaptureService) Capture(entry domain.LogEntry) {
	if !entry.Level.Valid() {
		return
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC().Truncate(time.Millisecond)
	if entry.RequestID == "" {
		entry.RequestID = uuid.NewString()
	}

	entry.Context = s.maskMap(entry.Context)
	entry.RequestBody = s.sanitizeBody(entry.RequestBody)

	if s.buf.Enqueue(entry) {
		s.counters.EntriesEnqueued.Inc(string(entry.Level))
	} else {
		s.counters.EntriesDropped.Inc(string(entry.Level))
	}

	if s.alerts != nil {
		s.alerts.Notify(&entry)
	}
}

func (s *CaptureService) RecordRequest(event domain.RequestEvent) {
	event.Timestamp = event.Timestamp.UTC().Truncate(time.Millisecond)
	s.ring.Record(event)
}

func (s *CaptureService) RecentRequests() []domain.RequestEvent {
	return s.ring.Snapshot()
}

// sanitizeBody redacts sensitive keys when the body parses as a JSON
// object, then truncates to the configured cap. Non-JSON bodies are
// kept as-is, truncated.
func (s *CaptureService) sanitizeBody(body string) string {
	if s.maxBodyBytes <= 0 || body == "" {
		return ""
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		if masked, err := json.Marshal(s.maskMap(parsed)); err == nil {
			body = string(masked)
		}
	}

	if len(body) > s.maxBodyBytes {
		body = body[:s.maxBodyBytes]
	}
	return body
}

func (s *CaptureService) maskMap(data map[string]any) map[string]any {
	if len(data) == 0 || len(s.sensitive) == 0 {
		return data
	}

	result := make(map[string]any, len(data))
	for key, value := range data {
		if s.isSensitive(key) {
			result[key] = redactedPlaceholder
			continue
		}
		result[key] = s.maskValue(value)
	}
	return result
}

func (s *CaptureService) maskValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return s.maskMap(typed)
	case []any:
		masked := make([]any, len(typed))
		for i, item := range typed {
			masked[i] = s.maskValue(item)
		}
		return masked
	default:
		return value
	}
}

func (s *CaptureService) isSensitive(key string) bool {
	lowered := strings.ToLower(key)
	for _, field := range s.sensitive {
		if strings.Contains(lowered, field) {
			return true
		}
	}
	return false
}
