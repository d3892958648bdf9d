package redisdb

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/emberlog/emberlog/internal/domain"
)

var errBadStreamEntry = errors.New("redisdb: malformed stream entry")

// queuedEntry is the List buffer representation. The stream uses flat
// field pairs instead so entries stay inspectable with plain XRANGE.
type queuedEntry struct {
	Timestamp   int64          `json:"ts"`
	Level       string         `json:"level"`
	Event       string         `json:"event,omitempty"`
	Message     string         `json:"message,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Endpoint    string         `json:"endpoint,omitempty"`
	HTTPMethod  string         `json:"http_method,omitempty"`
	HTTPStatus  int            `json:"http_status,omitempty"`
	IPAddress   string         `json:"ip_address,omitempty"`
	DurationMs  int64          `json:"duration_ms,omitempty"`
	Error       string         `json:"error,omitempty"`
	StackTrace  string         `json:"stack_trace,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	RequestBody string         `json:"request_body,omitempty"`
}

func encodeQueued(entry *domain.LogEntry) ([]byte, error) {
	return json.Marshal(queuedEntry{
		Timestamp:   entry.Timestamp.UTC().UnixMilli(),
		Level:       string(entry.Level),
		Event:       entry.Event,
		Message:     entry.Message,
		RequestID:   entry.RequestID,
		Endpoint:    entry.Endpoint,
		HTTPMethod:  entry.HTTPMethod,
		HTTPStatus:  entry.HTTPStatus,
		IPAddress:   entry.IPAddress,
		DurationMs:  entry.DurationMs,
		Error:       entry.Error,
		StackTrace:  entry.StackTrace,
		Context:     entry.Context,
		RequestBody: entry.RequestBody,
	})
}

func decodeQueued(raw []byte) (*domain.LogEntry, error) {
	var q queuedEntry
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, err
	}
	return &domain.LogEntry{
		Timestamp:   time.UnixMilli(q.Timestamp).UTC(),
		Level:       domain.Level(q.Level),
		Event:       q.Event,
		Message:     q.Message,
		RequestID:   q.RequestID,
		Endpoint:    q.Endpoint,
		HTTPMethod:  q.HTTPMethod,
		HTTPStatus:  q.HTTPStatus,
		IPAddress:   q.IPAddress,
		DurationMs:  q.DurationMs,
		Error:       q.Error,
		StackTrace:  q.StackTrace,
		Context:     q.Context,
		RequestBody: q.RequestBody,
	}, nil
}

// streamFields flattens an entry into XADD field pairs. Empty fields
// are skipped so sparse entries stay small.
func streamFields(entry *domain.LogEntry) []any {
	fields := []any{
		"ts", strconv.FormatInt(entry.Timestamp.UTC().UnixMilli(), 10),
		"level", string(entry.Level),
	}
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, key, value)
		}
	}

	add("event", entry.Event)
	add("message", entry.Message)
	add("request_id", entry.RequestID)
	add("endpoint", entry.Endpoint)
	add("http_method", entry.HTTPMethod)
	if entry.HTTPStatus != 0 {
		fields = append(fields, "http_status", strconv.Itoa(entry.HTTPStatus))
	}
	add("ip_address", entry.IPAddress)
	if entry.DurationMs != 0 {
		fields = append(fields, "duration_ms", strconv.FormatInt(entry.DurationMs, 10))
	}
	add("error", entry.Error)
	add("stack_trace", entry.StackTrace)
	if len(entry.Context) > 0 {
		if raw, err := json.Marshal(entry.Context); err == nil {
			fields = append(fields, "context", string(raw))
		}
	}
	add("request_body", entry.RequestBody)
	return fields
}

// parseStreamEntry decodes one XRANGE/XREVRANGE reply item, the
// two-element [id, [field, value, ...]] form.
func parseStreamEntry(item any) (domain.LogEntry, error) {
	pair, err := redis.Values(item, nil)
	if err != nil || len(pair) != 2 {
		return domain.LogEntry{}, errBadStreamEntry
	}

	id, err := redis.String(pair[0], nil)
	if err != nil {
		return domain.LogEntry{}, errBadStreamEntry
	}
	fields, err := redis.StringMap(pair[1], nil)
	if err != nil {
		return domain.LogEntry{}, errBadStreamEntry
	}

	ms, err := strconv.ParseInt(fields["ts"], 10, 64)
	if err != nil {
		return domain.LogEntry{}, errBadStreamEntry
	}

	entry := domain.LogEntry{
		ID:          id,
		Timestamp:   time.UnixMilli(ms).UTC(),
		Level:       domain.Level(fields["level"]),
		Event:       fields["event"],
		Message:     fields["message"],
		RequestID:   fields["request_id"],
		Endpoint:    fields["endpoint"],
		HTTPMethod:  fields["http_method"],
		IPAddress:   fields["ip_address"],
		Error:       fields["error"],
		StackTrace:  fields["stack_trace"],
		RequestBody: fields["request_body"],
	}
	if v := fields["http_status"]; v != "" {
		entry.HTTPStatus, _ = strconv.Atoi(v)
	}
	if v := fields["duration_ms"]; v != "" {
		entry.DurationMs, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := fields["context"]; v != "" {
		_ = json.Unmarshal([]byte(v), &entry.Context)
	}
	return entry, nil
}
