package domain

import "time"

// RequestEvent is a lightweight record of one HTTP request outcome.
// Held only in the in-memory ring tracker, never persisted. It shares
// RequestID with a LogEntry when both exist for the same request.
type RequestEvent struct {
	Timestamp  time.Time
	Method     string
	Path       string
	Status     int
	DurationMs int64
	RequestID  string
	Headers    map[string]string
}
