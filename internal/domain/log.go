package domain

import "time"

type Level string

const (
	LevelError   Level = "ERROR"
	LevelWarning Level = "WARNING"
)

// Valid reports whether l is one of the two capturable levels.
func (l Level) Valid() bool {
	return l == LevelError || l == LevelWarning
}

// LogEntry is one captured error/warning event. Immutable once created;
// ID is assigned by the storage backend on insert (row id or stream id).
// Timestamps are UTC with millisecond precision across all backends.
type LogEntry struct {
	ID          string
	Timestamp   time.Time
	Level       Level
	Event       string
	Message     string
	RequestID   string
	Endpoint    string
	HTTPMethod  string
	HTTPStatus  int
	IPAddress   string
	DurationMs  int64
	Error       string
	StackTrace  string
	Context     map[string]any
	RequestBody string
}

type LevelCounts struct {
	Errors   int64
	Warnings int64
	Total    int64
}

// Stats is the dashboard summary for a time window.
type Stats struct {
	ErrorCount      int64
	WarningCount    int64
	Total           int64
	LatestTimestamp time.Time
}
