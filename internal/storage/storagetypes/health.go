package storagetypes

// Health is a connectivity and capacity snapshot of a storage backend.
// Health probes never fail: on error OK is false and Error carries the
// diagnostic, all other fields keep their zero values.
type Health struct {
	OK      bool
	Backend string
	Error   string

	// Total stored entries, when the probe could count them.
	Entries int64

	// Redis: depth of the List buffer awaiting drain to the stream.
	QueueDepth int64

	// Postgres: connection pool occupancy.
	PoolTotal int32
	PoolIdle  int32

	// SQLite: database file diagnostics.
	FileSizeBytes int64
	WALActive     bool
}
