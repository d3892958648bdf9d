// Package sqlitedb is the embedded-file storage variant. WAL mode
// keeps readers unblocked while the retention worker writes; trims are
// delete-by-predicate followed by a checkpoint pass that folds the
// freed WAL pages back into the main file.
package sqlitedb

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/storage/storagetypes"
	errorsUtils "github.com/emberlog/emberlog/pkg/errors"
	"github.com/emberlog/emberlog/pkg/sqlitepool"
)

// Timestamps are stored as integer unix milliseconds: lossless at the
// model's millisecond precision and directly comparable in SQL.
const schema = `
CREATE TABLE IF NOT EXISTS logs (
	id           INTEGER  PRIMARY KEY AUTOINCREMENT,
	ts_ms        INTEGER  NOT NULL,
	level        TEXT     NOT NULL,
	event        TEXT     NOT NULL DEFAULT '',
	message      TEXT     NOT NULL DEFAULT '',
	request_id   TEXT     NOT NULL DEFAULT '',
	endpoint     TEXT     NOT NULL DEFAULT '',
	http_method  TEXT     NOT NULL DEFAULT '',
	http_status  INTEGER  NOT NULL DEFAULT 0,
	ip_address   TEXT     NOT NULL DEFAULT '',
	duration_ms  INTEGER  NOT NULL DEFAULT 0,
	error        TEXT     NOT NULL DEFAULT '',
	stack_trace  TEXT     NOT NULL DEFAULT '',
	context      TEXT     NOT NULL DEFAULT '',
	request_body TEXT     NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_logs_ts       ON logs(ts_ms);
CREATE INDEX IF NOT EXISTS idx_logs_level    ON logs(level);
CREATE INDEX IF NOT EXISTS idx_logs_level_ts ON logs(level, ts_ms DESC);
`

type LogStore struct {
	pool *sqlitepool.Pool
}

func New(pool *sqlitepool.Pool) *LogStore {
	return &LogStore{pool: pool}
}

// Initialize runs the schema script. IF NOT EXISTS plus the pool's
// busy_timeout make it safe for concurrent processes sharing the file.
func (s *LogStore) Initialize(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	return nil
}

// InsertBatch writes the whole batch in one IMMEDIATE transaction so a
// reader never observes a partial batch.
func (s *LogStore) InsertBatch(ctx context.Context, entries []domain.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	defer endTransaction(&err)

	for i := range entries {
		if err = s.insertEntry(conn, &entries[i]); err != nil {
			return errorsUtils.WrapPathErr(err)
		}
	}
	return err
}

func (s *LogStore) insertEntry(conn *sqlite.Conn, entry *domain.LogEntry) error {
	ctxJSON := ""
	if len(entry.Context) > 0 {
		raw, err := json.Marshal(entry.Context)
		if err != nil {
			return err
		}
		ctxJSON = string(raw)
	}

	err := sqlitex.Execute(conn, `
		INSERT INTO logs (
			ts_ms, level, event, message, request_id,
			endpoint, http_method, http_status, ip_address,
			duration_ms, error, stack_trace, context, request_body
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				entry.Timestamp.UTC().UnixMilli(), string(entry.Level), entry.Event,
				entry.Message, entry.RequestID, entry.Endpoint, entry.HTTPMethod,
				entry.HTTPStatus, entry.IPAddress, entry.DurationMs, entry.Error,
				entry.StackTrace, ctxJSON, entry.RequestBody,
			},
		})
	if err != nil {
		return err
	}

	entry.ID = strconv.FormatInt(conn.LastInsertRowID(), 10)
	return nil
}

func (s *LogStore) Query(ctx context.Context, filter storagetypes.Filter) ([]domain.LogEntry, int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer s.pool.Put(conn)

	where, args := buildFilterClause(filter)

	var total int
	err = sqlitex.Execute(conn, "SELECT COUNT(*) FROM logs"+where, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			total = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return nil, 0, errorsUtils.WrapPathErr(err)
	}

	query := `SELECT id, ts_ms, level, event, message, request_id,
		endpoint, http_method, http_status, ip_address,
		duration_ms, error, stack_trace, context, request_body
		FROM logs` + where + " ORDER BY ts_ms DESC, id DESC LIMIT ? OFFSET ?"
	pageArgs := append(append([]any{}, args...), filter.EffectiveLimit(), filter.Offset)

	var entries []domain.LogEntry
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: pageArgs,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entries = append(entries, scanEntry(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, 0, errorsUtils.WrapPathErr(err)
	}
	return entries, total, nil
}

func (s *LogStore) CountSince(ctx context.Context, since time.Time) (domain.LevelCounts, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return domain.LevelCounts{}, err
	}
	defer s.pool.Put(conn)

	var counts domain.LevelCounts
	err = sqlitex.Execute(conn,
		"SELECT level, COUNT(*) FROM logs WHERE ts_ms >= ? GROUP BY level",
		&sqlitex.ExecOptions{
			Args: []any{sinceMillis(since)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				n := stmt.ColumnInt64(1)
				switch domain.Level(stmt.ColumnText(0)) {
				case domain.LevelError:
					counts.Errors = n
				case domain.LevelWarning:
					counts.Warnings = n
				}
				counts.Total += n
				return nil
			},
		})
	if err != nil {
		return domain.LevelCounts{}, errorsUtils.WrapPathErr(err)
	}
	return counts, nil
}

func (s *LogStore) LatestTimestamp(ctx context.Context) (time.Time, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer s.pool.Put(conn)

	var latest time.Time
	err = sqlitex.Execute(conn, "SELECT MAX(ts_ms) FROM logs", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			if stmt.ColumnType(0) != sqlite.TypeNull {
				latest = time.UnixMilli(stmt.ColumnInt64(0)).UTC()
			}
			return nil
		},
	})
	if err != nil {
		return time.Time{}, errorsUtils.WrapPathErr(err)
	}
	return latest, nil
}

func (s *LogStore) TrimByCount(ctx context.Context, max int) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		DELETE FROM logs WHERE id NOT IN (
			SELECT id FROM logs ORDER BY ts_ms DESC, id DESC LIMIT ?
		)`,
		&sqlitex.ExecOptions{Args: []any{max}})
	if err != nil {
		return errorsUtils.WrapPathErr(err)
	}

	s.checkpoint(conn)
	return nil
}

func (s *LogStore) TrimByAge(ctx context.Context, cutoff time.Time) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM logs WHERE ts_ms < ?",
		&sqlitex.ExecOptions{Args: []any{cutoff.UTC().UnixMilli()}})
	if err != nil {
		return errorsUtils.WrapPathErr(err)
	}

	s.checkpoint(conn)
	return nil
}

// checkpoint is the compaction half of trimming: best effort, a
// failure only delays space reclamation until the next pass.
func (s *LogStore) checkpoint(conn *sqlite.Conn) {
	_ = sqlitex.ExecuteTransient(conn, "PRAGMA wal_checkpoint(PASSIVE)", nil)
}

func (s *LogStore) Health(ctx context.Context) storagetypes.Health {
	health := storagetypes.Health{Backend: "sqlite"}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		health.Error = err.Error()
		return health
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "SELECT COUNT(*) FROM logs", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			health.Entries = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		health.Error = err.Error()
		return health
	}

	err = sqlitex.Execute(conn, "PRAGMA journal_mode", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			health.WALActive = strings.EqualFold(stmt.ColumnText(0), "wal")
			return nil
		},
	})
	if err != nil {
		health.Error = err.Error()
		return health
	}

	if info, statErr := os.Stat(s.pool.Path()); statErr == nil {
		health.FileSizeBytes = info.Size()
	}

	health.OK = true
	return health
}

func (s *LogStore) Close() error {
	return s.pool.Close()
}

func buildFilterClause(filter storagetypes.Filter) (string, []any) {
	var conds []string
	var args []any

	if filter.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, string(filter.Level))
	}
	if filter.Event != "" {
		conds = append(conds, "event LIKE ?")
		args = append(args, "%"+filter.Event+"%")
	}
	if filter.Search != "" {
		conds = append(conds, "(message LIKE ? OR error LIKE ?)")
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "ts_ms >= ?")
		args = append(args, filter.Since.UTC().UnixMilli())
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "ts_ms <= ?")
		args = append(args, filter.Until.UTC().UnixMilli())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func sinceMillis(since time.Time) int64 {
	if since.IsZero() {
		return 0
	}
	return since.UTC().UnixMilli()
}

func scanEntry(stmt *sqlite.Stmt) domain.LogEntry {
	entry := domain.LogEntry{
		ID:          strconv.FormatInt(stmt.ColumnInt64(0), 10),
		Timestamp:   time.UnixMilli(stmt.ColumnInt64(1)).UTC(),
		Level:       domain.Level(stmt.ColumnText(2)),
		Event:       stmt.ColumnText(3),
		Message:     stmt.ColumnText(4),
		RequestID:   stmt.ColumnText(5),
		Endpoint:    stmt.ColumnText(6),
		HTTPMethod:  stmt.ColumnText(7),
		HTTPStatus:  stmt.ColumnInt(8),
		IPAddress:   stmt.ColumnText(9),
		DurationMs:  stmt.ColumnInt64(10),
		Error:       stmt.ColumnText(11),
		StackTrace:  stmt.ColumnText(12),
		RequestBody: stmt.ColumnText(14),
	}

	if raw := stmt.ColumnText(13); raw != "" {
		if err := json.Unmarshal([]byte(raw), &entry.Context); err != nil {
			entry.Context = nil
		}
	}
	return entry
}
