// Package pgdb is the relational storage variant: every batch insert
// is a direct statement against a pgx connection pool. The table name
// is configurable so independent deployments can share one database.
package pgdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/storage/storagetypes"
	errorsUtils "github.com/emberlog/emberlog/pkg/errors"
	"github.com/emberlog/emberlog/pkg/postgres"
)

var columns = []string{
	"ts", "level", "event", "message", "request_id",
	"endpoint", "http_method", "http_status", "ip_address",
	"duration_ms", "error", "stack_trace", "context", "request_body",
}

type LogStore struct {
	*postgres.Postgres
	table string
}

// New wires a LogStore on an established pool. The table name must
// already be validated as a plain identifier by the config layer.
func New(pg *postgres.Postgres, table string) *LogStore {
	return &LogStore{Postgres: pg, table: table}
}

// Initialize creates the table and its indexes if absent. Concurrent
// callers can race on CREATE INDEX, so duplicate-object errors are
// treated as success.
func (s *LogStore) Initialize(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id           BIGSERIAL    PRIMARY KEY,
	ts           TIMESTAMPTZ  NOT NULL,
	level        TEXT         NOT NULL,
	event        TEXT         NOT NULL DEFAULT '',
	message      TEXT         NOT NULL DEFAULT '',
	request_id   TEXT         NOT NULL DEFAULT '',
	endpoint     TEXT         NOT NULL DEFAULT '',
	http_method  TEXT         NOT NULL DEFAULT '',
	http_status  INTEGER      NOT NULL DEFAULT 0,
	ip_address   TEXT         NOT NULL DEFAULT '',
	duration_ms  BIGINT       NOT NULL DEFAULT 0,
	error        TEXT         NOT NULL DEFAULT '',
	stack_trace  TEXT         NOT NULL DEFAULT '',
	context      JSONB,
	request_body TEXT         NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_ts       ON %[1]s (ts DESC);
CREATE INDEX IF NOT EXISTS idx_%[1]s_level    ON %[1]s (level);
CREATE INDEX IF NOT EXISTS idx_%[1]s_level_ts ON %[1]s (level, ts DESC);
`, s.table)

	if _, err := s.Pool.Exec(ctx, ddl); err != nil {
		if errorsUtils.IsDuplicateTable(err) || errorsUtils.IsUniqueViolation(err) {
			return nil
		}
		return errorsUtils.WrapPathErr(err)
	}
	return nil
}

// InsertBatch appends all entries in one multi-row INSERT. Row order
// inside the statement matches slice order, and BIGSERIAL ids come
// back in the same order, so batch order is preserved.
func (s *LogStore) InsertBatch(ctx context.Context, entries []domain.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := s.Builder.
		Insert(s.table).
		Columns(columns...)

	for _, e := range entries {
		ctxJSON, err := contextJSON(e.Context)
		if err != nil {
			return errorsUtils.WrapPathErr(err)
		}
		query = query.Values(
			e.Timestamp.UTC(), string(e.Level), e.Event, e.Message, e.RequestID,
			e.Endpoint, e.HTTPMethod, e.HTTPStatus, e.IPAddress,
			e.DurationMs, e.Error, e.StackTrace, ctxJSON, e.RequestBody,
		)
	}

	sql, args, err := query.Suffix("RETURNING id").ToSql()
	if err != nil {
		return errorsUtils.WrapPathErr(err)
	}

	rows, err := s.CtxGetter.DefaultTrOrDB(ctx, s.Pool).Query(ctx, sql, args...)
	if err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return errorsUtils.WrapPathErr(err)
		}
		if i < len(entries) {
			entries[i].ID = strconv.FormatInt(id, 10)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	return nil
}

func (s *LogStore) Query(ctx context.Context, filter storagetypes.Filter) ([]domain.LogEntry, int, error) {
	conds := BuildLogQueryFilters(filter)

	countQuery := s.Builder.Select("COUNT(*)").From(s.table)
	if len(conds) > 0 {
		countQuery = countQuery.Where(sq.And(conds))
	}
	sql, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, errorsUtils.WrapPathErr(err)
	}

	var total int
	if err := s.CtxGetter.DefaultTrOrDB(ctx, s.Pool).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, 0, errorsUtils.WrapPathErr(err)
	}

	pageQuery := s.Builder.
		Select(append([]string{"id"}, columns...)...).
		From(s.table)
	if len(conds) > 0 {
		pageQuery = pageQuery.Where(sq.And(conds))
	}
	pageQuery = pageQuery.
		OrderBy("ts DESC", "id DESC").
		Limit(uint64(filter.EffectiveLimit())).
		Offset(uint64(filter.Offset))

	sql, args, err = pageQuery.ToSql()
	if err != nil {
		return nil, 0, errorsUtils.WrapPathErr(err)
	}

	rows, err := s.CtxGetter.DefaultTrOrDB(ctx, s.Pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, errorsUtils.WrapPathErr(err)
	}
	defer rows.Close()

	var entries []domain.LogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, errorsUtils.WrapPathErr(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errorsUtils.WrapPathErr(err)
	}

	return entries, total, nil
}

func (s *LogStore) CountSince(ctx context.Context, since time.Time) (domain.LevelCounts, error) {
	query := s.Builder.
		Select("level", "COUNT(*) AS count_entries").
		From(s.table)
	if !since.IsZero() {
		query = query.Where(sq.GtOrEq{"ts": since.UTC()})
	}
	query = query.GroupBy("level")

	sql, args, err := query.ToSql()
	if err != nil {
		return domain.LevelCounts{}, errorsUtils.WrapPathErr(err)
	}

	rows, err := s.CtxGetter.DefaultTrOrDB(ctx, s.Pool).Query(ctx, sql, args...)
	if err != nil {
		return domain.LevelCounts{}, errorsUtils.WrapPathErr(err)
	}
	defer rows.Close()

	var counts domain.LevelCounts
	for rows.Next() {
		var level string
		var n int64
		if err := rows.Scan(&level, &n); err != nil {
			return domain.LevelCounts{}, errorsUtils.WrapPathErr(err)
		}
		switch domain.Level(level) {
		case domain.LevelError:
			counts.Errors = n
		case domain.LevelWarning:
			counts.Warnings = n
		}
		counts.Total += n
	}
	if err := rows.Err(); err != nil {
		return domain.LevelCounts{}, errorsUtils.WrapPathErr(err)
	}
	return counts, nil
}

func (s *LogStore) LatestTimestamp(ctx context.Context) (time.Time, error) {
	sql, args, err := s.Builder.Select("MAX(ts)").From(s.table).ToSql()
	if err != nil {
		return time.Time{}, errorsUtils.WrapPathErr(err)
	}

	var latest *time.Time
	if err := s.CtxGetter.DefaultTrOrDB(ctx, s.Pool).QueryRow(ctx, sql, args...).Scan(&latest); err != nil {
		return time.Time{}, errorsUtils.WrapPathErr(err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return latest.UTC(), nil
}

// TrimByCount keeps the newest max rows. Single DELETE statement, so
// readers never observe a half-applied trim.
func (s *LogStore) TrimByCount(ctx context.Context, max int) error {
	sql := fmt.Sprintf(`
DELETE FROM %[1]s
WHERE id NOT IN (
	SELECT id FROM %[1]s ORDER BY ts DESC, id DESC LIMIT $1
)`, s.table)

	if _, err := s.Pool.Exec(ctx, sql, max); err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	return nil
}

func (s *LogStore) TrimByAge(ctx context.Context, cutoff time.Time) error {
	sql, args, err := s.Builder.Delete(s.table).Where(sq.Lt{"ts": cutoff.UTC()}).ToSql()
	if err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	if _, err := s.Pool.Exec(ctx, sql, args...); err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	return nil
}

func (s *LogStore) Health(ctx context.Context) storagetypes.Health {
	health := storagetypes.Health{Backend: "postgres"}

	if err := s.Pool.Ping(ctx); err != nil {
		health.Error = err.Error()
		return health
	}

	var total int64
	sql, args, err := s.Builder.Select("COUNT(*)").From(s.table).ToSql()
	if err == nil {
		err = s.Pool.QueryRow(ctx, sql, args...).Scan(&total)
	}
	if err != nil {
		health.Error = err.Error()
		return health
	}

	stat := s.Pool.Stat()
	health.OK = true
	health.Entries = total
	health.PoolTotal = stat.TotalConns()
	health.PoolIdle = stat.IdleConns()
	return health
}

func (s *LogStore) Close() error {
	s.Postgres.Close()
	return nil
}

func contextJSON(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func scanEntry(rows pgx.Rows) (domain.LogEntry, error) {
	var (
		entry   domain.LogEntry
		id      int64
		ts      time.Time
		level   string
		ctxJSON []byte
	)
	if err := rows.Scan(
		&id, &ts, &level, &entry.Event, &entry.Message, &entry.RequestID,
		&entry.Endpoint, &entry.HTTPMethod, &entry.HTTPStatus, &entry.IPAddress,
		&entry.DurationMs, &entry.Error, &entry.StackTrace, &ctxJSON, &entry.RequestBody,
	); err != nil {
		return domain.LogEntry{}, err
	}

	entry.ID = strconv.FormatInt(id, 10)
	entry.Timestamp = ts.UTC()
	entry.Level = domain.Level(level)
	if len(ctxJSON) > 0 {
		if err := json.Unmarshal(ctxJSON, &entry.Context); err != nil {
			entry.Context = nil
		}
	}
	return entry, nil
}
