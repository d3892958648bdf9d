// Package redisdb is the append-log storage variant. Writes go through
// a Redis List buffer first; the retention worker's drain step is what
// moves buffered entries into the durable Stream. The count cap is
// approximate (XADD MAXLEN ~), age trimming cuts at the minimum stream
// id for the cutoff timestamp (XTRIM MINID).
package redisdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"

	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/storage/storagetypes"
	errorsUtils "github.com/emberlog/emberlog/pkg/errors"
	"github.com/emberlog/emberlog/pkg/redisconn"
)

type Options struct {
	QueueKey  string
	StreamKey string

	// MaxEntries bounds the stream at append time via MAXLEN ~. The
	// worker's TrimByCount pass tightens the same cap.
	MaxEntries int
}

const defaultMaxEntries = 10000

type LogStore struct {
	client *redisconn.Redis
	opts   Options
}

func New(client *redisconn.Redis, opts Options) *LogStore {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	return &LogStore{client: client, opts: opts}
}

// Initialize verifies connectivity. Streams are created implicitly by
// the first XADD, so there is no schema to install; repeated and
// concurrent calls are trivially safe.
func (s *LogStore) Initialize(ctx context.Context) error {
	conn, err := s.client.Get(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	return nil
}

// InsertBatch pushes the whole batch onto the List buffer with a
// single LPUSH, then drains the buffer into the Stream in FIFO order.
// The LPUSH is atomic, so a failure means nothing was persisted and
// the caller may retry without duplicating. Once the batch is in the
// List it counts as persisted: a drain failure is deferred to the next
// cycle's DrainQueued pass, never surfaced as an insert error (a
// retried insert would double-persist the queued entries).
func (s *LogStore) InsertBatch(ctx context.Context, entries []domain.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	conn, err := s.client.Get(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	args := make([]any, 0, len(entries)+1)
	args = append(args, s.opts.QueueKey)
	for i := range entries {
		raw, err := encodeQueued(&entries[i])
		if err != nil {
			return errorsUtils.WrapPathErr(err)
		}
		args = append(args, raw)
	}
	if _, err := conn.Do("LPUSH", args...); err != nil {
		return errorsUtils.WrapPathErr(err)
	}

	ids, err := s.drain(conn)
	if err != nil {
		log.Warnf("Stream drain deferred, entries stay queued: %v", err)
		return nil
	}

	// The retention worker is the only drainer, so the last
	// len(entries) appended stream ids belong to this batch, in order.
	if len(ids) >= len(entries) {
		tail := ids[len(ids)-len(entries):]
		for i := range entries {
			entries[i].ID = tail[i]
		}
	}
	return nil
}

// DrainQueued moves entries a previous failed drain left in the List
// buffer into the Stream. The retention worker calls it every cycle so
// queued entries become visible even with no new traffic.
func (s *LogStore) DrainQueued(ctx context.Context) error {
	conn, err := s.client.Get(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = s.drain(conn)
	return err
}

// drain moves every queued entry into the stream. On append failure
// the undrained remainder is pushed back so the next cycle retries it.
func (s *LogStore) drain(conn redis.Conn) ([]string, error) {
	var ids []string
	var lastMs int64
	var seq int64

	for {
		raw, err := redis.Bytes(conn.Do("RPOP", s.opts.QueueKey))
		if err == redis.ErrNil {
			return ids, nil
		}
		if err != nil {
			return ids, errorsUtils.WrapPathErr(err)
		}

		entry, err := decodeQueued(raw)
		if err != nil {
			// Malformed buffer item: discard, never retry.
			continue
		}

		ms := entry.Timestamp.UTC().UnixMilli()
		if ms == lastMs {
			seq++
		} else {
			lastMs, seq = ms, 0
		}

		id, err := s.append(conn, entry, fmt.Sprintf("%d-%d", ms, seq))
		if err != nil {
			if _, pushErr := conn.Do("RPUSH", s.opts.QueueKey, raw); pushErr != nil {
				return ids, errorsUtils.WrapPathErr(pushErr)
			}
			return ids, errorsUtils.WrapPathErr(err)
		}
		ids = append(ids, id)
	}
}

// append XADDs one entry with an id derived from its timestamp, so the
// stream id doubles as a time-ordered pagination cursor and MINID
// trimming cuts by entry age. When the stream top is already past the
// requested id, Redis refuses it and the entry falls back to an
// auto-assigned id.
func (s *LogStore) append(conn redis.Conn, entry *domain.LogEntry, id string) (string, error) {
	args := append([]any{s.opts.StreamKey, "MAXLEN", "~", s.opts.MaxEntries, id},
		streamFields(entry)...)

	assigned, err := redis.String(conn.Do("XADD", args...))
	if err != nil && strings.Contains(err.Error(), "equal or smaller") {
		args[4] = "*"
		assigned, err = redis.String(conn.Do("XADD", args...))
	}
	if err != nil {
		return "", err
	}
	return assigned, nil
}

func (s *LogStore) Query(ctx context.Context, filter storagetypes.Filter) ([]domain.LogEntry, int, error) {
	conn, err := s.client.Get(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Close()

	// Full scan: the stream is bounded near MaxEntries, and a COUNT cap
	// here would undercount totals during MAXLEN ~ overshoot.
	reply, err := redis.Values(conn.Do("XREVRANGE", s.opts.StreamKey, "+", "-"))
	if err != nil {
		return nil, 0, errorsUtils.WrapPathErr(err)
	}

	var matched []domain.LogEntry
	for _, item := range reply {
		entry, err := parseStreamEntry(item)
		if err != nil {
			continue
		}
		if matchesFilter(&entry, filter) {
			matched = append(matched, entry)
		}
	}

	// Stream order is by id; the contract orders by stored timestamp.
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	offset := filter.Offset
	if offset > total {
		offset = total
	}
	end := offset + filter.EffectiveLimit()
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *LogStore) CountSince(ctx context.Context, since time.Time) (domain.LevelCounts, error) {
	conn, err := s.client.Get(ctx)
	if err != nil {
		return domain.LevelCounts{}, err
	}
	defer conn.Close()

	min := "-"
	if !since.IsZero() {
		min = fmt.Sprintf("%d-0", since.UTC().UnixMilli())
	}

	reply, err := redis.Values(conn.Do("XRANGE", s.opts.StreamKey, min, "+"))
	if err != nil {
		return domain.LevelCounts{}, errorsUtils.WrapPathErr(err)
	}

	var counts domain.LevelCounts
	for _, item := range reply {
		entry, err := parseStreamEntry(item)
		if err != nil {
			continue
		}
		if !since.IsZero() && entry.Timestamp.Before(since) {
			continue
		}
		switch entry.Level {
		case domain.LevelError:
			counts.Errors++
		case domain.LevelWarning:
			counts.Warnings++
		}
		counts.Total++
	}
	return counts, nil
}

func (s *LogStore) LatestTimestamp(ctx context.Context) (time.Time, error) {
	conn, err := s.client.Get(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Close()

	reply, err := redis.Values(conn.Do("XREVRANGE", s.opts.StreamKey, "+", "-", "COUNT", 1))
	if err != nil {
		return time.Time{}, errorsUtils.WrapPathErr(err)
	}
	if len(reply) == 0 {
		return time.Time{}, nil
	}

	entry, err := parseStreamEntry(reply[0])
	if err != nil {
		return time.Time{}, errorsUtils.WrapPathErr(err)
	}
	return entry.Timestamp, nil
}

// TrimByCount applies the approximate cap: Redis may keep a bounded
// overshoot past max for performance, which the contract permits for
// this variant.
func (s *LogStore) TrimByCount(ctx context.Context, max int) error {
	conn, err := s.client.Get(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Do("XTRIM", s.opts.StreamKey, "MAXLEN", "~", max); err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	return nil
}

func (s *LogStore) TrimByAge(ctx context.Context, cutoff time.Time) error {
	conn, err := s.client.Get(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	minID := fmt.Sprintf("%d-0", cutoff.UTC().UnixMilli())
	if _, err := conn.Do("XTRIM", s.opts.StreamKey, "MINID", minID); err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	return nil
}

func (s *LogStore) Health(ctx context.Context) storagetypes.Health {
	health := storagetypes.Health{Backend: "redis"}

	conn, err := s.client.Get(ctx)
	if err != nil {
		health.Error = err.Error()
		return health
	}
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		health.Error = err.Error()
		return health
	}

	streamLen, err := redis.Int64(conn.Do("XLEN", s.opts.StreamKey))
	if err != nil {
		health.Error = err.Error()
		return health
	}
	queueLen, err := redis.Int64(conn.Do("LLEN", s.opts.QueueKey))
	if err != nil {
		health.Error = err.Error()
		return health
	}

	health.OK = true
	health.Entries = streamLen
	health.QueueDepth = queueLen
	return health
}

func (s *LogStore) Close() error {
	return s.client.Close()
}

func matchesFilter(entry *domain.LogEntry, filter storagetypes.Filter) bool {
	if filter.Level != "" && entry.Level != filter.Level {
		return false
	}
	if filter.Event != "" && !strings.Contains(strings.ToLower(entry.Event), strings.ToLower(filter.Event)) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(entry.Message), needle) &&
			!strings.Contains(strings.ToLower(entry.Error), needle) {
			return false
		}
	}
	if !filter.Since.IsZero() && entry.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && entry.Timestamp.After(filter.Until) {
		return false
	}
	return true
}
