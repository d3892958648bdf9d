// Package sqlitepool provides a fixed-size pool of SQLite connections
// with WAL journaling, so readers never block the single active writer.
package sqlitepool

import (
	"context"
	"runtime"

	errorsUtils "github.com/emberlog/emberlog/pkg/errors"
	log "github.com/sirupsen/logrus"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Pool wraps sqlitex.Pool and exposes the same Take/Put API.
//
// Pool is safe for concurrent use. Individual connections are not;
// each goroutine must Take its own connection and Put it back when done.
type Pool struct {
	inner    *sqlitex.Pool
	path     string
	poolSize int

	onConnect func(conn *sqlite.Conn) error
}

// Open creates a connection pool over the database file at path,
// creating the file if it does not exist. Every connection gets WAL
// mode and the standard pragmas applied. Connections are initialized
// lazily on first Take. The caller must Close the pool when done.
func Open(path string, opts ...Option) (*Pool, error) {
	if path == "" {
		return nil, errorsUtils.WrapPathErr(ErrEmptyPath)
	}

	p := &Pool{path: path}
	for _, opt := range opts {
		opt(p)
	}

	if p.poolSize <= 0 {
		p.poolSize = runtime.NumCPU()
		if p.poolSize < 4 {
			p.poolSize = 4
		}
	}

	inner, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: p.poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn, p.onConnect)
		},
	})
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}
	p.inner = inner

	log.WithFields(log.Fields{
		"path":      path,
		"pool_size": p.poolSize,
	}).Debug("SQLite pool opened")

	return p, nil
}

// Take borrows a connection from the pool. Blocks until a connection
// is available or ctx is cancelled. The caller must Put it back,
// typically via defer.
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}
	return conn, nil
}

// Put returns a connection to the pool. Safe to call with nil.
func (p *Pool) Put(conn *sqlite.Conn) {
	if conn == nil {
		return
	}
	p.inner.Put(conn)
}

func (p *Pool) Path() string {
	return p.path
}

// Close closes all connections. Blocks until every borrowed connection
// has been returned.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		return errorsUtils.WrapPathErr(err)
	}
	return nil
}

// prepareConnection runs once per pooled connection, on first use.
func prepareConnection(conn *sqlite.Conn, onConnect func(*sqlite.Conn) error) error {
	// WAL keeps concurrent readers unblocked while one writer is active.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-8192",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return errorsUtils.WrapPathErr(err)
		}
	}

	if onConnect != nil {
		if err := onConnect(conn); err != nil {
			return errorsUtils.WrapPathErr(err)
		}
	}

	return nil
}
