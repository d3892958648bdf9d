package sqlitepool

import (
	"errors"

	"zombiezen.com/go/sqlite"
)

var ErrEmptyPath = errors.New("database path must not be empty")

type Option func(*Pool)

func PoolSize(size int) Option {
	return func(p *Pool) {
		p.poolSize = size
	}
}

// OnConnect registers a hook that runs once per connection after the
// standard pragmas are applied. Use it for schema creation.
func OnConnect(fn func(conn *sqlite.Conn) error) Option {
	return func(p *Pool) {
		p.onConnect = fn
	}
}
