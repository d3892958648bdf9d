// Package redisconn wraps a redigo connection pool behind the same
// options pattern the other pkg clients use.
package redisconn

import (
	"context"
	"time"

	errorsUtils "github.com/emberlog/emberlog/pkg/errors"
	"github.com/gomodule/redigo/redis"
)

const (
	defaultMaxIdle     = 3
	defaultMaxActive   = 16
	defaultIdleTimeout = 4 * time.Minute
	defaultDialTimeout = 3 * time.Second
)

type Redis struct {
	pool *redis.Pool

	addr        string
	password    string
	db          int
	maxIdle     int
	maxActive   int
	idleTimeout time.Duration
	dialTimeout time.Duration
}

// New dials addr once to verify connectivity and returns a pooled
// client. The pool hands out one connection per caller; connections
// are not safe for concurrent use.
func New(addr string, opts ...Option) (*Redis, error) {
	r := &Redis{
		addr:        addr,
		maxIdle:     defaultMaxIdle,
		maxActive:   defaultMaxActive,
		idleTimeout: defaultIdleTimeout,
		dialTimeout: defaultDialTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.pool = &redis.Pool{
		MaxIdle:     r.maxIdle,
		MaxActive:   r.maxActive,
		IdleTimeout: r.idleTimeout,
		Wait:        true,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", r.addr,
				redis.DialPassword(r.password),
				redis.DialDatabase(r.db),
				redis.DialConnectTimeout(r.dialTimeout),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	conn := r.pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		r.pool.Close()
		return nil, errorsUtils.WrapPathErr(err)
	}

	return r, nil
}

// Get borrows a connection. The caller must Close it to return it to
// the pool.
func (r *Redis) Get(ctx context.Context) (redis.Conn, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}
	return conn, nil
}

func (r *Redis) Close() error {
	return r.pool.Close()
}
