package redisconn

import "time"

type Option func(*Redis)

func Password(password string) Option {
	return func(r *Redis) {
		r.password = password
	}
}

func Database(db int) Option {
	return func(r *Redis) {
		r.db = db
	}
}

func MaxActive(n int) Option {
	return func(r *Redis) {
		r.maxActive = n
	}
}

func DialTimeout(timeout time.Duration) Option {
	return func(r *Redis) {
		r.dialTimeout = timeout
	}
}
