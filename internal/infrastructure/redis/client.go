package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Options describes the shared client pool.
type Options struct {
	Addr      string
	Password  string
	DB        int
	OpTimeout time.Duration
}

// NewClient builds a pooled client whose dial, read and write timeouts
// never exceed the per-operation budget.
func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  max(opts.OpTimeout*4, 200*time.Millisecond),
		ReadTimeout:  opts.OpTimeout,
		WriteTimeout: opts.OpTimeout,
		MaxRetries:   1,
	})
}
