// Package lock provides the per-sender exclusive section
// (accountRunExclusive, spec.md §4.5) and the crash-safe
// SerialRelation anchor (spec.md §3/§4.4/§9), both backed by Redis —
// the same pool/dial-timeout setup as the teacher's redis.go, aimed at
// a new key space.
package lock

import (
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Pool wraps a redigo connection pool the way the teacher's
// redis.Init() built one.
type Pool struct {
	pool *redis.Pool
}

func Dial(addr string) *Pool {
	return &Pool{
		pool: &redis.Pool{
			MaxIdle: 10,
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp", addr,
					redis.DialConnectTimeout(5*time.Second),
					redis.DialReadTimeout(5*time.Second),
					redis.DialWriteTimeout(5*time.Second),
				)
			},
		},
	}
}

func (p *Pool) conn() redis.Conn { return p.pool.Get() }

func serialKey(sourceID string) string { return fmt.Sprintf("serial:%s", sourceID) }
func lockKey(sender string) string     { return fmt.Sprintf("lock:sender:%s", sender) }
