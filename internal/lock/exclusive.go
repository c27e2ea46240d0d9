package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

// releaseScript only deletes the lock key if it still holds the token
// this holder set, so one holder can never release another's lock
// after a TTL-driven takeover.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// leaseTTL bounds how long a single payout attempt may hold the
// per-sender lock before another process is allowed to take it over.
// Broadcast + receipt wait can be slow, so this is generous.
const leaseTTL = 2 * time.Minute

// Exclusivity is the per-sender exclusive section from spec.md §4.5:
// at most one payout coroutine per sender runs at a time, independent
// across senders. Callers waiting on the same sender are not
// guaranteed to run in arrival order. A local mutex map queues
// in-process callers so only one per sender polls Redis; the
// distributed Redis lock is still acquired on every call and is what
// makes the section exclusive across processes.
type Exclusivity struct {
	pool *Pool

	localMu sync.Mutex
	local   map[string]*sync.Mutex
}

func NewExclusivity(pool *Pool) *Exclusivity {
	return &Exclusivity{pool: pool, local: make(map[string]*sync.Mutex)}
}

func (e *Exclusivity) localFor(sender string) *sync.Mutex {
	e.localMu.Lock()
	defer e.localMu.Unlock()

	m, ok := e.local[sender]
	if !ok {
		m = &sync.Mutex{}
		e.local[sender] = m
	}
	return m
}

// AccountRunExclusive runs fn while holding both the process-local and
// distributed lock for sender. Cancelling ctx does not interrupt fn
// once it has started (spec.md §4.5/§5: a payout that reached
// broadcast must not be interrupted).
func (e *Exclusivity) AccountRunExclusive(ctx context.Context, sender string, fn func() error) error {
	sender = normalizeSender(sender)

	local := e.localFor(sender)
	local.Lock()
	defer local.Unlock()

	token := uuid.New().String()
	if err := e.acquireDistributed(ctx, sender, token); err != nil {
		return err
	}
	defer e.release(sender, token)

	return fn()
}

func (e *Exclusivity) acquireDistributed(ctx context.Context, sender, token string) error {
	conn := e.pool.conn()
	defer conn.Close()

	for {
		reply, err := redis.String(conn.Do("SET", lockKey(sender), token, "NX", "PX", leaseTTL.Milliseconds()))
		if err == nil && reply == "OK" {
			return nil
		}
		if err != nil && !errors.Is(err, redis.ErrNil) {
			return errors.Wrap(err, "lock: acquire distributed sender lock")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (e *Exclusivity) release(sender, token string) {
	conn := e.pool.conn()
	defer conn.Close()

	if _, err := conn.Do("EVAL", releaseScript, 1, lockKey(sender), token); err != nil {
		// best-effort: the lease TTL still bounds how long a stuck
		// release can block the next holder.
		_ = err
	}
}
