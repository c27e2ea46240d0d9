package lock

import (
	"strings"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

// SerialStore is the durable `sourceId -> payoutHash` record
// (spec.md §3 SerialRelation). It is written synchronously, outside
// any DB transaction, before the nonce is committed (spec.md §4.4),
// so that a crash between broadcast and DB commit still leaves a
// recoverable trail.
type SerialStore struct {
	pool *Pool
}

func NewSerialStore(pool *Pool) *SerialStore {
	return &SerialStore{pool: pool}
}

// Save records the payout hash for every sourceId in the batch.
func (s *SerialStore) Save(sourceIDs []string, txHash string) error {
	conn := s.pool.conn()
	defer conn.Close()

	if err := conn.Send("MULTI"); err != nil {
		return errors.Wrap(err, "lock: MULTI")
	}
	for _, id := range sourceIDs {
		if err := conn.Send("SET", serialKey(id), txHash); err != nil {
			return errors.Wrap(err, "lock: queue SET")
		}
	}
	if _, err := conn.Do("EXEC"); err != nil {
		return errors.Wrap(err, "lock: EXEC serial save")
	}
	return nil
}

// Get returns the recorded payout hash for a sourceId, if any. Used on
// restart to reconcile a bridge row stuck at status 90/95 with the
// chain (spec.md §5, S3 scenario).
func (s *SerialStore) Get(sourceID string) (txHash string, found bool, err error) {
	conn := s.pool.conn()
	defer conn.Close()

	txHash, err = redis.String(conn.Do("GET", serialKey(sourceID)))
	if errors.Is(err, redis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "lock: get serial record")
	}
	return txHash, true, nil
}

// Exists is the duplicate-skip check used by batchSendTransactionByTransfer
// (spec.md §4.3): a sourceId already recorded here must not be resent.
func (s *SerialStore) Exists(sourceID string) (bool, error) {
	_, found, err := s.Get(sourceID)
	return found, err
}

func normalizeSender(sender string) string {
	return strings.ToLower(sender)
}
