package store

import (
	"sync"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// InFlightSet is the transient per-(chain, token) queue of payout work
// awaiting scheduling (spec.md §3 InFlightSet, §4.5). It is pure
// in-process state: nothing here survives a restart, by design — the
// crash-safe anchor is the SerialRelation in the lock package.
type InFlightSet struct {
	mu     sync.Mutex
	queues map[string]map[string]*model.TransferAmountTransaction // (chain,token) -> sourceId -> tx
}

func NewInFlightSet() *InFlightSet {
	return &InFlightSet{queues: make(map[string]map[string]*model.TransferAmountTransaction)}
}

func queueKey(chain, token string) string { return chain + ":" + token }

// AddTransaction enqueues a unit of payout work.
func (f *InFlightSet) AddTransaction(tx *model.TransferAmountTransaction) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := queueKey(tx.Chain, tx.Token)
	q, ok := f.queues[key]
	if !ok {
		q = make(map[string]*model.TransferAmountTransaction)
		f.queues[key] = q
	}
	q[tx.SourceID] = tx
}

// GetTransaction looks up a specific queued item by sourceId.
func (f *InFlightSet) GetTransaction(chain, token, sourceID string) (*model.TransferAmountTransaction, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q, ok := f.queues[queueKey(chain, token)]
	if !ok {
		return nil, false
	}
	tx, ok := q[sourceID]
	return tx, ok
}

// RemoveTransaction detaches a single sourceId from the in-flight set.
func (f *InFlightSet) RemoveTransaction(chain, token, sourceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if q, ok := f.queues[queueKey(chain, token)]; ok {
		delete(q, sourceID)
	}
}

// ListByChainToken returns every currently queued item for (chain,
// token), used by the batch payout entry point to build a work group.
func (f *InFlightSet) ListByChainToken(chain, token string) []*model.TransferAmountTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()

	q, ok := f.queues[queueKey(chain, token)]
	if !ok {
		return nil
	}
	out := make([]*model.TransferAmountTransaction, 0, len(q))
	for _, tx := range q {
		out = append(out, tx)
	}
	return out
}

// ChainTokenKey identifies one queue this set currently holds work
// for, used by the dispatcher to know which groups to drain.
type ChainTokenKey struct{ Chain, Token string }

// QueuedKeys lists every non-empty (chain, token) queue.
func (f *InFlightSet) QueuedKeys() []ChainTokenKey {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]ChainTokenKey, 0, len(f.queues))
	for key, q := range f.queues {
		if len(q) == 0 {
			continue
		}
		for i := 0; i < len(key); i++ {
			if key[i] == ':' {
				out = append(out, ChainTokenKey{Chain: key[:i], Token: key[i+1:]})
				break
			}
		}
	}
	return out
}

// QueuedPayoutCount is the total number of payout units currently
// sitting in the in-flight set across every (chain, token) queue, used
// by the admin state endpoint.
func (f *InFlightSet) QueuedPayoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, q := range f.queues {
		n += len(q)
	}
	return n
}

// Reinsert restores previously removed items, used by the rollback
// thunk returned from removal (spec.md §4.3 rollback contract).
func (f *InFlightSet) Reinsert(txs ...*model.TransferAmountTransaction) {
	for _, tx := range txs {
		f.AddTransaction(tx)
	}
}
