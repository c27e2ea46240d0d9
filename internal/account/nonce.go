package account

import (
	"container/heap"
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// uintHeap is a min-heap of free nonces, so the smallest free nonce is
// always reissued first (spec.md §9: "NonceManager free list prefers
// re-issuing a rolled-back nonce ... if several are outstanding, issue
// the smallest free").
type uintHeap []uint64

func (h uintHeap) Len() int            { return len(h) }
func (h uintHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h uintHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *uintHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }
func (h *uintHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Lease is a single issued nonce: the caller must call exactly one of
// Submit (on broadcast success) or Rollback (on any failure before or
// instead of broadcast).
type Lease struct {
	Nonce uint64

	mgr *NonceManager
}

func (l *Lease) Submit() {
	l.mgr.mu.Lock()
	defer l.mgr.mu.Unlock()
	if l.Nonce >= l.mgr.committed {
		l.mgr.committed = l.Nonce + 1
	}
}

func (l *Lease) Rollback() {
	l.mgr.mu.Lock()
	defer l.mgr.mu.Unlock()
	heap.Push(&l.mgr.free, l.Nonce)
}

// NonceManager serializes nonce issuance for one sender address so
// concurrent payout goroutines broadcast in a total order with no
// gaps (spec.md §4.4/§8 property 2).
type NonceManager struct {
	mu sync.Mutex

	chainID   int64
	address   common.Address
	committed uint64 // next brand-new nonce to hand out if free is empty
	free      uintHeap
}

func NewNonceManager(chainID int64, address common.Address) *NonceManager {
	return &NonceManager{chainID: chainID, address: address}
}

// GetNextNonce issues the next nonce: the smallest free (rolled-back)
// nonce if any exists, else the next sequential one.
func (m *NonceManager) GetNextNonce() *Lease {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.free) > 0 {
		n := heap.Pop(&m.free).(uint64)
		return &Lease{Nonce: n, mgr: m}
	}

	n := m.committed
	m.committed++
	return &Lease{Nonce: n, mgr: m}
}

// ForceRefreshNonce re-reads the pending-tag nonce from the chain and
// resets the committed cursor and free list accordingly. Used on
// startup.
func (m *NonceManager) ForceRefreshNonce(ctx context.Context) error {
	pending, err := WithClient(m.chainID, func(client *ethclient.Client) (uint64, error) {
		return client.PendingNonceAt(ctx, m.address)
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = pending
	m.free = m.free[:0]
	return nil
}
