// Package matchcache implements the bounded in-memory MemoryMatchCache
// from spec.md §3/§4.2: a short-term index that lets either sweep find
// a same-tick counterpart on the opposite side of a match without
// waiting for the other sweep's next scheduled run. It is purely an
// accelerator — the DB (via internal/store) remains the source of
// truth and every close still happens through a guarded DB
// transaction.
package matchcache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// PendingBridgeTx is a bridge row published by the source sweep once
// created, waiting for a matching destination-side transfer.
type PendingBridgeTx struct {
	BridgeTxID     uint
	SourceChain    string
	SourceID       string
	TargetChain    string
	TargetSymbol   string
	TargetAddress  string
	TargetAmount   decimal.Decimal
	SourceTime     time.Time
	ResponseMaker  model.StringList
}

// PendingTransfer is a destination-side Transfer published by the
// dest sweep once it fails to find a match, waiting for a bridge row
// to appear.
type PendingTransfer struct {
	TransferID uint
	ChainID    string
	Hash       string
	Symbol     string
	Receiver   string
	Amount     decimal.Decimal
	Sender     string
	Nonce      string
	Timestamp  time.Time
	FeeAmount  decimal.Decimal
	FeeToken   string
	Success    bool // whether the destination transfer itself succeeded on-chain
}

// maxEntriesPerSide bounds memory use; oldest entries are evicted
// first once exceeded (spec.md §3: "bounded").
const maxEntriesPerSide = 20000

// Cache is safe for concurrent use by multiple sweep goroutines.
type Cache struct {
	mu sync.Mutex

	bridgeBuckets   map[string]*list.List // contentKey -> list of *bridgeElem
	transferBuckets map[string]*list.List // contentKey -> list of *transferElem

	bridgeOrder   *list.List // global insertion order for eviction (oldest first), elements are *bridgeElem
	transferOrder *list.List
}

type bridgeElem struct {
	key     string
	pending PendingBridgeTx
	orderEl *list.Element
}

type transferElem struct {
	key     string
	pending PendingTransfer
	orderEl *list.Element
}

func New() *Cache {
	return &Cache{
		bridgeBuckets:   make(map[string]*list.List),
		transferBuckets: make(map[string]*list.List),
		bridgeOrder:     list.New(),
		transferOrder:   list.New(),
	}
}

func contentKey(chain, symbol, address string, amount decimal.Decimal) string {
	return strings.ToLower(chain) + "|" + strings.ToLower(symbol) + "|" + strings.ToLower(address) + "|" + amount.String()
}

func withinBound(sourceTime, destTime time.Time) bool {
	lo := destTime.Add(-120 * time.Minute)
	hi := destTime.Add(5 * time.Minute)
	return !sourceTime.Before(lo) && !sourceTime.After(hi)
}

// PublishBridgeTx stores an unmatched bridge row so the dest sweep (or
// an immediate check by the source sweep itself) can find it fast.
func (c *Cache) PublishBridgeTx(p PendingBridgeTx) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := contentKey(p.TargetChain, p.TargetSymbol, p.TargetAddress, p.TargetAmount)
	bucket, ok := c.bridgeBuckets[key]
	if !ok {
		bucket = list.New()
		c.bridgeBuckets[key] = bucket
	}
	el := &bridgeElem{key: key, pending: p}
	bucket.PushBack(el)
	el.orderEl = c.bridgeOrder.PushBack(el)
	c.evictBridgeIfNeeded()
}

// PublishTransfer stores a destination-side transfer that found no
// match, so a later-arriving bridge row can find it fast.
func (c *Cache) PublishTransfer(p PendingTransfer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := contentKey(p.ChainID, p.Symbol, p.Receiver, p.Amount)
	bucket, ok := c.transferBuckets[key]
	if !ok {
		bucket = list.New()
		c.transferBuckets[key] = bucket
	}
	el := &transferElem{key: key, pending: p}
	bucket.PushBack(el)
	el.orderEl = c.transferOrder.PushBack(el)
	c.evictTransferIfNeeded()
}

// MatchTransfer looks for a cached unmatched bridge row satisfying a
// newly-seen destination transfer (dest sweep lookup path A). On a
// hit, the bridge entry is removed from the cache.
func (c *Cache) MatchTransfer(chain, symbol, receiver string, amount decimal.Decimal, sender string, destTime time.Time) (PendingBridgeTx, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := contentKey(chain, symbol, receiver, amount)
	bucket, ok := c.bridgeBuckets[key]
	if !ok {
		return PendingBridgeTx{}, false
	}

	for e := bucket.Front(); e != nil; e = e.Next() {
		be := e.Value.(*bridgeElem)
		if !be.pending.ResponseMaker.Contains(sender) {
			continue
		}
		if !withinBound(be.pending.SourceTime, destTime) {
			continue
		}
		bucket.Remove(e)
		c.bridgeOrder.Remove(be.orderEl)
		if bucket.Len() == 0 {
			delete(c.bridgeBuckets, key)
		}
		return be.pending, true
	}
	return PendingBridgeTx{}, false
}

// MatchBridgeTx looks for a cached unmatched destination transfer
// satisfying a newly-created bridge row (source sweep's "accelerate
// the dest sweep" step, spec.md §4.2 step 4). On a hit, the transfer
// entry is removed from the cache.
func (c *Cache) MatchBridgeTx(targetChain, targetSymbol, targetAddress string, targetAmount decimal.Decimal, responseMaker model.StringList, sourceTime time.Time) (PendingTransfer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := contentKey(targetChain, targetSymbol, targetAddress, targetAmount)
	bucket, ok := c.transferBuckets[key]
	if !ok {
		return PendingTransfer{}, false
	}

	for e := bucket.Front(); e != nil; e = e.Next() {
		te := e.Value.(*transferElem)
		if !responseMaker.Contains(te.pending.Sender) {
			continue
		}
		if !withinBound(sourceTime, te.pending.Timestamp) {
			continue
		}
		bucket.Remove(e)
		c.transferOrder.Remove(te.orderEl)
		if bucket.Len() == 0 {
			delete(c.transferBuckets, key)
		}
		return te.pending, true
	}
	return PendingTransfer{}, false
}

func (c *Cache) evictBridgeIfNeeded() {
	for c.bridgeOrder.Len() > maxEntriesPerSide {
		front := c.bridgeOrder.Front()
		be := front.Value.(*bridgeElem)
		c.bridgeOrder.Remove(front)
		if bucket, ok := c.bridgeBuckets[be.key]; ok {
			for e := bucket.Front(); e != nil; e = e.Next() {
				if e.Value.(*bridgeElem) == be {
					bucket.Remove(e)
					break
				}
			}
			if bucket.Len() == 0 {
				delete(c.bridgeBuckets, be.key)
			}
		}
	}
}

func (c *Cache) evictTransferIfNeeded() {
	for c.transferOrder.Len() > maxEntriesPerSide {
		front := c.transferOrder.Front()
		te := front.Value.(*transferElem)
		c.transferOrder.Remove(front)
		if bucket, ok := c.transferBuckets[te.key]; ok {
			for e := bucket.Front(); e != nil; e = e.Next() {
				if e.Value.(*transferElem) == te {
					bucket.Remove(e)
					break
				}
			}
			if bucket.Len() == 0 {
				delete(c.transferBuckets, te.key)
			}
		}
	}
}
