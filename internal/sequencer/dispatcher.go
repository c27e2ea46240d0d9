package sequencer

import (
	"context"
	"log"
	"time"

	"github.com/bridgeswap/settlement-engine/internal/store"
)

// dispatchInterval matches the teacher's Worker_processExecution poll
// cadence (workers/processExecution.go).
const dispatchInterval = 3 * time.Second

// Dispatcher periodically drains the in-flight set into the Sequencer,
// standing in for whatever external trigger (webhook, queue consumer)
// would normally call singleSendTransactionByTransfer/
// batchSendTransactionByTransfer per spec.md §4.3's entry points.
type Dispatcher struct {
	Sequencer       *Sequencer
	InFlight        *store.InFlightSet
	RouterAddresses map[string]string // targetChainId -> OrbiterRouterV3 address
	Interval        time.Duration
}

func NewDispatcher(seq *Sequencer, inFlight *store.InFlightSet, routers map[string]string) *Dispatcher {
	return &Dispatcher{Sequencer: seq, InFlight: inFlight, RouterAddresses: routers, Interval: dispatchInterval}
}

// Run polls until ctx is cancelled, draining every non-empty
// (chain, token) queue on each tick via the batch entry point — which
// itself falls back to doing nothing when nothing survives filtering.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.Interval
	if interval == 0 {
		interval = dispatchInterval
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		for _, key := range d.InFlight.QueuedKeys() {
			if err := d.Sequencer.BatchSendTransactionByTransfer(ctx, key.Chain, key.Token, d.RouterAddresses); err != nil {
				log.Printf("sequencer: dispatch tick failed for %s/%s: %v", key.Chain, key.Token, err)
			}
		}
	}
}
