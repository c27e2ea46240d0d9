// Package account implements the per-(chainId, privateKey) signing
// and broadcast surface the Sequencer drives (spec.md §4.4): fee
// selection, nonce management, and the serialize-before-broadcast
// ordering that makes SerialRelation a reliable crash-recovery anchor.
package account

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/bridgeswap/settlement-engine/internal/config"
)

// WithClient dials each configured RPC endpoint for chainID in turn
// and runs f against the first one that both connects and returns a
// nil error, closing the client afterward either way. Adapted
// directly from the teacher's EVMRPC.WithClient, generalized from a
// hardcoded chain table to internal/config.Chains.
func WithClient[T any](chainID int64, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	chain, ok := config.Chains[chainID]
	if !ok {
		err = fmt.Errorf("account: no RPC configuration for chain %d", chainID)
		return
	}

	for _, url := range chain.RPCList {
		var client *ethclient.Client
		client, err = ethclient.Dial(url)
		if err != nil {
			log.Printf("account: error connecting to %s: %v", url, err)
			continue
		}

		res, err = f(client)
		client.Close()
		if err == nil {
			return
		}
	}
	return
}
