package rpc

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"payledger/core/state"
	"payledger/storage"
)

// NonceStore keeps the next envelope nonce of every calling wallet. Nonces
// live in the ledger database under their own keys and are committed on
// their own, ahead of the ledger call they authorise.
type NonceStore struct {
	mu sync.Mutex
	db storage.Database
}

func NewNonceStore(db storage.Database) *NonceStore {
	return &NonceStore{db: db}
}

// Next returns the nonce the wallet must use on its next envelope.
func (n *NonceStore) Next(wallet common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.load(state.NewManager(n.db), wallet)
}

func (n *NonceStore) load(mgr *state.Manager, wallet common.Address) (uint64, error) {
	var nonce uint64
	if _, err := mgr.KVGet(state.CallerNonceKey(wallet), &nonce); err != nil {
		return 0, fmt.Errorf("load nonce: %w", err)
	}
	return nonce, nil
}

// Consume accepts nonce when it equals the stored value and advances the
// counter. It returns the wallet's next nonce.
func (n *NonceStore) Consume(wallet common.Address, nonce uint64) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	mgr := state.NewManager(n.db)
	current, err := n.load(mgr, wallet)
	if err != nil {
		return 0, err
	}
	if nonce != current {
		return current, fmt.Errorf("%w: expected %d got %d", errEnvelopeNonce, current, nonce)
	}
	next := current + 1
	if err := mgr.KVPut(state.CallerNonceKey(wallet), next); err != nil {
		return 0, err
	}
	if err := mgr.Commit(); err != nil {
		return 0, fmt.Errorf("commit nonce: %w", err)
	}
	return next, nil
}
