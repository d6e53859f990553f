package access

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// StaticRegistry is an AdminRegistry backed by an in-memory address set. It is
// safe for concurrent use.
type StaticRegistry struct {
	mu     sync.RWMutex
	admins map[common.Address]struct{}
}

// NewStaticRegistry seeds the registry with the supplied admins.
func NewStaticRegistry(admins ...common.Address) *StaticRegistry {
	reg := &StaticRegistry{admins: make(map[common.Address]struct{}, len(admins))}
	for _, addr := range admins {
		reg.admins[addr] = struct{}{}
	}
	return reg
}

func (r *StaticRegistry) IsAdmin(addr common.Address) bool {
	if r == nil || addr == (common.Address{}) {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.admins[addr]
	return ok
}

func (r *StaticRegistry) Grant(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins[addr] = struct{}{}
}

func (r *StaticRegistry) Revoke(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.admins, addr)
}
