package state

import (
	"bytes"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"payledger/storage"
)

// Manager stages RLP-encoded key/value writes on top of a storage backend.
// Reads observe the staged writes first. Nothing reaches the backend until
// Commit, so a failed operation is undone by dropping the manager.
//
// Manager is not safe for concurrent use.
type Manager struct {
	db      storage.Database
	pending map[string][]byte
	deleted map[string]struct{}
	order   []string
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		pending: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) stage(hashed []byte, value []byte) {
	id := string(hashed)
	if _, ok := m.pending[id]; !ok {
		if _, gone := m.deleted[id]; !gone {
			m.order = append(m.order, id)
		}
	}
	delete(m.deleted, id)
	m.pending[id] = value
}

func (m *Manager) read(hashed []byte) ([]byte, error) {
	id := string(hashed)
	if value, ok := m.pending[id]; ok {
		return value, nil
	}
	if _, ok := m.deleted[id]; ok {
		return nil, nil
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.stage(kvKey(key), encoded)
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.read(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the key. Deleting a missing key is a no-op.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	id := string(hashed)
	if _, ok := m.pending[id]; !ok {
		if _, gone := m.deleted[id]; !gone {
			m.order = append(m.order, id)
		}
	}
	delete(m.pending, id)
	m.deleted[id] = struct{}{}
	return nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	list, err := m.KVGetList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVRemove drops value from the list stored under key, preserving the order
// of the remaining entries. It reports whether the value was present.
func (m *Manager) KVRemove(key []byte, value []byte) (bool, error) {
	list, err := m.KVGetList(key)
	if err != nil {
		return false, err
	}
	kept := list[:0]
	removed := false
	for _, existing := range list {
		if !removed && bytes.Equal(existing, value) {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return false, nil
	}
	if len(kept) == 0 {
		return true, m.KVDelete(key)
	}
	return true, m.KVPut(key, kept)
}

// KVGetList decodes the byte slice list stored under key. A missing key
// yields an empty list.
func (m *Manager) KVGetList(key []byte) ([][]byte, error) {
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = [][]byte{}
	}
	return list, nil
}

// Dirty reports the number of staged keys.
func (m *Manager) Dirty() int {
	return len(m.order)
}

// Commit writes every staged change to the backend in a single batch and
// clears the staging area.
func (m *Manager) Commit() error {
	if len(m.order) == 0 {
		return nil
	}
	batch := m.db.NewBatch()
	for _, id := range m.order {
		if _, ok := m.deleted[id]; ok {
			batch.Delete([]byte(id))
			continue
		}
		batch.Put([]byte(id), m.pending[id])
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.Discard()
	return nil
}

// Discard drops every staged change.
func (m *Manager) Discard() {
	m.pending = make(map[string][]byte)
	m.deleted = make(map[string]struct{})
	m.order = nil
}
