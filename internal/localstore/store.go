// Package localstore is the client-local key/value storage the session layer
// sits on: a durable JSON file shared by every process of the same user, and
// a memory store that lives only as long as the current process.
package localstore

import (
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("local store closed")

// Store is a string key/value store
type Store interface {
	// Get returns the value for key and whether it was present
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Change identifies a key whose value was written or removed
type Change struct {
	Key string
}

// Memory is a session-scoped store. Its contents vanish with the process.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty session-scoped store
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
