// Package identity persists the local player's identifier across restarts.
package identity

import "sync"

// Store holds at most one identity. It never fails: a store whose durable
// backing is unavailable keeps working in memory.
type Store interface {
	Get() (string, bool)
	Set(id string)
	Clear()
}

type Memory struct {
	mu sync.Mutex
	id string
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Get() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.id != ""
}

func (m *Memory) Set(id string) {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
}

func (m *Memory) Clear() { m.Set("") }
