package session

import (
	"context"
	"encoding/json"
	"sync"
)

type memoryStore struct {
	mu        sync.RWMutex
	snapshots map[Key]string
}

// NewInMemoryStore returns a Store backed by a map. Snapshots go through
// JSON so tests exercise the same round-trip as the SQL store.
func NewInMemoryStore() Store {
	return &memoryStore{snapshots: map[Key]string{}}
}

func (m *memoryStore) Save(_ context.Context, key Key, s *State) error {
	buf, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[key] = string(buf)
	return nil
}

func (m *memoryStore) Load(_ context.Context, key Key) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.snapshots[key]
	if !ok {
		return nil, ErrNotFound
	}
	var s State
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[key]; !ok {
		return ErrNotFound
	}
	delete(m.snapshots, key)
	return nil
}
