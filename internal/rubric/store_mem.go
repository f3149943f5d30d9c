package rubric

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	rubrics map[string]Rubric
}

// NewInMemoryStore returns a Store backed by a map, for tests and offline use.
func NewInMemoryStore() Store {
	return &memoryStore{rubrics: map[string]Rubric{}}
}

func (m *memoryStore) Put(_ context.Context, r Rubric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rubrics[r.ID] = r
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Rubric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rubrics[id]
	if !ok {
		return Rubric{}, ErrNotFound
	}
	return r, nil
}

func (m *memoryStore) List(_ context.Context) ([]Rubric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Rubric, 0, len(m.rubrics))
	for _, r := range m.rubrics {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rubrics[id]; !ok {
		return ErrNotFound
	}
	delete(m.rubrics, id)
	return nil
}
