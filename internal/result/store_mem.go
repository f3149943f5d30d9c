package result

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu      sync.RWMutex
	results map[string]GradedStudent
}

// NewInMemoryStore returns a Store backed by a map, for tests and offline use.
func NewInMemoryStore() Store {
	return &memoryStore{results: map[string]GradedStudent{}}
}

func (m *memoryStore) Create(_ context.Context, gs GradedStudent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gs.ID == "" {
		gs.ID = uuid.NewString()
	}
	m.results[gs.ID] = gs
	return gs.ID, nil
}

func (m *memoryStore) List(_ context.Context, rubricID string) ([]GradedStudent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []GradedStudent
	for _, gs := range m.results {
		if gs.RubricID == rubricID {
			out = append(out, gs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentName < out[j].StudentName })
	return out, nil
}

func (m *memoryStore) Update(_ context.Context, id string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.results[id]
	if !ok {
		return ErrNotFound
	}
	if p.GeneralFeedback != nil {
		gs.GeneralFeedback = *p.GeneralFeedback
	}
	if p.CellFeedback != nil {
		gs.CellFeedback = p.CellFeedback
	}
	m.results[id] = gs
	return nil
}
