package selection_store

import (
	"context"
	"sync"
	"time"

	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/core/annotation_engine"
)

// MemoryStore is a process-local core.SelectionStore, used when no Redis is
// configured. Selections do not expire.
type MemoryStore struct {
	mu         sync.Mutex
	selections map[string]annotation_engine.Selection
	locks      map[string]time.Time
}

var _ core.SelectionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		selections: map[string]annotation_engine.Selection{},
		locks:      map[string]time.Time{},
	}
}

func (m *MemoryStore) Load(_ context.Context, reviewID string) (annotation_engine.Selection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := annotation_engine.Selection{}
	for k, v := range m.selections[reviewID] {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, reviewID string, sel annotation_engine.Selection) error {
	cp := make(annotation_engine.Selection, len(sel))
	for k, v := range sel {
		cp[k] = v
	}
	m.mu.Lock()
	m.selections[reviewID] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Acquire(_ context.Context, reviewID, action string, ttl time.Duration) (func(), error) {
	key := action + ":" + reviewID
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if exp, ok := m.locks[key]; ok && now.Before(exp) {
		return nil, core.ErrActionInFlight
	}
	exp := now.Add(ttl)
	m.locks[key] = exp

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.locks[key].Equal(exp) {
			delete(m.locks, key)
		}
	}, nil
}
