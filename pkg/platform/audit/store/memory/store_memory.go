package memory

import (
	"context"
	"sync"

	id "roster/pkg/domain"
	audit "roster/pkg/platform/audit"
)

// InMemoryStore keeps audit events in append order, indexed by account.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    []audit.Event
	byAccount map[id.AccountID][]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byAccount: make(map[id.AccountID][]int)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.byAccount = make(map[id.AccountID][]int)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAccount[event.Account] = append(s.byAccount[event.Account], len(s.events))
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByAccount(_ context.Context, account id.AccountID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	positions := s.byAccount[account]
	out := make([]audit.Event, 0, len(positions))
	for _, pos := range positions {
		out = append(out, s.events[pos])
	}
	return out, nil
}

// ListAll returns every event in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...), nil
}

// ListRecent returns the most recent limit events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.events)-limit, 0)
	return append([]audit.Event{}, s.events[start:]...), nil
}
