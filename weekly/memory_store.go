package weekly

import (
	"sync"
	"time"
)

// MemoryStore keeps ledger entries in memory. Used by tests and the demo
// command; production wiring uses the journal.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Performance
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Performance)}
}

func (s *MemoryStore) key(symbol string, weekStart time.Time) string {
	return symbol + "@" + weekStart.Format("2006-01-02")
}

func (s *MemoryStore) LoadWeekly(symbol string, weekStart time.Time) (Performance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[s.key(symbol, weekStart)]
	if !ok {
		return Performance{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) SaveWeekly(p Performance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.key(p.Symbol, p.WeekStart)] = p
	return nil
}
