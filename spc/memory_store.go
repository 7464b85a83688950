package spc

import (
	"sync"
	"time"
)

// MemoryStore keeps measurement series in memory. Used by tests and the
// demo command; production runs persist through the journal instead.
type MemoryStore struct {
	mu     sync.RWMutex
	series map[string][]Measurement
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[string][]Measurement)}
}

func (s *MemoryStore) AppendMeasurement(m Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[m.Process] = append(s.series[m.Process], m)
	return nil
}

func (s *MemoryStore) MeasurementsSince(process string, since time.Time) ([]Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Measurement
	for _, m := range s.series[process] {
		if !m.RecordedAt.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) ProcessNames() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	return names, nil
}

var _ Store = (*MemoryStore)(nil)
