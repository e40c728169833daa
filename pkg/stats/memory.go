package stats

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in memory.
// Useful for tests and single-process runs; nothing expires.
type MemoryStore struct {
	mu      sync.Mutex
	total   Counters
	byHost  map[string]Counters
	byClass map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHost:  make(map[string]Counters),
		byClass: make(map[string]int64),
	}
}

// Record implements Store.
func (s *MemoryStore) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Result, 1)

	c := s.byHost[ev.Host]
	c.add(ev.Result, 1)
	s.byHost[ev.Host] = c

	if ev.Class != "" {
		s.byClass[ev.Class]++
	}
	return nil
}

// Total returns the overall counters.
func (s *MemoryStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ByHost returns a copy of the per-host counters.
func (s *MemoryStore) ByHost() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byHost))
	for k, v := range s.byHost {
		out[k] = v
	}
	return out
}

// ByClass returns a copy of the failure counts per error class.
func (s *MemoryStore) ByClass() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byClass))
	for k, v := range s.byClass {
		out[k] = v
	}
	return out
}
