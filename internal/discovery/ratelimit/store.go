// internal/discovery/ratelimit/store.go
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CounterStore persists one record per permitted request.
type CounterStore interface {
	// CountSince returns the number of records for identity/endpoint at or after since.
	CountSince(ctx context.Context, identity, endpoint string, since time.Time) (int, error)
	// Record stores one usage at the given instant, kept for at least ttl.
	Record(ctx context.Context, identity, endpoint string, at time.Time, ttl time.Duration) error
}

// MemoryStore is a process-local CounterStore.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]time.Time)}
}

func (s *MemoryStore) CountSince(ctx context.Context, identity, endpoint string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKey(endpoint, identity)
	kept := s.records[key][:0]
	for _, at := range s.records[key] {
		if !at.Before(since) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(s.records, key)
		return 0, nil
	}
	s.records[key] = kept
	return len(kept), nil
}

func (s *MemoryStore) Record(ctx context.Context, identity, endpoint string, at time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKey(endpoint, identity)
	s.records[key] = append(s.records[key], at)
	return nil
}

func counterKey(endpoint, identity string) string {
	return "ai:ratelimit:" + endpoint + ":" + identity
}
