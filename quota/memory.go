package quota

import (
	"context"
	"sync"
	"time"

	"github.com/spinwin-labs/spin-reward-service/errors"
)

// MemoryStore is an in-process quota store for tests and single-node
// development runs. It mirrors the Redis store's semantics exactly.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]record
	max     int
	now     Clock
}

// NewMemoryStore creates an in-memory quota store allowing max spins per
// identity per day.
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]record),
		max:     max,
		now:     time.Now,
	}
}

// WithClock overrides the store's time source. Test helper.
func (s *MemoryStore) WithClock(now Clock) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) current(identity string) record {
	today := dateKey(s.now())
	rec, ok := s.records[identity]
	if !ok || rec.Date != today {
		return record{Date: today, Count: 0}
	}
	return rec
}

// Remaining returns the spins left today for the identity.
func (s *MemoryStore) Remaining(_ context.Context, identity string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remainingIn(s.records[identity], dateKey(s.now()), s.max), nil
}

// Consume uses one spin, failing without mutation when none remain.
func (s *MemoryStore) Consume(_ context.Context, identity string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.current(identity)
	if rec.Count >= s.max {
		return 0, errors.New(errors.ErrQuotaExceeded, "daily spin limit reached")
	}
	rec.Count++
	s.records[identity] = rec
	return s.max - rec.Count, nil
}
