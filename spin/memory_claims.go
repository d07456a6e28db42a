package spin

import (
	"context"
	"sync"
	"time"

	"github.com/spinwin-labs/spin-reward-service/errors"
)

// MemoryClaimStore is an in-process claim store for tests and single-node
// development runs.
type MemoryClaimStore struct {
	mu     sync.Mutex
	claims map[string]Claim
}

// NewMemoryClaimStore creates an empty in-memory claim store.
func NewMemoryClaimStore() *MemoryClaimStore {
	return &MemoryClaimStore{claims: make(map[string]Claim)}
}

func (s *MemoryClaimStore) Create(_ context.Context, claim *Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.ClaimID] = *claim
	return nil
}

func (s *MemoryClaimStore) Get(_ context.Context, claimID string) (*Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return nil, errors.New(errors.ErrClaimNotFound, "claim not found")
	}
	return &claim, nil
}

func (s *MemoryClaimStore) Update(_ context.Context, claim *Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim.UpdatedAt = time.Now().UTC()
	s.claims[claim.ClaimID] = *claim
	return nil
}

func (s *MemoryClaimStore) ListPending(_ context.Context) ([]*Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []*Claim
	for _, claim := range s.claims {
		if claim.Status == ClaimPending {
			c := claim
			pending = append(pending, &c)
		}
	}
	return pending, nil
}
