package spin

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spinwin-labs/spin-reward-service/errors"
	"github.com/spinwin-labs/spin-reward-service/quota"
	"github.com/spinwin-labs/spin-reward-service/wheel"
)

// Receipt is the result of one spin, returned to the caller immediately.
// ClaimID is empty for losing outcomes.
type Receipt struct {
	SpinID    string            `json:"spinId"`
	Outcome   wheel.SpinOutcome `json:"outcome"`
	Remaining int               `json:"remaining"`
	ClaimID   string            `json:"claimId,omitempty"`
	Proof     wheel.Proof       `json:"proof"`
}

// Service runs the spin flow: consume quota, fix the outcome, record the
// payout claim. The claim settles asynchronously; the spin call never
// blocks on the payout service.
type Service struct {
	quota      quota.Store
	table      *wheel.Table
	claims     ClaimStore
	serverSeed string
	logger     zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
	nonces   map[string]uint64
	notify   chan struct{}
}

// NewService creates a spin service over the given quota store, outcome
// table and claim store.
func NewService(quotaStore quota.Store, table *wheel.Table, claims ClaimStore, serverSeed string, logger zerolog.Logger) *Service {
	return &Service{
		quota:      quotaStore,
		table:      table,
		claims:     claims,
		serverSeed: serverSeed,
		logger:     logger.With().Str("service", "spin").Logger(),
		inFlight:   make(map[string]bool),
		nonces:     make(map[string]uint64),
		notify:     make(chan struct{}, 1),
	}
}

// PendingClaims signals when a new claim needs settling. The reconciler
// selects on it between polls.
func (s *Service) PendingClaims() <-chan struct{} {
	return s.notify
}

// acquire marks the identity as mid-spin, rejecting overlapping requests
// for the same identity. Returns the nonce for this spin's draw.
func (s *Service) acquire(identity string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[identity] {
		return 0, errors.New(errors.ErrSpinInFlight, "a spin is already in progress")
	}
	s.inFlight[identity] = true
	nonce := s.nonces[identity]
	s.nonces[identity] = nonce + 1
	return nonce, nil
}

func (s *Service) release(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, identity)
}

// Execute runs one spin for the identity.
//
// Quota is consumed strictly before the outcome is revealed, and it stays
// consumed whatever happens afterwards: a claim that later fails to settle
// is a lost reward, not a refunded spin.
func (s *Service) Execute(ctx context.Context, identity string) (*Receipt, error) {
	nonce, err := s.acquire(identity)
	if err != nil {
		return nil, err
	}
	defer s.release(identity)

	remaining, err := s.quota.Consume(ctx, identity)
	if err != nil {
		return nil, err
	}

	source := wheel.NewSeededSource(s.serverSeed, identity, nonce)
	selector := wheel.NewSelector(source)
	index, err := selector.Pick(s.table)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrOutcomeTableError, "failed to select outcome")
	}
	outcome, err := s.table.Outcome(index)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrOutcomeTableError, "failed to resolve outcome")
	}

	receipt := &Receipt{
		SpinID:    uuid.NewString(),
		Outcome:   outcome,
		Remaining: remaining,
		Proof:     source.LastProof(),
	}

	logEvent := s.logger.Info().
		Str("spin_id", receipt.SpinID).
		Str("identity", identity).
		Str("label", outcome.Label).
		Int("remaining", remaining)

	if outcome.Amount.IsPositive() {
		claim := NewClaim(identity, outcome.Label, outcome.Amount, outcome.AssetSymbol)
		if err := s.claims.Create(ctx, claim); err != nil {
			// The spin is already spent. Surface the storage failure;
			// the outcome stands but the reward is lost.
			logEvent.Discard()
			s.logger.Error().
				Err(err).
				Str("spin_id", receipt.SpinID).
				Str("identity", identity).
				Msg("failed to record claim for winning spin")
			return nil, err
		}
		receipt.ClaimID = claim.ClaimID
		logEvent = logEvent.Str("claim_id", claim.ClaimID)

		select {
		case s.notify <- struct{}{}:
		default:
		}
	}

	logEvent.Msg("spin executed")
	return receipt, nil
}

// Remaining reports the identity's spins left today.
func (s *Service) Remaining(ctx context.Context, identity string) (int, error) {
	return s.quota.Remaining(ctx, identity)
}

// Table returns the outcome table for display.
func (s *Service) Table() *wheel.Table {
	return s.table
}

// Claim returns the current state of a payout claim.
func (s *Service) Claim(ctx context.Context, claimID string) (*Claim, error) {
	return s.claims.Get(ctx, claimID)
}
