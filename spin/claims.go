package spin

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spinwin-labs/spin-reward-service/db/redis"
	"github.com/spinwin-labs/spin-reward-service/errors"
)

// ClaimStatus is the lifecycle state of a payout claim.
type ClaimStatus string

const (
	ClaimPending ClaimStatus = "pending"
	ClaimSettled ClaimStatus = "settled"
	ClaimFailed  ClaimStatus = "failed"
)

// Claim is a payout obligation created by a winning spin. Exactly one of
// TxReference and ErrorMessage is set once the claim leaves pending.
type Claim struct {
	ClaimID      string          `json:"claimId"`
	Identity     string          `json:"identity"`
	Label        string          `json:"label"`
	Amount       decimal.Decimal `json:"amount"`
	AssetSymbol  string          `json:"assetSymbol"`
	Status       ClaimStatus     `json:"status"`
	TxReference  string          `json:"txReference,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Attempts     int             `json:"attempts"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NewClaim creates a pending claim with a fresh stable ID.
func NewClaim(identity, label string, amount decimal.Decimal, assetSymbol string) *Claim {
	now := time.Now().UTC()
	return &Claim{
		ClaimID:     uuid.NewString(),
		Identity:    identity,
		Label:       label,
		Amount:      amount,
		AssetSymbol: assetSymbol,
		Status:      ClaimPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ClaimStore persists claims and tracks which ones still need settling.
type ClaimStore interface {
	Create(ctx context.Context, claim *Claim) error
	Get(ctx context.Context, claimID string) (*Claim, error)
	// Update persists the claim and removes it from the pending set when
	// its status is terminal.
	Update(ctx context.Context, claim *Claim) error
	// ListPending returns the claims awaiting settlement, oldest first
	// not guaranteed.
	ListPending(ctx context.Context) ([]*Claim, error)
}

const (
	claimKeyPrefix  = "claim_"
	claimPendingSet = "claims_pending"
)

// RedisClaimStore persists claims in Redis with a set indexing pending
// ones, so the reconciler survives restarts without scanning keys.
type RedisClaimStore struct {
	client *redis.Client
}

// NewRedisClaimStore creates a Redis-backed claim store.
func NewRedisClaimStore(client *redis.Client) *RedisClaimStore {
	return &RedisClaimStore{client: client}
}

func claimKey(claimID string) string {
	return claimKeyPrefix + claimID
}

func (s *RedisClaimStore) Create(ctx context.Context, claim *Claim) error {
	if err := s.client.SetJSON(ctx, claimKey(claim.ClaimID), claim, 0); err != nil {
		return errors.Wrap(err, errors.ErrRedisError, "failed to store claim")
	}
	if err := s.client.SAdd(ctx, claimPendingSet, claim.ClaimID); err != nil {
		return errors.Wrap(err, errors.ErrRedisError, "failed to index pending claim")
	}
	return nil
}

func (s *RedisClaimStore) Get(ctx context.Context, claimID string) (*Claim, error) {
	var claim Claim
	if err := s.client.GetJSON(ctx, claimKey(claimID), &claim); err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, errors.New(errors.ErrClaimNotFound, "claim not found")
		}
		return nil, errors.Wrap(err, errors.ErrRedisError, "failed to read claim")
	}
	return &claim, nil
}

func (s *RedisClaimStore) Update(ctx context.Context, claim *Claim) error {
	claim.UpdatedAt = time.Now().UTC()
	if err := s.client.SetJSON(ctx, claimKey(claim.ClaimID), claim, 0); err != nil {
		return errors.Wrap(err, errors.ErrRedisError, "failed to update claim")
	}
	if claim.Status != ClaimPending {
		if err := s.client.SRem(ctx, claimPendingSet, claim.ClaimID); err != nil {
			return errors.Wrap(err, errors.ErrRedisError, "failed to unindex claim")
		}
	}
	return nil
}

func (s *RedisClaimStore) ListPending(ctx context.Context) ([]*Claim, error) {
	ids, err := s.client.SMembers(ctx, claimPendingSet)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRedisError, "failed to list pending claims")
	}

	claims := make([]*Claim, 0, len(ids))
	for _, id := range ids {
		claim, err := s.Get(ctx, id)
		if err != nil {
			if errors.GetCode(err) == errors.ErrClaimNotFound {
				// Stale index entry; drop it.
				_ = s.client.SRem(ctx, claimPendingSet, id)
				continue
			}
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, nil
}
