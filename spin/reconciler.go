package spin

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
)

const unreachableMessage = "service unreachable"

// WinEvent is published when a claim settles, feeding the winners feed.
type WinEvent struct {
	Address   string    `json:"address"`
	Amount    string    `json:"amount"`
	TxHash    string    `json:"txHash"`
	Timestamp time.Time `json:"timestamp"`
}

// WinPublisher publishes settled-win events.
type WinPublisher interface {
	PublishWin(ctx context.Context, event *WinEvent) error
}

// ReconcilerConfig tunes the settlement loop.
type ReconcilerConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

func (c *ReconcilerConfig) withDefaults() ReconcilerConfig {
	cfg := *c
	if cfg.Interval == 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	return cfg
}

// Reconciler drains pending claims against the payout provider. Each
// claim is submitted with its stable ClaimID, so the payout service can
// deduplicate retries.
type Reconciler struct {
	claims    ClaimStore
	payout    providers.PayoutProvider
	publisher WinPublisher
	wake      <-chan struct{}
	cfg       ReconcilerConfig
	logger    zerolog.Logger
}

// NewReconciler creates a reconciler over the claim store and payout
// provider. The wake channel triggers an immediate pass; pass nil to rely
// on the interval alone. publisher may be nil when no feed is wired.
func NewReconciler(claims ClaimStore, payout providers.PayoutProvider, publisher WinPublisher, wake <-chan struct{}, cfg ReconcilerConfig, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		claims:    claims,
		payout:    payout,
		publisher: publisher,
		wake:      wake,
		cfg:       cfg.withDefaults(),
		logger:    logger.With().Str("service", "claim_reconciler").Logger(),
	}
}

// Run settles pending claims until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.cfg.Interval).Msg("claim reconciler started")
	for {
		r.Reconcile(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info().Msg("claim reconciler stopped")
			return
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// Reconcile runs a single settlement pass over all pending claims.
func (r *Reconciler) Reconcile(ctx context.Context) {
	pending, err := r.claims.ListPending(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list pending claims")
		return
	}

	for _, claim := range pending {
		if ctx.Err() != nil {
			return
		}
		r.settle(ctx, claim)
	}
}

func (r *Reconciler) settle(ctx context.Context, claim *Claim) {
	logger := r.logger.With().Str("claim_id", claim.ClaimID).Logger()

	result, err := r.payout.Claim(ctx, &providers.PayoutRequest{
		ClaimID: claim.ClaimID,
		Address: claim.Identity,
		Reward:  claim.Label,
		Amount:  claim.Amount,
		Chain:   claim.AssetSymbol,
	})
	claim.Attempts++

	if err != nil {
		// Transport failure; the claim stays pending until the attempt
		// budget runs out.
		if claim.Attempts >= r.cfg.MaxAttempts {
			claim.Status = ClaimFailed
			claim.ErrorMessage = unreachableMessage
			logger.Error().Err(err).Int("attempts", claim.Attempts).Msg("claim abandoned, payout service unreachable")
		} else {
			logger.Warn().Err(err).Int("attempts", claim.Attempts).Msg("payout attempt failed, will retry")
		}
		if err := r.claims.Update(ctx, claim); err != nil {
			logger.Error().Err(err).Msg("failed to persist claim attempt")
		}
		return
	}

	if !result.Accepted {
		claim.Status = ClaimFailed
		claim.ErrorMessage = result.ErrorMessage
		if err := r.claims.Update(ctx, claim); err != nil {
			logger.Error().Err(err).Msg("failed to persist declined claim")
			return
		}
		logger.Warn().Str("error", result.ErrorMessage).Msg("claim declined")
		return
	}

	claim.Status = ClaimSettled
	claim.TxReference = result.TxReference
	if err := r.claims.Update(ctx, claim); err != nil {
		logger.Error().Err(err).Msg("failed to persist settled claim")
		return
	}
	logger.Info().Str("tx_hash", result.TxReference).Msg("claim settled")

	if r.publisher != nil {
		event := &WinEvent{
			Address:   claim.Identity,
			Amount:    claim.Amount.String(),
			TxHash:    result.TxReference,
			Timestamp: time.Now().UTC(),
		}
		if err := r.publisher.PublishWin(ctx, event); err != nil {
			logger.Error().Err(err).Msg("failed to publish win event")
		}
	}
}
