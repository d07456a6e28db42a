package donation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spinwin-labs/spin-reward-service/config"
	"github.com/spinwin-labs/spin-reward-service/errors"
	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
)

// Receipt reports a completed donation transfer.
type Receipt struct {
	TxHash    string          `json:"txHash"`
	Confirmed bool            `json:"confirmed"`
	Amount    decimal.Decimal `json:"amount"`
	Recipient string          `json:"recipient"`
}

// Service executes on-chain donations to the configured recipient.
type Service struct {
	sessions       providers.SessionProvider
	chain          providers.ChainProvider
	minAmount      decimal.Decimal
	recipient      string
	confirmTimeout time.Duration
	logger         zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewService creates a donation service from configuration.
func NewService(cfg *config.Config, sessions providers.SessionProvider, chain providers.ChainProvider, logger zerolog.Logger) *Service {
	confirmTimeout := cfg.Chain.ConfirmTimeout
	if confirmTimeout == 0 {
		confirmTimeout = 60 * time.Second
	}

	return &Service{
		sessions:       sessions,
		chain:          chain,
		minAmount:      cfg.Donation.MinAmount,
		recipient:      cfg.Donation.Recipient,
		confirmTimeout: confirmTimeout,
		logger:         logger.With().Str("service", "donation").Logger(),
		inFlight:       make(map[string]bool),
	}
}

// MinAmount returns the smallest accepted donation.
func (s *Service) MinAmount() decimal.Decimal {
	return s.minAmount
}

func (s *Service) acquire(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[identity] {
		return errors.New(errors.ErrConflict, "a donation is already in progress")
	}
	s.inFlight[identity] = true
	return nil
}

func (s *Service) release(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, identity)
}

// Donate validates, submits and confirms a donation transfer.
//
// The amount is checked before any chain interaction, so an undersized
// donation never costs a signature or a broadcast. Sign rejection,
// broadcast failure and confirmation timeout all surface as errors; for a
// transfer that made it onto the wire the hash rides in the error detail.
func (s *Service) Donate(ctx context.Context, identity string, amount decimal.Decimal) (*Receipt, error) {
	if amount.LessThan(s.minAmount) {
		return nil, errors.NewWithDebug(errors.ErrInvalidAmount, "donation below minimum",
			"minimum is "+s.minAmount.String())
	}

	ok, err := s.sessions.HasSession(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.ErrWalletNotConnected, "wallet not connected")
	}

	if err := s.acquire(identity); err != nil {
		return nil, err
	}
	defer s.release(identity)

	txHash, err := s.chain.SubmitTransfer(ctx, &providers.TransferRequest{
		Recipient: s.recipient,
		Amount:    amount,
	})
	if err != nil {
		return nil, err
	}

	confirmCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	result, err := s.chain.AwaitConfirmation(confirmCtx, txHash)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("identity", identity).
			Str("tx_hash", txHash).
			Msg("donation confirmation failed")
		appErr := errors.Wrap(err, errors.ErrChainError, "donation not confirmed")
		appErr.DebugMessage = "tx " + txHash
		return nil, appErr
	}

	s.logger.Info().
		Str("identity", identity).
		Str("tx_hash", result.TxHash).
		Str("amount", amount.String()).
		Msg("donation confirmed")
	return &Receipt{
		TxHash:    result.TxHash,
		Confirmed: result.Confirmed,
		Amount:    amount,
		Recipient: s.recipient,
	}, nil
}
