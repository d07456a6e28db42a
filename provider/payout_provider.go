package provider

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/spinwin-labs/spin-reward-service/config"
	"github.com/spinwin-labs/spin-reward-service/httpclient"
	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
)

// PayoutProvider implements providers.PayoutProvider against the payout
// service's HTTP API.
type PayoutProvider struct {
	client *httpclient.Client
	logger zerolog.Logger
}

// NewPayoutProvider creates a payout provider from configuration.
func NewPayoutProvider(cfg *config.Config, logger zerolog.Logger) *PayoutProvider {
	svc := cfg.ExternalServices.PayoutService
	client := httpclient.New(httpclient.Config{
		BaseURL: svc.BaseURL,
		Timeout: svc.Timeout,
		Logger:  logger,
		Headers: map[string]string{
			"X-API-Key": svc.APIKey,
		},
	})

	return &PayoutProvider{
		client: client,
		logger: logger.With().Str("component", "payout_provider").Logger(),
	}
}

type payoutResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash"`
	Error   string `json:"error"`
}

// Claim submits a reward claim. A transport failure is returned as an
// error so the caller can retry; a reachable service always yields a
// result, accepted or declined.
func (p *PayoutProvider) Claim(ctx context.Context, req *providers.PayoutRequest) (*providers.PayoutResult, error) {
	resp, err := p.client.Post(ctx, "/api/send-reward", req, nil)
	if err != nil {
		return nil, err
	}

	var body payoutResponse
	if err := resp.Unmarshal(&body); err != nil {
		return nil, err
	}

	if !resp.IsSuccess() || !body.Success {
		msg := body.Error
		if msg == "" {
			msg = "payout service declined the claim"
		}
		p.logger.Warn().
			Str("claim_id", req.ClaimID).
			Int("status", resp.StatusCode).
			Str("error", msg).
			Msg("payout claim declined")
		return &providers.PayoutResult{Accepted: false, ErrorMessage: msg}, nil
	}

	p.logger.Info().
		Str("claim_id", req.ClaimID).
		Str("tx_hash", body.TxHash).
		Msg("payout claim accepted")
	return &providers.PayoutResult{Accepted: true, TxReference: body.TxHash}, nil
}
