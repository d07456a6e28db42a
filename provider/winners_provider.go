package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/spinwin-labs/spin-reward-service/config"
	"github.com/spinwin-labs/spin-reward-service/httpclient"
	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
)

// WinnersProvider fetches the recent-winners list from the payout service.
type WinnersProvider struct {
	client *httpclient.Client
	logger zerolog.Logger
}

// NewWinnersProvider creates a winners provider from configuration.
func NewWinnersProvider(cfg *config.Config, logger zerolog.Logger) *WinnersProvider {
	svc := cfg.ExternalServices.PayoutService
	client := httpclient.New(httpclient.Config{
		BaseURL: svc.BaseURL,
		Timeout: svc.Timeout,
		Logger:  logger,
		Headers: map[string]string{
			"X-API-Key": svc.APIKey,
		},
	})

	return &WinnersProvider{
		client: client,
		logger: logger.With().Str("component", "winners_provider").Logger(),
	}
}

// Recent returns up to limit winners, newest first. An unreachable service
// yields an error; callers decide between failing and serving a cached
// list.
func (p *WinnersProvider) Recent(ctx context.Context, limit int) ([]providers.Winner, error) {
	var winners []providers.Winner
	path := "/api/winners"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	if err := p.client.GetJSON(ctx, path, nil, &winners); err != nil {
		return nil, err
	}
	return winners, nil
}
