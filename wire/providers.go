package wire

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/spinwin-labs/spin-reward-service/config"
	"github.com/spinwin-labs/spin-reward-service/db/redis"
	"github.com/spinwin-labs/spin-reward-service/donation"
	"github.com/spinwin-labs/spin-reward-service/logging"
	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
	"github.com/spinwin-labs/spin-reward-service/pkg/winnersfeed"
	"github.com/spinwin-labs/spin-reward-service/provider"
	"github.com/spinwin-labs/spin-reward-service/quota"
	"github.com/spinwin-labs/spin-reward-service/server"
	"github.com/spinwin-labs/spin-reward-service/spin"
	"github.com/spinwin-labs/spin-reward-service/wheel"
)

// ProvideLogger provides a zerolog.Logger
func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Logging)
}

// ProvideRedisClient provides a Redis client
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	return redis.New(cfg.Redis)
}

// ProvideQuotaStore provides the authoritative quota store
func ProvideQuotaStore(cfg *config.Config, client *redis.Client) quota.Store {
	return quota.NewRedisStore(client, cfg.Wheel.MaxSpinsPerDay)
}

// ProvideOutcomeTable loads and validates the wheel outcome table
func ProvideOutcomeTable(cfg *config.Config) (*wheel.Table, error) {
	return wheel.LoadTable(cfg.Wheel.TablePath)
}

// ProvideClaimStore provides the claim store
func ProvideClaimStore(client *redis.Client) spin.ClaimStore {
	return spin.NewRedisClaimStore(client)
}

// ProvideSpinService provides the spin service
func ProvideSpinService(cfg *config.Config, quotaStore quota.Store, table *wheel.Table, claims spin.ClaimStore, logger zerolog.Logger) *spin.Service {
	return spin.NewService(quotaStore, table, claims, cfg.Wheel.ServerSeed, logger)
}

// ProvidePayoutProvider provides the payout service client
func ProvidePayoutProvider(cfg *config.Config, logger zerolog.Logger) providers.PayoutProvider {
	return provider.NewPayoutProvider(cfg, logger)
}

// ProvideWinnersProvider provides the winners list client
func ProvideWinnersProvider(cfg *config.Config, logger zerolog.Logger) providers.WinnersProvider {
	return provider.NewWinnersProvider(cfg, logger)
}

// ProvideSessionProvider provides the wallet session provider
func ProvideSessionProvider(client *redis.Client, logger zerolog.Logger) providers.SessionProvider {
	return provider.NewSessionProvider(client, logger)
}

// ProvideChainProvider provides the chain provider
func ProvideChainProvider(cfg *config.Config, logger zerolog.Logger) (providers.ChainProvider, error) {
	return provider.NewChainProvider(cfg, logger)
}

// ProvideDonationService provides the donation service
func ProvideDonationService(cfg *config.Config, sessions providers.SessionProvider, chain providers.ChainProvider, logger zerolog.Logger) *donation.Service {
	return donation.NewService(cfg, sessions, chain, logger)
}

// ProvideWinnersFeed provides the winners feed
func ProvideWinnersFeed(winnersProvider providers.WinnersProvider, logger zerolog.Logger) *winnersfeed.Service {
	return winnersfeed.NewService(winnersProvider, winnersfeed.Config{Logger: logger})
}

// ProvideServerOptions provides server options
func ProvideServerOptions(cfg *config.Config, logger zerolog.Logger, spinService *spin.Service, donationService *donation.Service, feed *winnersfeed.Service) server.Options {
	return server.Options{
		Config:          cfg,
		Logger:          logger,
		SpinService:     spinService,
		DonationService: donationService,
		WinnersFeed:     feed,
	}
}

// ProvideApp provides the main application
func ProvideApp(opts server.Options) *server.App {
	return server.New(opts)
}

// ConfigSet is the wire provider set for configuration
var ConfigSet = wire.NewSet(
	config.Load,
)

// LoggingSet is the wire provider set for logging
var LoggingSet = wire.NewSet(
	ProvideLogger,
)

// RedisSet is the wire provider set for Redis
var RedisSet = wire.NewSet(
	ProvideRedisClient,
)

// ProviderSet is the wire provider set for external providers
var ProviderSet = wire.NewSet(
	ProvidePayoutProvider,
	ProvideWinnersProvider,
	ProvideSessionProvider,
	ProvideChainProvider,
)

// ServiceSet is the wire provider set for domain services
var ServiceSet = wire.NewSet(
	ProvideQuotaStore,
	ProvideOutcomeTable,
	ProvideClaimStore,
	ProvideSpinService,
	ProvideDonationService,
	ProvideWinnersFeed,
)

// ServerSet is the wire provider set for server
var ServerSet = wire.NewSet(
	ProvideServerOptions,
	ProvideApp,
)

// FullSet includes all providers
var FullSet = wire.NewSet(
	LoggingSet,
	RedisSet,
	ProviderSet,
	ServiceSet,
	ServerSet,
)
