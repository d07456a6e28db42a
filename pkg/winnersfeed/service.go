package winnersfeed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
)

const defaultCacheSize = 50

// Service maintains the recent-winners feed: a bounded cache seeded from
// the payout service, kept fresh by settled-win events, with a broadcaster
// for live subscribers.
type Service struct {
	provider  providers.WinnersProvider
	broadcast *Broadcaster
	cacheSize int
	logger    zerolog.Logger

	mu      sync.RWMutex
	winners []providers.Winner
	seeded  bool
}

// Config configures the winners feed.
type Config struct {
	// CacheSize bounds the retained winner list. Zero means the default.
	CacheSize int

	// BroadcastBuffer sizes the live-update channel. Zero means the
	// cache size.
	BroadcastBuffer int

	Logger zerolog.Logger
}

// NewService creates a winners feed over the given provider. The provider
// may be nil; the feed then serves only locally recorded wins.
func NewService(provider providers.WinnersProvider, cfg Config) *Service {
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	buffer := cfg.BroadcastBuffer
	if buffer <= 0 {
		buffer = cacheSize
	}

	return &Service{
		provider:  provider,
		broadcast: NewBroadcaster(buffer),
		cacheSize: cacheSize,
		logger:    cfg.Logger.With().Str("service", "winners_feed").Logger(),
	}
}

// Refresh reloads the cache from the payout service. Called at startup and
// whenever a caller wants a guaranteed-fresh list.
func (s *Service) Refresh(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}

	winners, err := s.provider.Recent(ctx, s.cacheSize)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.winners = winners
	s.seeded = true
	s.mu.Unlock()

	s.logger.Debug().Int("count", len(winners)).Msg("winners cache refreshed")
	return nil
}

// Recent returns up to limit winners, newest first. The first call on a
// cold cache fetches from the payout service; later calls serve the cache
// as win events keep it current.
func (s *Service) Recent(ctx context.Context, limit int) ([]providers.Winner, error) {
	s.mu.RLock()
	seeded := s.seeded
	s.mu.RUnlock()

	if !seeded {
		if err := s.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	winners := s.winners
	if limit > 0 && limit < len(winners) {
		winners = winners[:limit]
	}
	// Copy so callers cannot alias the cache.
	return lo.Map(winners, func(w providers.Winner, _ int) providers.Winner { return w }), nil
}

// Record prepends a settled win to the cache and announces it to live
// subscribers.
func (s *Service) Record(winner providers.Winner) {
	if winner.Timestamp.IsZero() {
		winner.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.winners = append([]providers.Winner{winner}, s.winners...)
	if len(s.winners) > s.cacheSize {
		s.winners = s.winners[:s.cacheSize]
	}
	s.seeded = true
	s.mu.Unlock()

	s.broadcast.Send(winner)

	s.logger.Info().
		Str("address", winner.Address).
		Str("amount", winner.Amount.String()).
		Str("tx_hash", winner.TxHash).
		Msg("winner recorded")
}

// Listen subscribes to live winner announcements.
func (s *Service) Listen(ctx context.Context) (<-chan providers.Winner, context.CancelFunc) {
	return s.broadcast.Listen(ctx)
}
