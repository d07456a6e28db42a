package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spinwin-labs/spin-reward-service/auth"
	"github.com/spinwin-labs/spin-reward-service/config"
	"github.com/spinwin-labs/spin-reward-service/events/kafka"
	"github.com/spinwin-labs/spin-reward-service/spin"
	"github.com/spinwin-labs/spin-reward-service/wire"
)

const winEventsTopic = "win_events"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "spinservice",
		Short: "Spin-to-win reward service",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := wire.ProvideLogger(cfg)

			redisClient, err := wire.ProvideRedisClient(cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to Redis: %w", err)
			}
			defer redisClient.Close() //nolint:errcheck

			table, err := wire.ProvideOutcomeTable(cfg)
			if err != nil {
				return fmt.Errorf("failed to load outcome table: %w", err)
			}
			logger.Info().Strs("segments", table.Labels()).Msg("Outcome table loaded")

			quotaStore := wire.ProvideQuotaStore(cfg, redisClient)
			claims := wire.ProvideClaimStore(redisClient)
			spinService := wire.ProvideSpinService(cfg, quotaStore, table, claims, logger)

			payoutProvider := wire.ProvidePayoutProvider(cfg, logger)
			winnersProvider := wire.ProvideWinnersProvider(cfg, logger)
			sessionProvider := wire.ProvideSessionProvider(redisClient, logger)
			chainProvider, err := wire.ProvideChainProvider(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to set up chain provider: %w", err)
			}

			donationService := wire.ProvideDonationService(cfg, sessionProvider, chainProvider, logger)
			feed := wire.ProvideWinnersFeed(winnersProvider, logger)

			app := wire.ProvideApp(wire.ProvideServerOptions(cfg, logger, spinService, donationService, feed))
			app.UseCommonMiddlewares()
			app.RegisterHealthCheck()
			app.RegisterRoutes()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Warm the winners cache; a cold payout service is not fatal.
			warmCtx, warmCancel := context.WithTimeout(ctx, 5*time.Second)
			if err := feed.Refresh(warmCtx); err != nil {
				logger.Warn().Err(err).Msg("Could not warm winners cache")
			}
			warmCancel()

			// Win events flow out through Kafka and back in through the
			// consumer, so every instance's feed sees every settle.
			var winPublisher spin.WinPublisher
			producer, err := kafka.NewProducer(kafka.ProducerConfig{
				Brokers: cfg.Kafka.Brokers,
				Topic:   winTopic(cfg),
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("failed to set up Kafka producer: %w", err)
			}
			if producer != nil {
				winPublisher = producer
				app.OnShutdown(func() { _ = producer.Close() })

				consumer := kafka.NewConsumer(kafka.ConsumerConfig{
					Brokers:       cfg.Kafka.Brokers,
					Topic:         winTopic(cfg),
					ConsumerGroup: cfg.Kafka.ConsumerGroup,
					Logger:        logger,
				}, feed)
				if err := consumer.Start(); err != nil {
					return fmt.Errorf("failed to start Kafka consumer: %w", err)
				}
				app.OnShutdown(func() { _ = consumer.Stop() })
			} else {
				logger.Warn().Msg("No Kafka brokers configured; winners feed is instance-local")
			}

			reconciler := spin.NewReconciler(claims, payoutProvider, winPublisher, spinService.PendingClaims(), spin.ReconcilerConfig{}, logger)
			go reconciler.Run(ctx)

			return app.Run()
		},
	}
}

// winTopic returns the configured win-events topic, with a sane default.
func winTopic(cfg *config.Config) string {
	if topic, ok := cfg.Kafka.Topics["win_events"]; ok && topic != "" {
		return topic
	}
	return winEventsTopic
}

func tokenCmd() *cobra.Command {
	var address string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development JWT for a wallet address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address == "" {
				return fmt.Errorf("--address is required")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			token, err := auth.GenerateToken(cfg.JWT.Secret, address, ttl)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}

			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "wallet address the token identifies")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
