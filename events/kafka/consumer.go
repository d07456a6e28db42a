package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
	"github.com/spinwin-labs/spin-reward-service/pkg/winnersfeed"
	"github.com/spinwin-labs/spin-reward-service/spin"
)

// Consumer reads settled-win events and forwards them to the winners
// feed. Every service instance consumes the full topic, so local feeds
// stay consistent whichever instance settled the claim.
type Consumer struct {
	reader *kafka.Reader
	feed   *winnersfeed.Service
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ConsumerConfig holds the win-event consumer configuration.
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Logger        zerolog.Logger
}

// NewConsumer creates a consumer feeding the given winners feed.
func NewConsumer(config ConsumerConfig, feed *winnersfeed.Service) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &Consumer{
		reader: reader,
		feed:   feed,
		logger: config.Logger.With().Str("component", "kafka-consumer").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins consuming messages
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go c.consume()
	c.logger.Info().Msg("Kafka consumer started")
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info().Msg("Stopping Kafka consumer...")
	c.cancel()
	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Error closing Kafka reader")
		return err
	}

	c.logger.Info().Msg("Kafka consumer stopped")
	return nil
}

// consume is the main consumer loop
func (c *Consumer) consume() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			msg, err := c.reader.FetchMessage(c.ctx)
			if err != nil {
				if err == context.Canceled {
					return
				}
				c.logger.Error().Err(err).Msg("Error fetching message from Kafka")
				time.Sleep(time.Second)
				continue
			}

			if err := c.handleMessage(msg); err != nil {
				c.logger.Error().
					Err(err).
					Str("topic", msg.Topic).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("Error handling win event")
			}

			if err := c.reader.CommitMessages(c.ctx, msg); err != nil {
				c.logger.Error().Err(err).Msg("Error committing message")
			}
		}
	}
}

func (c *Consumer) handleMessage(msg kafka.Message) error {
	var event spin.WinEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(event.Amount)
	if err != nil {
		return err
	}

	c.feed.Record(providers.Winner{
		Address:   event.Address,
		Amount:    amount,
		TxHash:    event.TxHash,
		Timestamp: event.Timestamp,
	})
	return nil
}
