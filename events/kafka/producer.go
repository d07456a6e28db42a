package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/spinwin-labs/spin-reward-service/spin"
)

const defaultWorkerNum = 10

// Producer publishes win events through a worker pool, so the settlement
// path never blocks on the broker.
type Producer struct {
	writer    *kafka.Writer
	topic     string
	logger    zerolog.Logger
	jobs      chan kafka.Message
	workerNum int
	wg        sync.WaitGroup
}

// ProducerConfig holds configuration for the win-event producer.
type ProducerConfig struct {
	Brokers   []string
	Topic     string
	Logger    zerolog.Logger
	WorkerNum int
}

// NewProducer creates a win-event producer. An empty broker list yields a
// nil producer; callers treat that as "no feed wired".
func NewProducer(config ProducerConfig) (*Producer, error) {
	if len(config.Brokers) == 0 {
		return nil, nil
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("win-event topic required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		Async:        false,
	}

	workerNum := config.WorkerNum
	if workerNum <= 0 {
		workerNum = defaultWorkerNum
	}

	p := &Producer{
		writer:    writer,
		topic:     config.Topic,
		logger:    config.Logger.With().Str("component", "kafka-producer").Logger(),
		jobs:      make(chan kafka.Message, 100),
		workerNum: workerNum,
	}

	for i := 0; i < workerNum; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p, nil
}

func (p *Producer) worker() {
	defer p.wg.Done()
	for msg := range p.jobs {
		func() {
			defer p.recover()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := p.writer.WriteMessages(ctx, msg); err != nil {
				p.logger.Error().
					Err(err).
					Str("topic", msg.Topic).
					Str("key", string(msg.Key)).
					Msg("Failed to send win event to Kafka")
			} else {
				p.logger.Debug().
					Str("topic", msg.Topic).
					Str("key", string(msg.Key)).
					Msg("Win event sent to Kafka")
			}
		}()
	}
}

// PublishWin enqueues a settled-win event, keyed by winner address so a
// winner's events stay ordered within their partition.
func (p *Producer) PublishWin(_ context.Context, event *spin.WinEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to marshal win event")
		return fmt.Errorf("failed to marshal win event: %w", err)
	}

	p.jobs <- kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.Address),
		Value: eventBytes,
		Time:  event.Timestamp,
	}
	return nil
}

// Close drains the worker pool and closes the writer.
func (p *Producer) Close() error {
	close(p.jobs)
	p.wg.Wait()
	if err := p.writer.Close(); err != nil {
		p.logger.Error().Err(err).Msg("Error closing Kafka producer")
		return err
	}
	return nil
}

func (p *Producer) recover() {
	if r := recover(); r != nil {
		stack := debug.Stack()
		p.logger.Error().
			Str("operation", "publish_win_event").
			Str("panic", fmt.Sprintf("%v", r)).
			Str("stack_trace", string(stack)).
			Msg("Panic recovered")
	}
}
