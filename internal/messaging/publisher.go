package messaging

import (
	"context"
	"fmt"
	"log/slog"
)

// Publisher sends domain events to the configured broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Options selects and configures a broker
type Options struct {
	Kind         string // rabbitmq, kafka or none
	RabbitMQURL  string
	Exchange     string
	KafkaBrokers []string
	KafkaTopic   string
}

// New builds the publisher named by opts.Kind. A broker that cannot be
// reached at startup degrades to the fallback publisher.
func New(ctx context.Context, opts Options, logger *slog.Logger) Publisher {
	switch opts.Kind {
	case "rabbitmq":
		p, err := NewRabbitPublisher(opts.RabbitMQURL, opts.Exchange)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events will only be logged", "error", err)
			return NewFallbackPublisher(logger)
		}
		logger.Info("publishing events to rabbitmq", "exchange", opts.Exchange)
		return p
	case "kafka":
		p := NewKafkaPublisher(opts.KafkaBrokers, opts.KafkaTopic, 256, logger)
		p.Start(ctx)
		logger.Info("publishing events to kafka", "topic", opts.KafkaTopic)
		return p
	default:
		return NewFallbackPublisher(logger)
	}
}

// FallbackPublisher logs events instead of sending them.
type FallbackPublisher struct {
	logger *slog.Logger
}

func NewFallbackPublisher(logger *slog.Logger) *FallbackPublisher {
	return &FallbackPublisher{logger: logger.With("component", "event_publisher", "mode", "fallback")}
}

func (p *FallbackPublisher) Publish(_ context.Context, env Envelope) error {
	p.logger.Info("event publish skipped",
		"event_type", env.EventType,
		"event_id", env.EventID,
		"correlation_id", env.CorrelationID)
	return nil
}

func (p *FallbackPublisher) Close() error { return nil }

func routingKey(env Envelope) string {
	if env.EventType == "" {
		return "checkout.unknown"
	}
	return fmt.Sprintf("checkout.%s", env.EventType)
}
