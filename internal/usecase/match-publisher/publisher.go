package matchpublisher

import (
	"context"

	"github.com/jvsteiner/orderlib/pkg/config"
	"github.com/jvsteiner/orderlib/pkg/errors"
	"github.com/jvsteiner/orderlib/pkg/logger"
	"github.com/segmentio/kafka-go"

	matchpublisherv1 "github.com/jvsteiner/orderlib/internal/domain/match-publisher/v1"
)

// Publisher represents a Kafka publisher for the match topic.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      *logger.Logger
}

// NewPublisher creates a new Kafka publisher for fill events.
func NewPublisher(config config.MatchPublisherConfig, log *logger.Logger) *Publisher {
	kafkaWriter := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// PublishFills publishes the fills of a single admitted order to the match
// topic, in execution order.
func (p *Publisher) PublishFills(ctx context.Context, events []matchpublisherv1.FillEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msgs = append(msgs, kafka.Message{
			Value: matchpublisherv1.ToBytes(event),
		})
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "events", Value: len(events)},
		)
		return errors.NewTracer("fill_publish_error").Wrap(err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}
