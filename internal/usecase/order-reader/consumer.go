package orderreader

import (
	"context"
	"encoding/json"

	"github.com/jvsteiner/orderlib/pkg/config"
	"github.com/jvsteiner/orderlib/pkg/errors"
	"github.com/jvsteiner/orderlib/pkg/logger"
	"github.com/segmentio/kafka-go"

	orderreaderv1 "github.com/jvsteiner/orderlib/internal/domain/order-reader/v1"
)

// Reader represents a Kafka reader for consuming messages from the order topic.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      *logger.Logger
}

// NewReader creates a new Kafka reader for consuming messages from the order
// topic. It returns an implementation of the OrderReader interface. The
// reader is pinned to partition 0 and resumes from offsets the engine tracks
// through snapshots.
func NewReader(config config.KafkaConfig, log *logger.Logger) Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

// logError is a helper method to log errors consistently
func (r Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// SetOffset sets the offset for the Kafka reader.
func (r Reader) SetOffset(offset int64) error {
	if err := r.kafkaReader.SetOffset(offset); err != nil {
		r.logError(err, "SetOffset")
		return errors.NewTracer("order_feed_offset_error").Wrap(err)
	}
	return nil
}

// ReadMessage reads a message from the order topic and parses it as an
// OrderRequest. The message offset is copied onto the request.
func (r Reader) ReadMessage(ctx context.Context) (kafka.Message, orderreaderv1.OrderRequest, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		r.logError(err, "ReadMessage")
		return kafka.Message{}, orderreaderv1.OrderRequest{}, errors.NewTracer("order_feed_read_error").Wrap(err)
	}

	var request orderreaderv1.OrderRequest
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		r.logError(err, "UnmarshalOrderRequest")
		return kafka.Message{}, orderreaderv1.OrderRequest{}, errors.NewTracer("order_decode_error").Wrap(err)
	}

	r.logger.Info("ReadMessage",
		logger.Field{Key: "orderID", Value: request.OrderID},
		logger.Field{Key: "action", Value: request.Action},
		logger.Field{Key: "side", Value: request.Side},
		logger.Field{Key: "type", Value: request.Type},
		logger.Field{Key: "size", Value: request.Size},
		logger.Field{Key: "price", Value: request.Price},
	)

	request.Offset = msg.Offset

	return msg, request, nil
}

// Close properly closes the Kafka reader.
func (r Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}

// CommitMessages acknowledges processed messages. The reader is pinned to a
// partition without a consumer group, so there is nothing to commit; the
// snapshot offset is the durable resume point.
func (r Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return nil
}
