package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tourly/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaProducerConfig contains configuration for the Kafka notification producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	ClientID         string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "tour-notifications",
		ClientID:         "tourly",
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000,
	}
}

// SaramaConfig builds the producer settings; hash partitioning keeps one
// recipient's notifications ordered on a single partition.
func (c *KafkaProducerConfig) SaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = c.ClientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = c.RequiredAcks
	cfg.Producer.Compression = c.CompressionType
	cfg.Producer.Retry.Max = c.RetryMax
	cfg.Producer.Timeout = c.Timeout
	cfg.Producer.Idempotent = c.IdempotentWrites
	cfg.Producer.MaxMessageBytes = c.MaxMessageBytes
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	if c.IdempotentWrites {
		cfg.Net.MaxOpenRequests = 1
	}
	return cfg
}

// KafkaDispatcher publishes notifications to a topic keyed by recipient.
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

func NewKafkaDispatcher(config *KafkaProducerConfig) (*KafkaDispatcher, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, config.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaDispatcherWithProducer(producer, config.Topic), nil
}

func NewKafkaDispatcherWithProducer(producer sarama.SyncProducer, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic, log: logger.GetDefault()}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, n Notification) {
	if err := d.Publish(ctx, n); err != nil {
		d.log.ErrorContext(ctx, "failed to publish notification",
			slog.String("notification_id", n.ID.String()),
			slog.String("type", string(n.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// Publish sends one notification and reports the broker error, if any.
func (d *KafkaDispatcher) Publish(ctx context.Context, n Notification) error {
	payload, err := n.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     d.topic,
		Key:       sarama.StringEncoder(n.GetPartitionKey()),
		Value:     sarama.ByteEncoder(payload),
		Headers:   createHeaders(n),
		Timestamp: n.CreatedAt,
	}

	partition, offset, err := d.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send notification to Kafka: %w", err)
	}

	d.log.DebugContext(ctx, "notification published",
		slog.String("topic", d.topic),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
		slog.String("type", string(n.Type)),
	)
	return nil
}

func createHeaders(n Notification) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(n.ID.String())},
		{Key: []byte("notification_type"), Value: []byte(n.Type)},
		{Key: []byte("priority"), Value: []byte(n.Priority)},
		{Key: []byte("recipient_id"), Value: []byte(n.RecipientID.String())},
		{Key: []byte("producer"), Value: []byte("tourly")},
	}
	if n.BookingID != nil {
		headers = append(headers, sarama.RecordHeader{Key: []byte("booking_id"), Value: []byte(n.BookingID.String())})
	}
	if n.RefundID != nil {
		headers = append(headers, sarama.RecordHeader{Key: []byte("refund_id"), Value: []byte(n.RefundID.String())})
	}
	return headers
}

func (d *KafkaDispatcher) Close() error {
	if d.producer == nil {
		return nil
	}
	if err := d.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
