// internal/queue/producer.go
package queue

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"notification-pipeline/internal/common/config"
)

// Publisher is the admission/scheduler side of the queue layer.
type Publisher interface {
	Publish(ctx context.Context, notificationID string) error
	PublishBatch(ctx context.Context, notificationIDs []string) error
}

// Producer wraps an idempotent sarama sync producer. It is constructed
// explicitly at process start and closed on shutdown; there is no lazily
// initialized package-level connection.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{producer: producer, topic: cfg.Topic}, nil
}

// NewProducerWith wraps an existing sarama producer; used by tests.
func NewProducerWith(p sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: p, topic: topic}
}

// Publish sends one envelope keyed by the notification ID so all messages
// for a single notification land on the same partition.
func (p *Producer) Publish(ctx context.Context, notificationID string) error {
	return p.PublishBatch(ctx, []string{notificationID})
}

// PublishBatch sends all envelopes in a single producer call. Partial broker
// failures surface as a single error; callers rely on the stale sweeps to
// recover anything left behind.
func (p *Producer) PublishBatch(ctx context.Context, notificationIDs []string) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(notificationIDs))
	for _, id := range notificationIDs {
		value, err := Envelope{NotificationID: id}.Marshal()
		if err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(id),
			Value: sarama.ByteEncoder(value),
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
