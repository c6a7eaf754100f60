// internal/queue/consumer.go
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"notification-pipeline/internal/common/logger"
)

// Handler processes one consumed notification ID. A returned error means the
// core state transition could not be recorded; the message is then left
// unmarked so the queue redelivers it.
type Handler interface {
	HandleNotification(ctx context.Context, notificationID string) error
}

// Consumer runs one consumer-group member. Partition ownership gives
// per-partition serialization; parallelism comes from running more members.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler Handler
	logger  logger.Logger
}

func NewConsumer(brokers []string, groupID, topic string, handler Handler, log logger.Logger) (*Consumer, error) {
	sc := sarama.NewConfig()
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, sc)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return &Consumer{
		group:   group,
		topic:   topic,
		handler: handler,
		logger:  log.WithFields(map[string]interface{}{"topic": topic, "group": groupID}),
	}, nil
}

// Run consumes until ctx is cancelled. Consume returns on every rebalance,
// so it is called in a loop.
func (c *Consumer) Run(ctx context.Context) error {
	gh := &groupHandler{handler: c.handler, logger: c.logger}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, gh); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("consume session ended", map[string]interface{}{"error": err})
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	handler Handler
	logger  logger.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		env, err := ParseEnvelope(msg.Value)
		if err != nil {
			// Malformed messages cannot succeed on redelivery either.
			h.logger.Warn("dropping malformed message", map[string]interface{}{
				"partition": msg.Partition,
				"offset":    msg.Offset,
				"error":     err,
			})
			session.MarkMessage(msg, "")
			continue
		}

		if err := h.handler.HandleNotification(session.Context(), env.NotificationID); err != nil {
			// Leave the message unmarked: the session restarts and the
			// broker redelivers from the last committed offset.
			h.logger.Error("handler failed, message left for redelivery", map[string]interface{}{
				"notificationId": env.NotificationID,
				"error":          err,
			})
			return err
		}

		session.MarkMessage(msg, "")
	}
	return nil
}
