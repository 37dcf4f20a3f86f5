package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/domain"
)

// prefetch bounds unacknowledged deliveries per consumer.
const prefetch = 16

// ErrDiscard tells the consumer to drop a delivery instead of requeueing it.
var ErrDiscard = errors.New("discard delivery")

// Handler processes one event. Returning nil acks; ErrDiscard (wrapped or
// not) nacks without requeue; any other error nacks with requeue.
type Handler func(ctx context.Context, e domain.Event) error

// Consumer reads events from a durable queue with manual acks.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *logrus.Logger
}

func NewConsumer(url, queue string, log *logrus.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}
	if err := declare(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Consumer{conn: conn, ch: ch, queue: queue, log: log}, nil
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.log.WithField("queue", c.queue).Info("worker listening")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.dispatch(ctx, d, h)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery, h Handler) {
	var e domain.Event
	if err := json.Unmarshal(d.Body, &e); err != nil || e.Type == "" {
		c.log.WithError(err).Warn("malformed event dropped")
		_ = d.Nack(false, false)
		return
	}
	entry := c.log.WithField("event", e.Type)
	switch err := h(ctx, e); {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrDiscard):
		entry.WithError(err).Warn("event discarded")
		_ = d.Nack(false, false)
	default:
		entry.WithError(err).Error("event handling failed; requeued")
		_ = d.Nack(false, true)
	}
}

func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}
