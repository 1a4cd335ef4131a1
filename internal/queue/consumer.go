package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// Handler processes one delivery body.  A returned error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, body []byte) error

// Consumer consumes a set of durable queues, one handler per queue.
type Consumer struct {
	URL      string
	Prefetch int
	handlers map[string]Handler
}

func NewConsumer(url string, prefetch int) *Consumer {
	return &Consumer{URL: url, Prefetch: prefetch, handlers: map[string]Handler{}}
}

// Handle registers h for queue.
func (c *Consumer) Handle(queue string, h Handler) {
	c.handlers[queue] = h
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broken
// connections are re-established with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.WithError(err).Warnf("consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type delivery struct {
	queue string
	amqp.Delivery
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.Prefetch, 0, false); err != nil {
		log.WithError(err).Warn("consumer: set QoS failed")
	}

	merged := make(chan delivery)
	for queue := range c.handlers {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", queue, err)
		}
		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", queue, err)
		}
		go func(queue string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case merged <- delivery{queue: queue, Delivery: d}:
				case <-ctx.Done():
					return
				}
			}
		}(queue, msgs)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("channel closed")
		case d := <-merged:
			c.dispatch(ctx, d)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d delivery) {
	entry := log.WithField("queue", d.queue)
	if err := c.handlers[d.queue](ctx, d.Body); err != nil {
		entry.WithError(err).Error("consumer: handle message failed")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
