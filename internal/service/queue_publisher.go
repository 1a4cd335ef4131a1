package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/queue"
)

// EventPublisher announces committed changes.  Publishing happens after
// commit and a failure never undoes the change, so callers log and move on.
type EventPublisher interface {
	PassSaved(ctx context.Context, ev queue.PassSavedEvent) error
	VoucherPurchased(ctx context.Context, ev queue.VoucherPurchasedEvent) error
}

// AMQPPublisher publishes events as persistent JSON messages to durable
// queues on the default exchange.  The connection is dialled lazily and
// re-dialled after a failure.
type AMQPPublisher struct {
	cfg  config.RabbitMQConfig
	mu   sync.Mutex
	conn *amqp.Connection
}

func NewAMQPPublisher(cfg config.RabbitMQConfig) *AMQPPublisher {
	return &AMQPPublisher{cfg: cfg}
}

func (p *AMQPPublisher) PassSaved(ctx context.Context, ev queue.PassSavedEvent) error {
	return p.publish(ctx, p.cfg.PassSavedQueue, ev)
}

func (p *AMQPPublisher) VoucherPurchased(ctx context.Context, ev queue.VoucherPurchasedEvent) error {
	return p.publish(ctx, p.cfg.VoucherPurchasedQueue, ev)
}

func (p *AMQPPublisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

func (p *AMQPPublisher) publish(ctx context.Context, queueName string, event any) error {
	entry := log.WithField("queue", queueName)
	conn, err := p.connection()
	if err != nil {
		entry.WithError(err).Error("rabbitmq: dial failed")
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		entry.WithError(err).Error("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		entry.WithError(err).Error("rabbitmq: queue declare failed")
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		entry.WithError(err).Error("rabbitmq: publish failed")
		return err
	}
	return nil
}

// Close closes the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
