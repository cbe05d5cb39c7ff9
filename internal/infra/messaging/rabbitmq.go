// Package messaging publishes order events to RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"canteen/internal/domain/event"

	"github.com/google/uuid"
	amqp "github.com/streadway/amqp"
)

// amqp.Channel のうち使う部分
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Config struct {
	URL      string
	Exchange string
}

// RabbitPublisher sends events to a durable topic exchange, routed by event type.
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	log      *slog.Logger
}

// NewRabbitPublisher connects and declares the exchange.
func NewRabbitPublisher(cfg Config, log *slog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	log.Info("rabbitmq connected", "exchange", cfg.Exchange)

	p := newRabbitPublisher(ch, cfg.Exchange, log)
	p.conn = conn
	return p, nil
}

func newRabbitPublisher(ch channel, exchange string, log *slog.Logger) *RabbitPublisher {
	return &RabbitPublisher{ch: ch, exchange: exchange, log: log}
}

func encode(ev event.OrderEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal %s: %w", ev.Type, err)
	}

	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    ts,
		Type:         string(ev.Type),
		Body:         body,
	}, nil
}

// Publish sends one event. The channel is not safe for concurrent use so
// publishes are serialized.
func (p *RabbitPublisher) Publish(ctx context.Context, ev event.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := encode(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	if err := p.ch.Publish(p.exchange, string(ev.Type), false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Type, err)
	}

	p.log.Debug("event published", "type", ev.Type, "order_id", ev.OrderID, "message_id", msg.MessageId)
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
		p.conn = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("rabbitmq close: %v", errs)
	}
	return nil
}

// NoopPublisher drops events. Used when RABBITMQ_URL is not set.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, event.OrderEvent) error { return nil }
func (NoopPublisher) Close() error                                    { return nil }
