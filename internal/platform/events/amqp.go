package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tailor-market/api/internal/services"
)

const defaultPublishTimeout = 3 * time.Second

// AMQPPublisher publishes order events to a durable topic exchange. The routing key is the event type.
type AMQPPublisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
	timeout  time.Duration
}

var _ services.OrderEventPublisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher opens a channel on conn and declares the exchange so publishing never fails on
// missing infrastructure.
func NewAMQPPublisher(conn *amqp.Connection, exchange string) (*AMQPPublisher, error) {
	if conn == nil {
		return nil, errors.New("amqp event publisher: connection is required")
	}
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		return nil, errors.New("amqp event publisher: exchange is required")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, timeout: defaultPublishTimeout}, nil
}

func (p *AMQPPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	if p == nil || p.ch == nil {
		return errors.New("amqp event publisher: not initialised")
	}
	body, attrs, err := encode(event)
	if err != nil {
		return err
	}
	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(pubCtx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.OrderID + ":" + event.Type + ":" + event.OccurredAt.UTC().Format(time.RFC3339Nano),
		Timestamp:    event.OccurredAt.UTC(),
		Headers:      headers,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// Close closes the publishing channel. The connection stays open.
func (p *AMQPPublisher) Close() error {
	if p == nil || p.ch == nil {
		return nil
	}
	return p.ch.Close()
}
