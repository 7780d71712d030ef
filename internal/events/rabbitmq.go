package events

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
)

const dialAttempts = 5

// RabbitMQPublisher publishes to a durable topic exchange using the event
// type as routing key (e.g. "rental.confirmed").
type RabbitMQPublisher struct {
	url      string
	exchange string

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

var ErrPublisherClosed = errors.New("publisher is closed")

func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	p := &RabbitMQPublisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) connect() error {
	var err error
	for i := 1; i <= dialAttempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(p.url)
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr != nil {
				_ = conn.Close()
				return fmt.Errorf("failed to open channel: %w", chErr)
			}
			if declErr := ch.ExchangeDeclare(
				p.exchange,
				"topic",
				true,  // durable
				false, // auto-delete
				false, // internal
				false, // no-wait
				nil,
			); declErr != nil {
				_ = ch.Close()
				_ = conn.Close()
				return fmt.Errorf("failed to declare exchange: %w", declErr)
			}
			p.conn, p.ch = conn, ch
			logger.Info("Connected to RabbitMQ", "exchange", p.exchange)
			return nil
		}

		logger.Warn("RabbitMQ connect attempt failed", "attempt", i, "error", err)
		if i < dialAttempts {
			time.Sleep(time.Second * time.Duration(math.Pow(2, float64(i-1))))
		}
	}
	return fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, ev domain.RentalEvent) error {
	body, err := encode(ev)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}
	if p.ch == nil || p.ch.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}

	logger.ExternalServiceCall("rabbitmq", "Publish", "exchange", p.exchange, "type", ev.Type)
	err = p.ch.PublishWithContext(
		ctx,
		p.exchange,
		string(ev.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Timestamp:    ev.OccurredAt,
			Body:         body,
		},
	)
	logger.ExternalServiceResult("rabbitmq", "Publish", err, "event_id", ev.ID)
	return errors.Wrap(err, "publish amqp message")
}

// Close releases the connection. Later publishes fail with
// ErrPublisherClosed instead of reconnecting.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	p.conn, p.ch = nil, nil
	return nil
}
