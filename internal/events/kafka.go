package events

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
)

// KafkaPublisher writes events to one topic keyed by rental id, so all events
// of a rental land on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
			Transport:    &kafka.Transport{},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.RentalEvent) error {
	body, err := encode(ev)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	logger.ExternalServiceCall("kafka", "WriteMessages", "topic", p.writer.Topic, "type", ev.Type)
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.RentalID),
		Value: body,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
	logger.ExternalServiceResult("kafka", "WriteMessages", err, "event_id", ev.ID)
	return errors.Wrap(err, "write kafka message")
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
