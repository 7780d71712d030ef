package events

import (
	"context"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
)

// LogPublisher writes events to the application log.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev domain.RentalEvent) error {
	logger.InfoContext(ctx, "Domain event", "event_id", ev.ID, "type", ev.Type, "rental_id", ev.RentalID,
		"version", ev.Version, "payload", string(ev.Payload))
	return nil
}

func (LogPublisher) Close() error { return nil }
