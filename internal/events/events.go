package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"rentacar-backend/internal/domain"
)

// Publisher delivers one event to a transport.
type Publisher interface {
	Publish(ctx context.Context, ev domain.RentalEvent) error
	Close() error
}

// Sink accepts events without blocking the caller. Delivery is best-effort.
type Sink interface {
	Emit(ev domain.RentalEvent)
}

// NewEvent builds an event with a fresh id. payload is JSON encoded; an
// encoding failure leaves the payload empty.
func NewEvent(typ domain.EventType, rentalID string, version int, occurredAt time.Time, payload any) domain.RentalEvent {
	ev := domain.RentalEvent{
		ID:         uuid.NewString(),
		RentalID:   rentalID,
		Version:    version,
		Type:       typ,
		OccurredAt: occurredAt.UTC(),
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			ev.Payload = b
		}
	}
	return ev
}

// envelope is the wire format shared by every transport.
type envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	RentalID   string          `json:"rental_id"`
	Version    int             `json:"version"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func encode(ev domain.RentalEvent) ([]byte, error) {
	return json.Marshal(envelope{
		ID:         ev.ID,
		Type:       string(ev.Type),
		RentalID:   ev.RentalID,
		Version:    ev.Version,
		OccurredAt: ev.OccurredAt,
		Payload:    ev.Payload,
	})
}

// Discard drops every event. Useful where no sink is configured.
type Discard struct{}

func (Discard) Emit(domain.RentalEvent) {}
