package domain

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventRentalCreated   EventType = "rental.created"
	EventRentalConfirmed EventType = "rental.confirmed"
	EventRentalStarted   EventType = "rental.started"
	EventRentalCompleted EventType = "rental.completed"
	EventRentalCancelled EventType = "rental.cancelled"
	EventPaymentReceived EventType = "payment.received"
)

// EventForStatus maps a rental status to the event emitted on entering it.
func EventForStatus(s RentalStatus) EventType {
	switch s {
	case RentalStatusPending:
		return EventRentalCreated
	case RentalStatusConfirmed:
		return EventRentalConfirmed
	case RentalStatusActive:
		return EventRentalStarted
	case RentalStatusCompleted:
		return EventRentalCompleted
	case RentalStatusCancelled:
		return EventRentalCancelled
	}
	return ""
}

// RentalEvent is one entry of a rental's append-only history. Version is
// strictly increasing per rental and (RentalID, Version) is unique.
type RentalEvent struct {
	ID         string          `json:"id"`
	RentalID   string          `json:"rental_id"`
	Version    int             `json:"version"`
	Type       EventType       `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
