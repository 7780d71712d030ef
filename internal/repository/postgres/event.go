package postgres

import (
	"context"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
)

type eventRepository struct {
	db dbtx
}

func (r *eventRepository) Append(ctx context.Context, ev *domain.RentalEvent) error {
	query := `INSERT INTO rental_events (id, rental_id, version, event_type, payload, occurred_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	logger.DatabaseCall("INSERT", "rental_events", "rentalID", ev.RentalID, "version", ev.Version, "type", ev.Type)

	payload := []byte(ev.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx, query, ev.ID, ev.RentalID, ev.Version, string(ev.Type), payload, ev.OccurredAt)
	logger.DatabaseResult("INSERT", 1, err, "rentalID", ev.RentalID)
	if err != nil {
		if isUniqueViolation(err) {
			logger.Warn("Duplicate rental event version", "rentalID", ev.RentalID, "version", ev.Version)
		}
		return wrapErr("append rental event", err)
	}
	return nil
}

func (r *eventRepository) ListByRental(ctx context.Context, rentalID string) ([]domain.RentalEvent, error) {
	query := `SELECT id, rental_id, version, event_type, payload, occurred_at
	          FROM rental_events WHERE rental_id = $1 ORDER BY version`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, wrapErr("list rental events", err)
	}
	defer rows.Close()

	var events []domain.RentalEvent
	for rows.Next() {
		var ev domain.RentalEvent
		var typ string
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.RentalID, &ev.Version, &typ, &payload, &ev.OccurredAt); err != nil {
			return nil, wrapErr("list rental events", err)
		}
		ev.Type = domain.EventType(typ)
		ev.Payload = payload
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list rental events", err)
	}
	return events, nil
}
