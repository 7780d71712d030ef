package memory

import (
	"context"

	"rentacar-backend/internal/domain"
)

type eventRepository struct {
	*repos
}

func (r *eventRepository) Append(ctx context.Context, ev *domain.RentalEvent) error {
	return r.write(func(s *state) error {
		for _, existing := range s.events[ev.RentalID] {
			if existing.Version == ev.Version {
				return domain.StorageError("append event", domain.InvalidStateError("event version %d already recorded for rental %s", ev.Version, ev.RentalID))
			}
		}
		s.events[ev.RentalID] = append(s.events[ev.RentalID], *ev)
		return nil
	})
}

func (r *eventRepository) ListByRental(ctx context.Context, rentalID string) ([]domain.RentalEvent, error) {
	var out []domain.RentalEvent
	err := r.read(func(s *state) error {
		out = append(out, s.events[rentalID]...)
		return nil
	})
	return out, err
}
