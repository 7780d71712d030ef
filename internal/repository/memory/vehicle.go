package memory

import (
	"context"

	"rentacar-backend/internal/domain"
)

type vehicleRepository struct {
	*repos
}

func (r *vehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	var out *domain.Vehicle
	err := r.read(func(s *state) error {
		v, ok := s.vehicles[id]
		if !ok {
			return domain.NotFoundError("vehicle", id)
		}
		vc := *v
		out = &vc
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: transactions are already serialized.
func (r *vehicleRepository) GetForUpdate(ctx context.Context, id string) (*domain.Vehicle, error) {
	return r.GetByID(ctx, id)
}

func (r *vehicleRepository) SetAvailability(ctx context.Context, id string, available bool, status domain.VehicleStatus) error {
	return r.write(func(s *state) error {
		v, ok := s.vehicles[id]
		if !ok {
			return domain.NotFoundError("vehicle", id)
		}
		v.IsAvailable = available
		v.Status = status
		return nil
	})
}
