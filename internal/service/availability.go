package service

import (
	"context"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
)

// AvailabilityChecker decides whether a vehicle is free for a window.
// Stateless.
type AvailabilityChecker struct{}

func NewAvailabilityChecker() *AvailabilityChecker {
	return &AvailabilityChecker{}
}

// Check fails fast on the vehicle flag, then looks for rentals in statuses
// overlapping [start, end). excludeID skips one rental (the one being
// changed).
func (a *AvailabilityChecker) Check(ctx context.Context, repos repository.Repositories, vehicle *domain.Vehicle, start, end time.Time, statuses []domain.RentalStatus, excludeID string) (bool, error) {
	if !vehicle.IsAvailable {
		return false, nil
	}
	conflicts, err := repos.Rentals().FindConflicting(ctx, repository.ConflictQuery{
		VehicleID: vehicle.ID,
		Start:     start,
		End:       end,
		Statuses:  statuses,
		ExcludeID: excludeID,
	})
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}
