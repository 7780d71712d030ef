package service

import (
	"context"
	"fmt"
	"slices"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/events"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
)

var transitions = map[domain.RentalStatus][]domain.RentalStatus{
	domain.RentalStatusPending:   {domain.RentalStatusConfirmed, domain.RentalStatusCancelled},
	domain.RentalStatusConfirmed: {domain.RentalStatusActive, domain.RentalStatusCancelled},
	domain.RentalStatusActive:    {domain.RentalStatusCompleted, domain.RentalStatusCancelled},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to domain.RentalStatus) bool {
	return slices.Contains(transitions[from], to)
}

// RentalLifecycle validates status changes and applies their vehicle side
// effects. Callers must hold the vehicle lock (GetForUpdate) in the same
// transaction and pass the locked vehicle.
type RentalLifecycle struct {
	now Clock
}

func NewRentalLifecycle(now Clock) *RentalLifecycle {
	if now == nil {
		now = systemClock
	}
	return &RentalLifecycle{now: now}
}

// Apply moves rental to status `to`, persists it and appends the matching
// event, which it returns for publishing after commit. rental and vehicle are
// updated in place. Nothing is written when validation fails.
func (l *RentalLifecycle) Apply(ctx context.Context, repos repository.Repositories, rental *domain.Rental, vehicle *domain.Vehicle, to domain.RentalStatus, tc domain.TransitionContext, payload map[string]any) (*domain.RentalEvent, error) {
	from := rental.Status
	if !CanTransition(from, to) {
		return nil, &domain.TransitionError{From: from, To: to}
	}

	next := rental.Clone()
	next.Status = to
	if tc.Notes != "" {
		next.Notes = tc.Notes
	}

	switch {
	case from == domain.RentalStatusPending && to == domain.RentalStatusConfirmed:
		if err := l.ensureNoOverlap(ctx, repos, rental); err != nil {
			return nil, err
		}

	case from == domain.RentalStatusConfirmed && to == domain.RentalStatusActive:
		if tc.MileageStart == nil {
			return nil, domain.ValidationError("starting mileage is required to start a rental")
		}
		if *tc.MileageStart < 0 {
			return nil, domain.ValidationError("starting mileage cannot be negative")
		}
		if err := l.ensureVehicleFree(ctx, repos, rental, vehicle); err != nil {
			return nil, err
		}
		m := *tc.MileageStart
		next.MileageStart = &m

	case from == domain.RentalStatusActive && to == domain.RentalStatusCompleted:
		if tc.MileageEnd == nil {
			return nil, domain.ValidationError("ending mileage is required to complete a rental")
		}
		if rental.MileageStart != nil && *tc.MileageEnd < *rental.MileageStart {
			return nil, domain.ValidationError("ending mileage %d is lower than starting mileage %d", *tc.MileageEnd, *rental.MileageStart)
		}
		m := *tc.MileageEnd
		next.MileageEnd = &m
		returned := l.now()
		next.ActualReturnDate = &returned

	case to == domain.RentalStatusCancelled:
		if tc.Reason != "" {
			next.CancellationReason = tc.Reason
		}
	}

	if err := repos.Rentals().Update(ctx, next); err != nil {
		return nil, err
	}
	if err := l.syncVehicle(ctx, repos, rental, vehicle, from, to); err != nil {
		return nil, err
	}

	if payload == nil {
		payload = map[string]any{}
	}
	payload["from"] = from
	payload["to"] = to
	payload["vehicle_id"] = rental.VehicleID
	payload["customer_id"] = rental.CustomerID
	ev := events.NewEvent(domain.EventForStatus(to), next.ID, next.Version, l.now(), payload)
	if err := repos.Events().Append(ctx, &ev); err != nil {
		return nil, err
	}

	*rental = *next
	logger.WithRental(rental.ID).Info("Rental status changed", "from", from, "to", to, "version", rental.Version)
	return &ev, nil
}

// ensureNoOverlap keeps at most one CONFIRMED/ACTIVE rental per window.
func (l *RentalLifecycle) ensureNoOverlap(ctx context.Context, repos repository.Repositories, rental *domain.Rental) error {
	conflicts, err := repos.Rentals().FindConflicting(ctx, repository.ConflictQuery{
		VehicleID: rental.VehicleID,
		Start:     rental.StartDate,
		End:       rental.EndDate,
		Statuses:  domain.BlockingStatuses,
		ExcludeID: rental.ID,
	})
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return domain.VehicleUnavailableError(rental.VehicleID)
	}
	return nil
}

func (l *RentalLifecycle) ensureVehicleFree(ctx context.Context, repos repository.Repositories, rental *domain.Rental, vehicle *domain.Vehicle) error {
	switch vehicle.Status {
	case domain.VehicleStatusMaintenance, domain.VehicleStatusDamaged, domain.VehicleStatusRetired:
		return &domain.Error{Kind: domain.ErrVehicleUnavailable, Message: fmt.Sprintf("vehicle %s is %s", vehicle.ID, vehicle.Status)}
	}
	active, err := repos.Rentals().CountByVehicleAndStatus(ctx, rental.VehicleID, domain.RentalStatusActive, rental.ID)
	if err != nil {
		return err
	}
	if active > 0 {
		return domain.VehicleUnavailableError(rental.VehicleID)
	}
	return nil
}

// syncVehicle applies the vehicle side of a transition. A vehicle the
// inventory moved to MAINTENANCE, DAMAGED or RETIRED is left alone on release.
func (l *RentalLifecycle) syncVehicle(ctx context.Context, repos repository.Repositories, rental *domain.Rental, vehicle *domain.Vehicle, from, to domain.RentalStatus) error {
	switch {
	case to == domain.RentalStatusActive:
		vehicle.MarkRented()
	case from == domain.RentalStatusActive:
		if vehicle.Status != domain.VehicleStatusRented {
			return nil
		}
		vehicle.MarkAvailable()
	case from == domain.RentalStatusConfirmed && to == domain.RentalStatusCancelled:
		if vehicle.Status != domain.VehicleStatusRented {
			return nil
		}
		active, err := repos.Rentals().CountByVehicleAndStatus(ctx, rental.VehicleID, domain.RentalStatusActive, rental.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return nil
		}
		vehicle.MarkAvailable()
	default:
		return nil
	}
	return repos.Vehicles().SetAvailability(ctx, vehicle.ID, vehicle.IsAvailable, vehicle.Status)
}

// ReplayStatus folds a rental's event log through the transition table and
// returns the resulting status. Versions must be strictly increasing.
func ReplayStatus(history []domain.RentalEvent) (domain.RentalStatus, error) {
	if len(history) == 0 {
		return "", domain.InvalidStateError("empty event history")
	}
	if history[0].Type != domain.EventRentalCreated {
		return "", domain.InvalidStateError("history must start with %s, got %s", domain.EventRentalCreated, history[0].Type)
	}

	status := domain.RentalStatusPending
	last := history[0].Version
	for _, ev := range history[1:] {
		if ev.Version <= last {
			return "", domain.InvalidStateError("event version %d does not follow %d", ev.Version, last)
		}
		last = ev.Version

		to, ok := statusForEvent(ev.Type)
		if !ok {
			continue
		}
		if !CanTransition(status, to) {
			return "", &domain.TransitionError{From: status, To: to}
		}
		status = to
	}
	return status, nil
}

func statusForEvent(t domain.EventType) (domain.RentalStatus, bool) {
	switch t {
	case domain.EventRentalConfirmed:
		return domain.RentalStatusConfirmed, true
	case domain.EventRentalStarted:
		return domain.RentalStatusActive, true
	case domain.EventRentalCompleted:
		return domain.RentalStatusCompleted, true
	case domain.EventRentalCancelled:
		return domain.RentalStatusCancelled, true
	}
	return "", false
}
