package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/events"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/utils"
)

// holdingStatuses block a window on the create path. PENDING counts here so
// that concurrent overlapping requests cannot both be accepted.
var holdingStatuses = []domain.RentalStatus{
	domain.RentalStatusPending,
	domain.RentalStatusConfirmed,
	domain.RentalStatusActive,
}

type reservationService struct {
	store     repository.Store
	pricing   *utils.PricingCalculator
	checker   *AvailabilityChecker
	lifecycle *RentalLifecycle
	policy    Policy
	sink      events.Sink
	cache     *ReadCache
	now       Clock
}

// NewReservationService wires the reservation core. sink and cache may be nil.
func NewReservationService(
	store repository.Store,
	pricing *utils.PricingCalculator,
	policy Policy,
	sink events.Sink,
	cache *ReadCache,
	now Clock,
) ReservationService {
	if now == nil {
		now = systemClock
	}
	if sink == nil {
		sink = events.Discard{}
	}
	if pricing == nil {
		pricing = utils.NewDefaultPricingCalculator()
	}
	return &reservationService{
		store:     store,
		pricing:   pricing,
		checker:   NewAvailabilityChecker(),
		lifecycle: NewRentalLifecycle(now),
		policy:    policy,
		sink:      sink,
		cache:     cache,
		now:       now,
	}
}

func (s *reservationService) validateCreate(req *CreateRentalRequest) error {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.VehicleID = strings.TrimSpace(req.VehicleID)
	if req.CustomerID == "" {
		return domain.ValidationError("customer id is required")
	}
	if req.VehicleID == "" {
		return domain.ValidationError("vehicle id is required")
	}

	req.StartDate = req.StartDate.UTC()
	req.EndDate = req.EndDate.UTC()
	if !req.StartDate.Before(req.EndDate) {
		return domain.ValidationError("end date must be after start date")
	}
	if req.StartDate.Before(s.now()) {
		return domain.ValidationError("start date cannot be in the past")
	}
	days := utils.WholeDays(req.StartDate, req.EndDate)
	if days < max(s.policy.MinRentalDays, 1) {
		return domain.ValidationError("rental must be at least %d day(s)", max(s.policy.MinRentalDays, 1))
	}
	if days > s.policy.MaxRentalDays {
		return domain.ValidationError("rental cannot exceed %d days", s.policy.MaxRentalDays)
	}

	if req.Discount.IsNegative() {
		return domain.ValidationError("discount cannot be negative")
	}
	for _, extra := range req.Extras {
		if !s.pricing.IsRecognizedExtra(strings.TrimSpace(extra)) {
			return domain.ValidationError("unrecognized extra %q, expected one of %s", extra, strings.Join(s.pricing.Extras(), ", "))
		}
	}
	return nil
}

func (s *reservationService) CreateRental(ctx context.Context, req CreateRentalRequest) (*domain.Rental, error) {
	logger.EnterMethod("reservationService.CreateRental", "customer_id", req.CustomerID, "vehicle_id", req.VehicleID)

	if err := s.validateCreate(&req); err != nil {
		logger.ExitMethodWithError("reservationService.CreateRental", err)
		return nil, err
	}

	var (
		rental *domain.Rental
		ev     domain.RentalEvent
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		vehicle, err := repos.Vehicles().GetForUpdate(ctx, req.VehicleID)
		if err != nil {
			return err
		}
		free, err := s.checker.Check(ctx, repos, vehicle, req.StartDate, req.EndDate, holdingStatuses, "")
		if err != nil {
			return err
		}
		if !free {
			return domain.VehicleUnavailableError(vehicle.ID)
		}

		quote, err := s.pricing.Calculate(vehicle.DailyPrice, req.StartDate, req.EndDate, req.Extras)
		if err != nil {
			return err
		}
		discount := req.Discount.Round(2)
		subtotal := quote.Subtotal.Add(quote.ExtrasCost)
		total := subtotal.Sub(discount).Add(quote.Tax)
		if !total.IsPositive() {
			return domain.ValidationError("discount %s leaves nothing to pay", discount.StringFixed(2))
		}

		rental = &domain.Rental{
			ID:              uuid.NewString(),
			CustomerID:      req.CustomerID,
			VehicleID:       vehicle.ID,
			StartDate:       req.StartDate,
			EndDate:         req.EndDate,
			PickupLocation:  req.PickupLocation,
			DropoffLocation: req.DropoffLocation,
			Status:          domain.RentalStatusPending,
			DailyRate:       vehicle.DailyPrice,
			TotalDays:       quote.DurationDays,
			Extras:          normalizeExtras(req.Extras),
			ExtrasCost:      quote.ExtrasCost,
			Subtotal:        subtotal,
			Discount:        discount,
			Tax:             quote.Tax,
			TotalAmount:     total,
			Notes:           req.Notes,
			Version:         1,
		}
		if err := repos.Rentals().Create(ctx, rental); err != nil {
			return err
		}

		ev = events.NewEvent(domain.EventRentalCreated, rental.ID, rental.Version, s.now(), map[string]any{
			"customer_id":  rental.CustomerID,
			"vehicle_id":   rental.VehicleID,
			"start_date":   rental.StartDate,
			"end_date":     rental.EndDate,
			"total_amount": rental.TotalAmount,
		})
		return repos.Events().Append(ctx, &ev)
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService.CreateRental", err)
		return nil, err
	}

	s.cache.InvalidateRental(rental.ID, rental.VehicleID)
	s.sink.Emit(ev)

	logger.WithRental(rental.ID).Info("Rental created", "vehicle_id", rental.VehicleID, "total_amount", rental.TotalAmount.StringFixed(2))
	logger.ExitMethod("reservationService.CreateRental", "rental_id", rental.ID)
	return rental, nil
}

func normalizeExtras(extras []string) []string {
	out := make([]string, 0, len(extras))
	seen := make(map[string]bool, len(extras))
	for _, e := range extras {
		name := strings.ToLower(strings.TrimSpace(e))
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// loadLocked reads the rental, locks its vehicle, then re-reads the rental
// so the status seen is the one guarded by the lock.
func loadLocked(ctx context.Context, repos repository.Repositories, rentalID string) (*domain.Rental, *domain.Vehicle, error) {
	rental, err := repos.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, nil, err
	}
	vehicle, err := repos.Vehicles().GetForUpdate(ctx, rental.VehicleID)
	if err != nil {
		return nil, nil, err
	}
	rental, err = repos.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, nil, err
	}
	return rental, vehicle, nil
}

func (s *reservationService) CancelRental(ctx context.Context, rentalID, reason string) (*domain.CancellationResult, error) {
	logger.EnterMethod("reservationService.CancelRental", "rental_id", rentalID)

	var (
		result *domain.CancellationResult
		ev     *domain.RentalEvent
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		rental, vehicle, err := loadLocked(ctx, repos, rentalID)
		if err != nil {
			return err
		}
		if rental.Status.IsTerminal() {
			return domain.InvalidStateError("rental %s is already %s", rental.ID, rental.Status)
		}

		now := s.now()
		days := utils.DaysUntil(now, rental.StartDate)
		percent := 0
		if now.Before(rental.StartDate) {
			percent = utils.RefundPercent(s.policy.RefundTiers, days)
		}
		refund := utils.RefundAmount(rental.TotalAmount, percent)

		ev, err = s.lifecycle.Apply(ctx, repos, rental, vehicle, domain.RentalStatusCancelled,
			domain.TransitionContext{Reason: reason},
			map[string]any{
				"reason":         reason,
				"refund_percent": percent,
				"refund_amount":  refund,
			})
		if err != nil {
			return err
		}

		result = &domain.CancellationResult{
			Rental:         rental,
			OriginalAmount: rental.TotalAmount,
			RefundAmount:   refund,
			RefundPercent:  percent,
			DaysUntilStart: days,
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService.CancelRental", err, "rental_id", rentalID)
		return nil, err
	}

	s.cache.InvalidateRental(result.Rental.ID, result.Rental.VehicleID)
	s.sink.Emit(*ev)

	logger.ExitMethod("reservationService.CancelRental", "rental_id", rentalID, "refund_amount", result.RefundAmount.StringFixed(2))
	return result, nil
}

func (s *reservationService) UpdateStatus(ctx context.Context, rentalID string, status domain.RentalStatus, tc domain.TransitionContext) (*domain.Rental, error) {
	logger.EnterMethod("reservationService.UpdateStatus", "rental_id", rentalID, "status", status)

	if !status.Valid() {
		err := domain.ValidationError("unknown rental status %q", status)
		logger.ExitMethodWithError("reservationService.UpdateStatus", err)
		return nil, err
	}

	var (
		rental *domain.Rental
		ev     *domain.RentalEvent
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var (
			vehicle *domain.Vehicle
			err     error
		)
		rental, vehicle, err = loadLocked(ctx, repos, rentalID)
		if err != nil {
			return err
		}
		ev, err = s.lifecycle.Apply(ctx, repos, rental, vehicle, status, tc, nil)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService.UpdateStatus", err, "rental_id", rentalID)
		return nil, err
	}

	s.cache.InvalidateRental(rental.ID, rental.VehicleID)
	s.sink.Emit(*ev)

	logger.ExitMethod("reservationService.UpdateStatus", "rental_id", rentalID, "status", rental.Status)
	return rental, nil
}

func (s *reservationService) CalculateLateFees(ctx context.Context, rentalID string) (*domain.LateFeeResult, error) {
	rental, err := s.store.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &domain.LateFeeResult{
		RentalID:    rental.ID,
		FeePerDay:   s.policy.LateFeePerDay,
		LateFee:     decimal.Zero,
		OriginalEnd: rental.EndDate,
		AsOf:        now,
	}
	if rental.Status != domain.RentalStatusActive || !now.After(rental.EndDate) {
		return result, nil
	}

	result.IsOverdue = true
	result.LateDays = utils.LateDays(now, rental.EndDate)
	result.LateFee = s.policy.LateFeePerDay.Mul(decimal.NewFromInt(int64(result.LateDays))).Round(2)
	return result, nil
}

func (s *reservationService) GetSummary(ctx context.Context, rentalID string) (*domain.RentalSummary, error) {
	if cached, ok := s.cache.Summary(rentalID); ok {
		return cached, nil
	}

	rental, err := s.store.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	customer, err := s.store.Customers().GetByID(ctx, rental.CustomerID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	vehicle, err := s.store.Vehicles().GetByID(ctx, rental.VehicleID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	payments, err := s.store.Payments().ListByRental(ctx, rental.ID)
	if err != nil {
		return nil, err
	}
	paid, err := s.store.Payments().SumCompleted(ctx, rental.ID)
	if err != nil {
		return nil, err
	}

	summary := &domain.RentalSummary{
		Rental:      rental,
		Customer:    customer,
		Vehicle:     vehicle,
		Payments:    payments,
		PlannedDays: rental.TotalDays,
		TotalPaid:   paid,
		Balance:     rental.TotalAmount.Sub(paid),
	}
	if summary.Payments == nil {
		summary.Payments = []domain.Payment{}
	}
	if rental.ActualReturnDate != nil {
		actual := utils.DurationDays(rental.StartDate, *rental.ActualReturnDate)
		summary.ActualDays = &actual
	}
	if rental.MileageStart != nil && rental.MileageEnd != nil {
		driven := *rental.MileageEnd - *rental.MileageStart
		summary.MileageTotal = &driven
	}

	s.cache.SetSummary(rentalID, summary)
	return summary, nil
}

func (s *reservationService) GetRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	return s.store.Rentals().GetByID(ctx, rentalID)
}

func (s *reservationService) GetRentalHistory(ctx context.Context, rentalID string) ([]domain.RentalEvent, error) {
	if _, err := s.store.Rentals().GetByID(ctx, rentalID); err != nil {
		return nil, err
	}
	return s.store.Events().ListByRental(ctx, rentalID)
}

func (s *reservationService) IsAvailable(ctx context.Context, vehicleID string, start, end time.Time) (bool, error) {
	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return false, domain.ValidationError("end date must be after start date")
	}
	if available, ok := s.cache.Availability(vehicleID, start, end); ok {
		return available, nil
	}

	vehicle, err := s.store.Vehicles().GetByID(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	available, err := s.checker.Check(ctx, s.store, vehicle, start, end, domain.BlockingStatuses, "")
	if err != nil {
		return false, err
	}

	s.cache.SetAvailability(vehicleID, start, end, available)
	return available, nil
}

func (s *reservationService) ListOverdue(ctx context.Context) ([]domain.Rental, error) {
	return s.store.Rentals().ListOverdue(ctx, s.now())
}

func (s *reservationService) ListStartingWithin(ctx context.Context, window time.Duration) ([]domain.Rental, error) {
	now := s.now()
	return s.store.Rentals().ListStartingBetween(ctx, domain.RentalStatusConfirmed, now, now.Add(window))
}
