package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/events"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
)

// paymentTransitions lists the status changes a gateway notification may make.
var paymentTransitions = map[domain.PaymentStatus][]domain.PaymentStatus{
	domain.PaymentStatusPending:   {domain.PaymentStatusCompleted, domain.PaymentStatusFailed},
	domain.PaymentStatusCompleted: {domain.PaymentStatusRefunded},
}

type paymentService struct {
	store     repository.Store
	lifecycle *RentalLifecycle
	sink      events.Sink
	cache     *ReadCache
	now       Clock
}

func NewPaymentService(store repository.Store, sink events.Sink, cache *ReadCache, now Clock) PaymentService {
	if now == nil {
		now = systemClock
	}
	if sink == nil {
		sink = events.Discard{}
	}
	return &paymentService{
		store:     store,
		lifecycle: NewRentalLifecycle(now),
		sink:      sink,
		cache:     cache,
		now:       now,
	}
}

func (s *paymentService) RecordPayment(ctx context.Context, rentalID string, amount decimal.Decimal, method domain.PaymentMethod) (*domain.Payment, error) {
	logger.EnterMethod("paymentService.RecordPayment", "rental_id", rentalID, "method", method)

	if !amount.IsPositive() {
		err := domain.ValidationError("payment amount must be greater than zero")
		logger.ExitMethodWithError("paymentService.RecordPayment", err)
		return nil, err
	}
	if !method.Valid() {
		err := domain.ValidationError("unsupported payment method %q", method)
		logger.ExitMethodWithError("paymentService.RecordPayment", err)
		return nil, err
	}

	var payment *domain.Payment
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		rental, err := repos.Rentals().GetByID(ctx, rentalID)
		if err != nil {
			return err
		}
		if rental.Status == domain.RentalStatusCancelled {
			return domain.InvalidStateError("rental %s is cancelled", rental.ID)
		}
		payment = &domain.Payment{
			ID:            uuid.NewString(),
			RentalID:      rental.ID,
			Amount:        amount.Round(2),
			Method:        method,
			Status:        domain.PaymentStatusPending,
			TransactionID: "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16]),
		}
		return repos.Payments().Create(ctx, payment)
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.RecordPayment", err, "rental_id", rentalID)
		return nil, err
	}

	s.cache.InvalidateRental(rentalID, "")
	logger.ExitMethod("paymentService.RecordPayment", "payment_id", payment.ID)
	return payment, nil
}

// UpdatePaymentStatus applies a gateway notification. Completing a payment on
// a PENDING rental confirms the rental in the same transaction; when the
// confirmation is refused the payment still commits and the rental stays
// PENDING.
func (s *paymentService) UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus) (*domain.Payment, error) {
	logger.EnterMethod("paymentService.UpdatePaymentStatus", "payment_id", paymentID, "status", status)

	if !status.Valid() {
		err := domain.ValidationError("unknown payment status %q", status)
		logger.ExitMethodWithError("paymentService.UpdatePaymentStatus", err)
		return nil, err
	}

	var (
		payment   *domain.Payment
		vehicleID string
		emitted   []domain.RentalEvent
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		payment, err = repos.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status == status {
			return nil
		}
		if !paymentStatusAllowed(payment.Status, status) {
			return domain.InvalidStateError("payment %s cannot move from %s to %s", payment.ID, payment.Status, status)
		}
		if err := repos.Payments().UpdateStatus(ctx, payment.ID, status); err != nil {
			return err
		}
		payment.Status = status
		if status != domain.PaymentStatusCompleted {
			return nil
		}

		rental, vehicle, err := loadLocked(ctx, repos, payment.RentalID)
		if err != nil {
			return err
		}
		vehicleID = rental.VehicleID

		// payment.received takes its own slot in the rental's version sequence.
		if err := repos.Rentals().Update(ctx, rental); err != nil {
			return err
		}
		received := events.NewEvent(domain.EventPaymentReceived, rental.ID, rental.Version, s.now(), map[string]any{
			"payment_id": payment.ID,
			"amount":     payment.Amount,
			"method":     payment.Method,
		})
		if err := repos.Events().Append(ctx, &received); err != nil {
			return err
		}
		emitted = append(emitted, received)

		if rental.Status != domain.RentalStatusPending {
			return nil
		}
		confirmed, err := s.lifecycle.Apply(ctx, repos, rental, vehicle, domain.RentalStatusConfirmed,
			domain.TransitionContext{}, map[string]any{"payment_id": payment.ID})
		if err != nil {
			if errors.Is(err, domain.ErrVehicleUnavailable) {
				logger.WithRental(rental.ID).Warn("Payment completed but rental could not be confirmed", "payment_id", payment.ID, "error", err)
				return nil
			}
			return err
		}
		emitted = append(emitted, *confirmed)
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.UpdatePaymentStatus", err, "payment_id", paymentID)
		return nil, err
	}

	s.cache.InvalidateRental(payment.RentalID, vehicleID)
	for _, ev := range emitted {
		s.sink.Emit(ev)
	}

	logger.ExitMethod("paymentService.UpdatePaymentStatus", "payment_id", paymentID, "status", payment.Status)
	return payment, nil
}

func paymentStatusAllowed(from, to domain.PaymentStatus) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
