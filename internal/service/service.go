package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/utils"
)

// Clock returns the current time. Injected so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

type CreateRentalRequest struct {
	CustomerID      string
	VehicleID       string
	StartDate       time.Time
	EndDate         time.Time
	PickupLocation  string
	DropoffLocation string
	Discount        decimal.Decimal
	Extras          []string
	Notes           string
}

type ReservationService interface {
	CreateRental(ctx context.Context, req CreateRentalRequest) (*domain.Rental, error)
	CancelRental(ctx context.Context, rentalID, reason string) (*domain.CancellationResult, error)
	UpdateStatus(ctx context.Context, rentalID string, status domain.RentalStatus, tc domain.TransitionContext) (*domain.Rental, error)
	CalculateLateFees(ctx context.Context, rentalID string) (*domain.LateFeeResult, error)
	GetSummary(ctx context.Context, rentalID string) (*domain.RentalSummary, error)
	GetRental(ctx context.Context, rentalID string) (*domain.Rental, error)
	GetRentalHistory(ctx context.Context, rentalID string) ([]domain.RentalEvent, error)
	IsAvailable(ctx context.Context, vehicleID string, start, end time.Time) (bool, error)
	ListOverdue(ctx context.Context) ([]domain.Rental, error)
	ListStartingWithin(ctx context.Context, window time.Duration) ([]domain.Rental, error)
}

type PaymentService interface {
	RecordPayment(ctx context.Context, rentalID string, amount decimal.Decimal, method domain.PaymentMethod) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus) (*domain.Payment, error)
}

type EmailService interface {
	SendOverdueNotice(ctx context.Context, customer *domain.Customer, rental *domain.Rental, fee *domain.LateFeeResult) error
	SendPickupReminder(ctx context.Context, customer *domain.Customer, rental *domain.Rental) error
}

// Policy holds the business rules that are configuration rather than code.
type Policy struct {
	MinRentalDays int
	MaxRentalDays int
	LateFeePerDay decimal.Decimal
	RefundTiers   []utils.RefundTier
}

func DefaultPolicy() Policy {
	return Policy{
		MinRentalDays: 1,
		MaxRentalDays: 365,
		LateFeePerDay: decimal.RequireFromString("50.00"),
		RefundTiers:   utils.DefaultRefundTiers,
	}
}
