package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rentacar-backend/internal/domain"
)

// ConflictQuery selects rentals on one vehicle whose [start, end) window
// overlaps the given one.
type ConflictQuery struct {
	VehicleID string
	Start     time.Time
	End       time.Time
	Statuses  []domain.RentalStatus
	ExcludeID string
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id string) (*domain.Rental, error)
	// Update persists the rental if its stored version still equals
	// rental.Version, then increments rental.Version.
	Update(ctx context.Context, rental *domain.Rental) error
	FindConflicting(ctx context.Context, q ConflictQuery) ([]domain.Rental, error)
	CountByVehicleAndStatus(ctx context.Context, vehicleID string, status domain.RentalStatus, excludeID string) (int, error)
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Rental, error)
	ListStartingBetween(ctx context.Context, status domain.RentalStatus, from, to time.Time) ([]domain.Rental, error)
}

type VehicleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
	// GetForUpdate reads the vehicle and holds its row lock until the
	// surrounding transaction ends. Serializes all bookings for the vehicle.
	GetForUpdate(ctx context.Context, id string) (*domain.Vehicle, error)
	SetAvailability(ctx context.Context, id string, available bool, status domain.VehicleStatus) error
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error
	ListByRental(ctx context.Context, rentalID string) ([]domain.Payment, error)
	SumCompleted(ctx context.Context, rentalID string) (decimal.Decimal, error)
}

type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
}

type EventRepository interface {
	// Append fails if (RentalID, Version) already exists.
	Append(ctx context.Context, event *domain.RentalEvent) error
	ListByRental(ctx context.Context, rentalID string) ([]domain.RentalEvent, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Rentals() RentalRepository
	Vehicles() VehicleRepository
	Payments() PaymentRepository
	Customers() CustomerRepository
	Events() EventRepository
}

// Store is the transactional boundary. Work done through the Repositories
// passed to fn commits together or not at all.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
