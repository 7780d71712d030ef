package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentacar-backend/internal/config"
	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository/memory"
	"rentacar-backend/internal/service"
)

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendOverdueNotice(ctx context.Context, customer *domain.Customer, rental *domain.Rental, fee *domain.LateFeeResult) error {
	args := m.Called(ctx, customer, rental, fee)
	return args.Error(0)
}

func (m *MockEmailService) SendPickupReminder(ctx context.Context, customer *domain.Customer, rental *domain.Rental) error {
	args := m.Called(ctx, customer, rental)
	return args.Error(0)
}

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newRunner(t *testing.T) (*JobRunner, *memory.Store, *MockEmailService) {
	t.Helper()
	store := memory.NewStore()
	store.PutVehicle(domain.Vehicle{ID: "car-1", DailyPrice: decimal.RequireFromString("100.00"), IsAvailable: true, Status: domain.VehicleStatusAvailable})
	store.PutCustomer(domain.Customer{ID: "cust-1", Name: "Ana Lima", Email: "ana@example.com"})

	email := new(MockEmailService)
	reservations := service.NewReservationService(store, nil, service.DefaultPolicy(), nil, nil, func() time.Time { return now })
	cfg := &config.Config{Policy: config.PolicyConfig{ReminderLead: 24 * time.Hour}}

	return NewJobRunner(&Services{
		Email:        email,
		Reservations: reservations,
		Customers:    store.Customers(),
	}, cfg), store, email
}

func seed(t *testing.T, store *memory.Store, id, customerID string, status domain.RentalStatus, start, end time.Time) {
	t.Helper()
	require.NoError(t, store.Rentals().Create(context.Background(), &domain.Rental{
		ID:          id,
		CustomerID:  customerID,
		VehicleID:   "car-1",
		StartDate:   start,
		EndDate:     end,
		Status:      status,
		TotalAmount: decimal.RequireFromString("300.00"),
		Version:     1,
	}))
}

func TestCheckOverdueRentals(t *testing.T) {
	jr, store, email := newRunner(t)
	ctx := context.Background()
	seed(t, store, "late", "cust-1", domain.RentalStatusActive, now.Add(-96*time.Hour), now.Add(-50*time.Hour))
	seed(t, store, "orphan", "cust-404", domain.RentalStatusActive, now.Add(-96*time.Hour), now.Add(-50*time.Hour))
	seed(t, store, "on-time", "cust-1", domain.RentalStatusActive, now.Add(-24*time.Hour), now.Add(24*time.Hour))

	email.On("SendOverdueNotice", mock.Anything, mock.Anything,
		mock.MatchedBy(func(r *domain.Rental) bool { return r.ID == "late" }),
		mock.MatchedBy(func(f *domain.LateFeeResult) bool {
			return f.LateDays == 2 && f.LateFee.Equal(decimal.RequireFromString("100.00"))
		}),
	).Return(nil).Once()

	assert.Equal(t, 1, jr.checkOverdueRentals(ctx))
	// Same late day: nothing resent.
	assert.Equal(t, 0, jr.checkOverdueRentals(ctx))

	email.AssertExpectations(t)
}

func TestCheckOverdueRentals_SendFailureRetriesNextRun(t *testing.T) {
	jr, store, email := newRunner(t)
	ctx := context.Background()
	seed(t, store, "late", "cust-1", domain.RentalStatusActive, now.Add(-96*time.Hour), now.Add(-50*time.Hour))

	email.On("SendOverdueNotice", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("sendgrid down")).Once()
	email.On("SendOverdueNotice", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	assert.Equal(t, 0, jr.checkOverdueRentals(ctx))
	assert.Equal(t, 1, jr.checkOverdueRentals(ctx))
	email.AssertExpectations(t)
}

func TestSendPickupReminders(t *testing.T) {
	jr, store, email := newRunner(t)
	ctx := context.Background()
	seed(t, store, "tomorrow", "cust-1", domain.RentalStatusConfirmed, now.Add(20*time.Hour), now.Add(68*time.Hour))
	seed(t, store, "next-week", "cust-1", domain.RentalStatusConfirmed, now.Add(7*24*time.Hour), now.Add(9*24*time.Hour))
	seed(t, store, "unpaid", "cust-1", domain.RentalStatusPending, now.Add(10*time.Hour), now.Add(12*time.Hour))

	email.On("SendPickupReminder", mock.Anything,
		mock.MatchedBy(func(c *domain.Customer) bool { return c.Email == "ana@example.com" }),
		mock.MatchedBy(func(r *domain.Rental) bool { return r.ID == "tomorrow" }),
	).Return(nil).Once()

	assert.Equal(t, 1, jr.sendPickupReminders(ctx))
	assert.Equal(t, 0, jr.sendPickupReminders(ctx))
	email.AssertExpectations(t)
}

func TestRunWithRecovery(t *testing.T) {
	jr, _, _ := newRunner(t)
	assert.NotPanics(t, func() {
		jr.runWithRecovery("Boom", func() { panic("boom") })
	})
}
