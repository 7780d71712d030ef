package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository/memory"
	"rentacar-backend/internal/service"
	"rentacar-backend/internal/utils"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Emit(ev domain.RentalEvent) {
	m.Called(ev)
}

func (m *MockSink) emittedTypes() []domain.EventType {
	var out []domain.EventType
	for _, call := range m.Calls {
		out = append(out, call.Arguments.Get(0).(domain.RentalEvent).Type)
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store    *memory.Store
	sink     *MockSink
	clock    *testClock
	cache    *service.ReadCache
	rentals  service.ReservationService
	payments service.PaymentService
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(n int) time.Time { return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC) }

func intPtr(n int) *int { return &n }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutVehicle(domain.Vehicle{
		ID:           "car-1",
		Make:         "Toyota",
		Model:        "Corolla",
		LicensePlate: "ABC-1234",
		DailyPrice:   d("150.00"),
		IsAvailable:  true,
		Status:       domain.VehicleStatusAvailable,
	})
	store.PutCustomer(domain.Customer{ID: "cust-1", Name: "Ana Lima", Email: "ana@example.com"})

	sink := new(MockSink)
	sink.On("Emit", mock.Anything).Return()
	clock := &testClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	cache := service.NewReadCache(time.Minute, time.Minute)
	pricing := utils.NewPricingCalculator(d("0.10"), map[string]decimal.Decimal{"insurance": d("10.00")})

	return &fixture{
		store:    store,
		sink:     sink,
		clock:    clock,
		cache:    cache,
		rentals:  service.NewReservationService(store, pricing, service.DefaultPolicy(), sink, cache, clock.Now),
		payments: service.NewPaymentService(store, sink, cache, clock.Now),
	}
}

func (f *fixture) request(start, end time.Time, extras ...string) service.CreateRentalRequest {
	return service.CreateRentalRequest{
		CustomerID:      "cust-1",
		VehicleID:       "car-1",
		StartDate:       start,
		EndDate:         end,
		PickupLocation:  "Airport",
		DropoffLocation: "Downtown",
		Extras:          extras,
	}
}

// seed stores a rental directly, bypassing the create path.
func (f *fixture) seed(t *testing.T, id string, status domain.RentalStatus, start, end time.Time, total string) *domain.Rental {
	t.Helper()
	r := &domain.Rental{
		ID:          id,
		CustomerID:  "cust-1",
		VehicleID:   "car-1",
		StartDate:   start,
		EndDate:     end,
		Status:      status,
		DailyRate:   d("150.00"),
		TotalDays:   utils.DurationDays(start, end),
		Subtotal:    d(total),
		TotalAmount: d(total),
		Version:     1,
	}
	require.NoError(t, f.store.Rentals().Create(context.Background(), r))
	return r
}
