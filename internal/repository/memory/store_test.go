package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestStore_WithinTxRollsBack(t *testing.T) {
	s := NewStore()
	s.PutVehicle(domain.Vehicle{ID: "v1", DailyPrice: decimal.NewFromInt(50), IsAvailable: true, Status: domain.VehicleStatusAvailable})
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		require.NoError(t, repos.Rentals().Create(ctx, &domain.Rental{ID: "r1", VehicleID: "v1", Status: domain.RentalStatusPending, Version: 1}))
		require.NoError(t, repos.Vehicles().SetAvailability(ctx, "v1", false, domain.VehicleStatusRented))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Rentals().GetByID(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	v, err := s.Vehicles().GetByID(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, v.IsAvailable)
	assert.Equal(t, domain.VehicleStatusAvailable, v.Status)
}

func TestStore_WithinTxCommits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Rentals().Create(ctx, &domain.Rental{ID: "r1", VehicleID: "v1", Status: domain.RentalStatusPending, Version: 1})
	})
	require.NoError(t, err)

	rt, err := s.Rentals().GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusPending, rt.Status)
}

func TestStore_PutDuringTxSurvivesCommit(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			close(started)
			<-release
			return repos.Rentals().Create(ctx, &domain.Rental{ID: "r1", VehicleID: "v1", Status: domain.RentalStatusPending, Version: 1})
		})
	}()
	<-started

	putDone := make(chan struct{})
	go func() {
		s.PutVehicle(domain.Vehicle{ID: "v2", DailyPrice: decimal.NewFromInt(70), IsAvailable: true, Status: domain.VehicleStatusAvailable})
		s.PutCustomer(domain.Customer{ID: "c1", Name: "Ana Lima"})
		close(putDone)
	}()

	select {
	case <-putDone:
		t.Fatal("put completed while a transaction was open")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-txDone)
	<-putDone

	_, err := s.Rentals().GetByID(ctx, "r1")
	assert.NoError(t, err)
	_, err = s.Vehicles().GetByID(ctx, "v2")
	assert.NoError(t, err)
	_, err = s.Customers().GetByID(ctx, "c1")
	assert.NoError(t, err)
}

func TestRentalRepository_Update(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	rt := &domain.Rental{ID: "r1", VehicleID: "v1", Status: domain.RentalStatusPending, Version: 1}
	require.NoError(t, s.Rentals().Create(ctx, rt))

	t.Run("Bumps version", func(t *testing.T) {
		rt.Status = domain.RentalStatusConfirmed
		require.NoError(t, s.Rentals().Update(ctx, rt))
		assert.Equal(t, 2, rt.Version)
	})

	t.Run("Stale version rejected", func(t *testing.T) {
		stale := rt.Clone()
		stale.Version = 1
		err := s.Rentals().Update(ctx, stale)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("Stored copy is isolated from caller", func(t *testing.T) {
		rt.Notes = "changed locally"
		got, err := s.Rentals().GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Empty(t, got.Notes)
	})
}

func TestRentalRepository_FindConflicting(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for _, rt := range []*domain.Rental{
		{ID: "a", VehicleID: "v1", StartDate: day(10), EndDate: day(15), Status: domain.RentalStatusConfirmed},
		{ID: "b", VehicleID: "v1", StartDate: day(20), EndDate: day(22), Status: domain.RentalStatusCancelled},
		{ID: "c", VehicleID: "v2", StartDate: day(10), EndDate: day(15), Status: domain.RentalStatusActive},
	} {
		require.NoError(t, s.Rentals().Create(ctx, rt))
	}

	cases := []struct {
		name  string
		q     repository.ConflictQuery
		count int
	}{
		{"inside window", repository.ConflictQuery{VehicleID: "v1", Start: day(12), End: day(14), Statuses: domain.BlockingStatuses}, 1},
		{"touching end", repository.ConflictQuery{VehicleID: "v1", Start: day(15), End: day(18), Statuses: domain.BlockingStatuses}, 0},
		{"touching start", repository.ConflictQuery{VehicleID: "v1", Start: day(5), End: day(10), Statuses: domain.BlockingStatuses}, 0},
		{"cancelled ignored", repository.ConflictQuery{VehicleID: "v1", Start: day(20), End: day(21), Statuses: domain.BlockingStatuses}, 0},
		{"excluded self", repository.ConflictQuery{VehicleID: "v1", Start: day(12), End: day(14), Statuses: domain.BlockingStatuses, ExcludeID: "a"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Rentals().FindConflicting(ctx, tc.q)
			require.NoError(t, err)
			assert.Len(t, got, tc.count)
		})
	}
}

func TestEventRepository_DuplicateVersion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Events().Append(ctx, &domain.RentalEvent{ID: "e1", RentalID: "r1", Version: 1, Type: domain.EventRentalCreated}))
	err := s.Events().Append(ctx, &domain.RentalEvent{ID: "e2", RentalID: "r1", Version: 1, Type: domain.EventRentalConfirmed})
	assert.ErrorIs(t, err, domain.ErrStorage)

	evs, err := s.Events().ListByRental(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, evs, 1)
}

func TestPaymentRepository_SumCompleted(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Payments().Create(ctx, &domain.Payment{ID: "p1", RentalID: "r1", Amount: decimal.RequireFromString("100.50"), Status: domain.PaymentStatusCompleted}))
	require.NoError(t, s.Payments().Create(ctx, &domain.Payment{ID: "p2", RentalID: "r1", Amount: decimal.RequireFromString("40"), Status: domain.PaymentStatusPending}))
	require.NoError(t, s.Payments().UpdateStatus(ctx, "p2", domain.PaymentStatusCompleted))

	sum, err := s.Payments().SumCompleted(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("140.50")))
}

func TestLoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	content := `
vehicles:
  - id: car-1
    make: Toyota
    model: Corolla
    daily_price: "45.00"
  - id: car-2
    daily_price: "80"
    status: MAINTENANCE
customers:
  - id: cust-1
    name: Ana
    email: ana@example.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s := NewStore()
	require.NoError(t, s.LoadFixtures(path))
	ctx := context.Background()

	v, err := s.Vehicles().GetByID(ctx, "car-1")
	require.NoError(t, err)
	assert.True(t, v.IsAvailable)
	assert.True(t, v.DailyPrice.Equal(decimal.RequireFromString("45")))

	v, err = s.Vehicles().GetByID(ctx, "car-2")
	require.NoError(t, err)
	assert.False(t, v.IsAvailable)

	c, err := s.Customers().GetByID(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", c.Email)
}
