package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func rentalRow(id, status string, start, end time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(rentalColumns).AddRow(
		id, "cust-1", "veh-1", start, end, nil,
		"Airport", "Downtown", status, "150.00", 3, `["insurance"]`,
		"30.00", "480.00", "0.00", "48.00", "528.00", nil, nil,
		"", "", 1, now, now)
}

func TestRentalRepository_Create(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	rental := &domain.Rental{
		ID:          "r-1",
		CustomerID:  "cust-1",
		VehicleID:   "veh-1",
		StartDate:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC),
		Status:      domain.RentalStatusPending,
		DailyRate:   decimal.RequireFromString("150.00"),
		TotalDays:   3,
		Extras:      []string{"insurance"},
		Subtotal:    decimal.RequireFromString("480.00"),
		Tax:         decimal.RequireFromString("48.00"),
		TotalAmount: decimal.RequireFromString("528.00"),
		Version:     1,
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO rentals").
			WithArgs("r-1", "cust-1", "veh-1", rental.StartDate, rental.EndDate, nil,
				"", "", "PENDING", sqlmock.AnyArg(), 3, `["insurance"]`,
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil, nil,
				"", "", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.Rentals().Create(ctx, rental)
		assert.NoError(t, err)
		assert.False(t, rental.CreatedOn.IsZero())
	})

	t.Run("Driver error becomes StorageError", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO rentals").WillReturnError(&pq.Error{Code: "23503", Message: "fk violation"})

		err := store.Rentals().Create(ctx, rental)
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.Contains(t, err.Error(), "sqlstate 23503")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_GetByID(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM rentals WHERE id = \\$1").
			WithArgs("r-1").
			WillReturnRows(rentalRow("r-1", "CONFIRMED", start, start.AddDate(0, 0, 3)))

		rt, err := store.Rentals().GetByID(ctx, "r-1")
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusConfirmed, rt.Status)
		assert.Equal(t, []string{"insurance"}, rt.Extras)
		assert.True(t, rt.TotalAmount.Equal(decimal.RequireFromString("528")))
		assert.Nil(t, rt.MileageStart)
		assert.Nil(t, rt.ActualReturnDate)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM rentals WHERE id = \\$1").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(rentalColumns))

		_, err := store.Rentals().GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_Update(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("Success bumps version", func(t *testing.T) {
		rt := &domain.Rental{ID: "r-1", Status: domain.RentalStatusConfirmed, Version: 1}
		mock.ExpectExec("UPDATE rentals SET status=\\$1").
			WithArgs("CONFIRMED", nil, nil, nil, "", "", sqlmock.AnyArg(), "r-1", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.Rentals().Update(ctx, rt))
		assert.Equal(t, 2, rt.Version)
	})

	t.Run("Stale version", func(t *testing.T) {
		rt := &domain.Rental{ID: "r-1", Status: domain.RentalStatusActive, Version: 1}
		mock.ExpectExec("UPDATE rentals").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM rentals WHERE id = \\$1").
			WithArgs("r-1").
			WillReturnRows(rentalRow("r-1", "CONFIRMED", start, start.AddDate(0, 0, 3)))

		err := store.Rentals().Update(ctx, rt)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		assert.Equal(t, 1, rt.Version)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_FindConflicting(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM rentals WHERE \\(?status IN \\(\\$1,\\$2\\) AND vehicle_id = \\$3\\)? AND start_date < \\$4 AND end_date > \\$5 AND id <> \\$6 ORDER BY start_date").
		WithArgs("CONFIRMED", "ACTIVE", "veh-1", end, start, "r-9").
		WillReturnRows(rentalRow("r-1", "CONFIRMED", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))

	got, err := store.Rentals().FindConflicting(ctx, repository.ConflictQuery{
		VehicleID: "veh-1",
		Start:     start,
		End:       end,
		Statuses:  domain.BlockingStatuses,
		ExcludeID: "r-9",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r-1", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	t.Run("GetForUpdate locks the row", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM vehicles WHERE id = \\$1 FOR UPDATE").
			WithArgs("veh-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "make", "model", "license_plate", "daily_price", "is_available", "status"}).
				AddRow("veh-1", "Toyota", "Corolla", "ABC-1234", "150.00", true, "AVAILABLE"))

		v, err := store.Vehicles().GetForUpdate(ctx, "veh-1")
		require.NoError(t, err)
		assert.True(t, v.IsAvailable)
		assert.Equal(t, domain.VehicleStatusAvailable, v.Status)
	})

	t.Run("SetAvailability", func(t *testing.T) {
		mock.ExpectExec("UPDATE vehicles SET is_available = \\$1, status = \\$2 WHERE id = \\$3").
			WithArgs(false, "RENTED", "veh-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.Vehicles().SetAvailability(ctx, "veh-1", false, domain.VehicleStatusRented))
	})

	t.Run("SetAvailability unknown vehicle", func(t *testing.T) {
		mock.ExpectExec("UPDATE vehicles").WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Vehicles().SetAvailability(ctx, "nope", true, domain.VehicleStatusAvailable)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_SumCompleted(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM payments").
		WithArgs("r-1", "COMPLETED").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("250.50"))

	total, err := store.Payments().SumCompleted(context.Background(), "r-1")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("250.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commits on success", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE vehicles").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			return repos.Vehicles().SetAvailability(ctx, "veh-1", false, domain.VehicleStatusRented)
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rolls back on error", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE vehicles").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			if err := repos.Vehicles().SetAvailability(ctx, "veh-1", false, domain.VehicleStatusRented); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_AppendDuplicate(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO rental_events").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := store.Events().Append(context.Background(), &domain.RentalEvent{
		ID: "e-1", RentalID: "r-1", Version: 2, Type: domain.EventRentalConfirmed, OccurredAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.True(t, isUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
