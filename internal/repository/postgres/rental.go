package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
)

var rentalColumns = []string{
	"id", "customer_id", "vehicle_id", "start_date", "end_date", "actual_return_date",
	"pickup_location", "dropoff_location", "status", "daily_rate", "total_days", "extras",
	"extras_cost", "subtotal", "discount", "tax", "total_amount", "mileage_start", "mileage_end",
	"notes", "cancellation_reason", "version", "created_on", "updated_on",
}

type rentalRepository struct {
	db dbtx
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	rt := &domain.Rental{}
	var extras string
	var status string
	err := row.Scan(&rt.ID, &rt.CustomerID, &rt.VehicleID, &rt.StartDate, &rt.EndDate, &rt.ActualReturnDate,
		&rt.PickupLocation, &rt.DropoffLocation, &status, &rt.DailyRate, &rt.TotalDays, &extras,
		&rt.ExtrasCost, &rt.Subtotal, &rt.Discount, &rt.Tax, &rt.TotalAmount, &rt.MileageStart, &rt.MileageEnd,
		&rt.Notes, &rt.CancellationReason, &rt.Version, &rt.CreatedOn, &rt.UpdatedOn)
	if err != nil {
		return nil, err
	}
	rt.Status = domain.RentalStatus(status)
	if extras != "" {
		if err := json.Unmarshal([]byte(extras), &rt.Extras); err != nil {
			return nil, errors.Wrap(err, "decode extras")
		}
	}
	return rt, nil
}

func encodeExtras(extras []string) (string, error) {
	if extras == nil {
		extras = []string{}
	}
	b, err := json.Marshal(extras)
	return string(b), err
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	logger.EnterMethod("rentalRepository.Create", "rentalID", rt.ID, "vehicleID", rt.VehicleID)

	extras, err := encodeExtras(rt.Extras)
	if err != nil {
		return wrapErr("encode extras", err)
	}
	now := time.Now().UTC()
	query := `INSERT INTO rentals (` + strings.Join(rentalColumns, ", ") + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`
	logger.DatabaseCall("INSERT", "rentals", "rentalID", rt.ID)

	_, err = r.db.ExecContext(ctx, query,
		rt.ID, rt.CustomerID, rt.VehicleID, rt.StartDate, rt.EndDate, rt.ActualReturnDate,
		rt.PickupLocation, rt.DropoffLocation, string(rt.Status), rt.DailyRate, rt.TotalDays, extras,
		rt.ExtrasCost, rt.Subtotal, rt.Discount, rt.Tax, rt.TotalAmount, rt.MileageStart, rt.MileageEnd,
		rt.Notes, rt.CancellationReason, rt.Version, now, now)
	logger.DatabaseResult("INSERT", 1, err, "rentalID", rt.ID)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.Create", err, "rentalID", rt.ID)
		return wrapErr("create rental", err)
	}
	rt.CreatedOn, rt.UpdatedOn = now, now

	logger.ExitMethod("rentalRepository.Create", "rentalID", rt.ID)
	return nil
}

func (r *rentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	query := `SELECT ` + strings.Join(rentalColumns, ", ") + ` FROM rentals WHERE id = $1`
	logger.DatabaseCall("SELECT", "rentals", "rentalID", id)

	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("rental", id)
	}
	if err != nil {
		return nil, wrapErr("get rental", err)
	}
	return rt, nil
}

func (r *rentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	logger.EnterMethod("rentalRepository.Update", "rentalID", rt.ID, "status", rt.Status, "version", rt.Version)

	query := `UPDATE rentals SET status=$1, actual_return_date=$2, mileage_start=$3, mileage_end=$4, notes=$5,
	          cancellation_reason=$6, version=version+1, updated_on=$7 WHERE id=$8 AND version=$9`
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query, string(rt.Status), rt.ActualReturnDate, rt.MileageStart, rt.MileageEnd,
		rt.Notes, rt.CancellationReason, now, rt.ID, rt.Version)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.Update", err, "rentalID", rt.ID)
		return wrapErr("update rental", err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err, "rentalID", rt.ID)
	if err != nil {
		return wrapErr("update rental", err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, rt.ID); err != nil {
			return err
		}
		return domain.InvalidStateError("rental %s was modified concurrently", rt.ID)
	}

	rt.Version++
	rt.UpdatedOn = now
	logger.ExitMethod("rentalRepository.Update", "rentalID", rt.ID, "version", rt.Version)
	return nil
}

func (r *rentalRepository) list(ctx context.Context, op string, b sq.SelectBuilder) ([]domain.Rental, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, wrapErr(op, err)
	}
	logger.DatabaseCall("SELECT", query, "op", op)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		rentals = append(rentals, *rt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	logger.DatabaseResult("SELECT", int64(len(rentals)), nil, "op", op)
	return rentals, nil
}

func statusStrings(statuses []domain.RentalStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// FindConflicting applies the half-open overlap test
// existing.start < end AND existing.end > start.
func (r *rentalRepository) FindConflicting(ctx context.Context, q repository.ConflictQuery) ([]domain.Rental, error) {
	b := psql.Select(rentalColumns...).
		From("rentals").
		Where(sq.Eq{"vehicle_id": q.VehicleID, "status": statusStrings(q.Statuses)}).
		Where(sq.Lt{"start_date": q.End}).
		Where(sq.Gt{"end_date": q.Start})
	if q.ExcludeID != "" {
		b = b.Where(sq.NotEq{"id": q.ExcludeID})
	}
	return r.list(ctx, "find conflicting rentals", b.OrderBy("start_date"))
}

func (r *rentalRepository) CountByVehicleAndStatus(ctx context.Context, vehicleID string, status domain.RentalStatus, excludeID string) (int, error) {
	b := psql.Select("count(*)").From("rentals").Where(sq.Eq{"vehicle_id": vehicleID, "status": string(status)})
	if excludeID != "" {
		b = b.Where(sq.NotEq{"id": excludeID})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, wrapErr("count rentals", err)
	}
	logger.DatabaseCall("SELECT", query, "vehicleID", vehicleID)

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrapErr("count rentals", err)
	}
	return n, nil
}

func (r *rentalRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Rental, error) {
	b := psql.Select(rentalColumns...).
		From("rentals").
		Where(sq.Eq{"status": string(domain.RentalStatusActive)}).
		Where(sq.Lt{"end_date": now}).
		OrderBy("end_date")
	return r.list(ctx, "list overdue rentals", b)
}

func (r *rentalRepository) ListStartingBetween(ctx context.Context, status domain.RentalStatus, from, to time.Time) ([]domain.Rental, error) {
	b := psql.Select(rentalColumns...).
		From("rentals").
		Where(sq.Eq{"status": string(status)}).
		Where(sq.GtOrEq{"start_date": from}).
		Where(sq.Lt{"start_date": to}).
		OrderBy("start_date")
	return r.list(ctx, "list rentals starting soon", b)
}
