package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
)

type vehicleRepository struct {
	db dbtx
}

const vehicleSelect = `SELECT id, make, model, license_plate, daily_price, is_available, status FROM vehicles WHERE id = $1`

func (r *vehicleRepository) get(ctx context.Context, query, id string) (*domain.Vehicle, error) {
	logger.DatabaseCall("SELECT", query, "vehicleID", id)
	v := &domain.Vehicle{}
	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Make, &v.Model, &v.LicensePlate, &v.DailyPrice, &v.IsAvailable, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("vehicle", id)
	}
	if err != nil {
		return nil, wrapErr("get vehicle", err)
	}
	v.Status = domain.VehicleStatus(status)
	return v, nil
}

func (r *vehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	return r.get(ctx, vehicleSelect, id)
}

// GetForUpdate takes the vehicle row lock. Every booking and transition for
// the vehicle queues behind it until commit.
func (r *vehicleRepository) GetForUpdate(ctx context.Context, id string) (*domain.Vehicle, error) {
	return r.get(ctx, vehicleSelect+` FOR UPDATE`, id)
}

func (r *vehicleRepository) SetAvailability(ctx context.Context, id string, available bool, status domain.VehicleStatus) error {
	query, args, err := psql.Update("vehicles").
		Set("is_available", available).
		Set("status", string(status)).
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return wrapErr("set vehicle availability", err)
	}
	logger.DatabaseCall("UPDATE", query, "vehicleID", id, "available", available, "status", status)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapErr("set vehicle availability", err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err, "vehicleID", id)
	if err != nil {
		return wrapErr("set vehicle availability", err)
	}
	if n == 0 {
		return domain.NotFoundError("vehicle", id)
	}
	return nil
}
