package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
)

type paymentRepository struct {
	db dbtx
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (id, rental_id, amount, method, status, transaction_id, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	logger.DatabaseCall("INSERT", "payments", "paymentID", p.ID, "rentalID", p.RentalID)

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query, p.ID, p.RentalID, p.Amount, string(p.Method), string(p.Status), p.TransactionID, now, now)
	logger.DatabaseResult("INSERT", 1, err, "paymentID", p.ID)
	if err != nil {
		return wrapErr("create payment", err)
	}
	p.CreatedOn, p.UpdatedOn = now, now
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT id, rental_id, amount, method, status, transaction_id, created_on, updated_on FROM payments WHERE id = $1`
	p := &domain.Payment{}
	var method, status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.RentalID, &p.Amount, &method, &status, &p.TransactionID, &p.CreatedOn, &p.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("payment", id)
	}
	if err != nil {
		return nil, wrapErr("get payment", err)
	}
	p.Method, p.Status = domain.PaymentMethod(method), domain.PaymentStatus(status)
	return p, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	query := `UPDATE payments SET status=$1, updated_on=$2 WHERE id=$3`
	res, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		return wrapErr("update payment status", err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err, "paymentID", id)
	if err != nil {
		return wrapErr("update payment status", err)
	}
	if n == 0 {
		return domain.NotFoundError("payment", id)
	}
	return nil
}

func (r *paymentRepository) ListByRental(ctx context.Context, rentalID string) ([]domain.Payment, error) {
	query := `SELECT id, rental_id, amount, method, status, transaction_id, created_on, updated_on
	          FROM payments WHERE rental_id = $1 ORDER BY created_on`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, wrapErr("list payments", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var method, status string
		if err := rows.Scan(&p.ID, &p.RentalID, &p.Amount, &method, &status, &p.TransactionID, &p.CreatedOn, &p.UpdatedOn); err != nil {
			return nil, wrapErr("list payments", err)
		}
		p.Method, p.Status = domain.PaymentMethod(method), domain.PaymentStatus(status)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list payments", err)
	}
	return payments, nil
}

func (r *paymentRepository) SumCompleted(ctx context.Context, rentalID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE rental_id = $1 AND status = $2`
	logger.DatabaseCall("SELECT", "payments", "rentalID", rentalID)

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, rentalID, string(domain.PaymentStatusCompleted)).Scan(&total); err != nil {
		return decimal.Zero, wrapErr("sum completed payments", err)
	}
	return total, nil
}
