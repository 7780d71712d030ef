package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"rentacar-backend/internal/domain"
)

type customerRepository struct {
	db dbtx
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `SELECT id, name, email, phone FROM customers WHERE id = $1`
	c := &domain.Customer{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("customer", id)
	}
	if err != nil {
		return nil, wrapErr("get customer", err)
	}
	return c, nil
}
