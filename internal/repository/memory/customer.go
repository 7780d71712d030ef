package memory

import (
	"context"

	"rentacar-backend/internal/domain"
)

type customerRepository struct {
	*repos
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.read(func(s *state) error {
		c, ok := s.customers[id]
		if !ok {
			return domain.NotFoundError("customer", id)
		}
		cc := *c
		out = &cc
		return nil
	})
	return out, err
}
