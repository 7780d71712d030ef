package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"rentacar-backend/internal/domain"
)

type paymentRepository struct {
	*repos
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return r.write(func(s *state) error {
		now := time.Now().UTC()
		p.CreatedOn, p.UpdatedOn = now, now
		pc := *p
		s.payments[p.ID] = &pc
		return nil
	})
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.read(func(s *state) error {
		p, ok := s.payments[id]
		if !ok {
			return domain.NotFoundError("payment", id)
		}
		pc := *p
		out = &pc
		return nil
	})
	return out, err
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	return r.write(func(s *state) error {
		p, ok := s.payments[id]
		if !ok {
			return domain.NotFoundError("payment", id)
		}
		p.Status = status
		p.UpdatedOn = time.Now().UTC()
		return nil
	})
}

func (r *paymentRepository) ListByRental(ctx context.Context, rentalID string) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.read(func(s *state) error {
		for _, p := range s.payments {
			if p.RentalID == rentalID {
				out = append(out, *p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedOn.Before(out[j].CreatedOn) })
	return out, err
}

func (r *paymentRepository) SumCompleted(ctx context.Context, rentalID string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.read(func(s *state) error {
		for _, p := range s.payments {
			if p.RentalID == rentalID && p.Status == domain.PaymentStatusCompleted {
				total = total.Add(p.Amount)
			}
		}
		return nil
	})
	return total, err
}
