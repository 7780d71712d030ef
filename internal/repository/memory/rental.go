package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
)

type rentalRepository struct {
	*repos
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	return r.write(func(s *state) error {
		if _, ok := s.rentals[rt.ID]; ok {
			return domain.StorageError("create rental", domain.InvalidStateError("rental %s already exists", rt.ID))
		}
		now := time.Now().UTC()
		rt.CreatedOn, rt.UpdatedOn = now, now
		s.rentals[rt.ID] = rt.Clone()
		return nil
	})
}

func (r *rentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	var out *domain.Rental
	err := r.read(func(s *state) error {
		rt, ok := s.rentals[id]
		if !ok {
			return domain.NotFoundError("rental", id)
		}
		out = rt.Clone()
		return nil
	})
	return out, err
}

func (r *rentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	return r.write(func(s *state) error {
		stored, ok := s.rentals[rt.ID]
		if !ok {
			return domain.NotFoundError("rental", rt.ID)
		}
		if stored.Version != rt.Version {
			return domain.InvalidStateError("rental %s was modified concurrently", rt.ID)
		}
		rt.Version++
		rt.UpdatedOn = time.Now().UTC()
		s.rentals[rt.ID] = rt.Clone()
		return nil
	})
}

func (r *rentalRepository) FindConflicting(ctx context.Context, q repository.ConflictQuery) ([]domain.Rental, error) {
	var out []domain.Rental
	err := r.read(func(s *state) error {
		for _, rt := range s.rentals {
			if rt.VehicleID != q.VehicleID || rt.ID == q.ExcludeID {
				continue
			}
			if !slices.Contains(q.Statuses, rt.Status) || !rt.Overlaps(q.Start, q.End) {
				continue
			}
			out = append(out, *rt.Clone())
		}
		return nil
	})
	sortByStart(out)
	return out, err
}

func (r *rentalRepository) CountByVehicleAndStatus(ctx context.Context, vehicleID string, status domain.RentalStatus, excludeID string) (int, error) {
	n := 0
	err := r.read(func(s *state) error {
		for _, rt := range s.rentals {
			if rt.VehicleID == vehicleID && rt.Status == status && rt.ID != excludeID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *rentalRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Rental, error) {
	var out []domain.Rental
	err := r.read(func(s *state) error {
		for _, rt := range s.rentals {
			if rt.Status == domain.RentalStatusActive && rt.EndDate.Before(now) {
				out = append(out, *rt.Clone())
			}
		}
		return nil
	})
	sortByStart(out)
	return out, err
}

func (r *rentalRepository) ListStartingBetween(ctx context.Context, status domain.RentalStatus, from, to time.Time) ([]domain.Rental, error) {
	var out []domain.Rental
	err := r.read(func(s *state) error {
		for _, rt := range s.rentals {
			if rt.Status == status && !rt.StartDate.Before(from) && rt.StartDate.Before(to) {
				out = append(out, *rt.Clone())
			}
		}
		return nil
	})
	sortByStart(out)
	return out, err
}

func sortByStart(rs []domain.Rental) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].StartDate.Equal(rs[j].StartDate) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].StartDate.Before(rs[j].StartDate)
	})
}
