package memory

import (
	"context"
	"sync"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
)

type state struct {
	rentals   map[string]*domain.Rental
	vehicles  map[string]*domain.Vehicle
	payments  map[string]*domain.Payment
	customers map[string]*domain.Customer
	events    map[string][]domain.RentalEvent
}

func newState() *state {
	return &state{
		rentals:   make(map[string]*domain.Rental),
		vehicles:  make(map[string]*domain.Vehicle),
		payments:  make(map[string]*domain.Payment),
		customers: make(map[string]*domain.Customer),
		events:    make(map[string][]domain.RentalEvent),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, r := range s.rentals {
		c.rentals[id] = r.Clone()
	}
	for id, v := range s.vehicles {
		vc := *v
		c.vehicles[id] = &vc
	}
	for id, p := range s.payments {
		pc := *p
		c.payments[id] = &pc
	}
	for id, cu := range s.customers {
		cc := *cu
		c.customers[id] = &cc
	}
	for id, evs := range s.events {
		c.events[id] = append([]domain.RentalEvent(nil), evs...)
	}
	return c
}

// Store keeps everything in process memory. Transactions run one at a time
// against a private copy that replaces the live state on commit, which gives
// the same all-or-nothing and check-then-insert guarantees as the SQL store.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
	*repos
}

func NewStore() *Store {
	s := &Store{data: newState()}
	s.repos = &repos{store: s}
	return s
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &repos{store: s, tx: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domain.StorageError("commit transaction", err)
	}

	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

// PutVehicle and PutCustomer stand in for the external inventory and
// identity systems. They serialize with transactions so a commit cannot
// overwrite them with an older snapshot.
func (s *Store) PutVehicle(v domain.Vehicle) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.vehicles[v.ID] = &v
}

func (s *Store) PutCustomer(c domain.Customer) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.customers[c.ID] = &c
}

// repos binds the repository implementations either to the live state or to
// a transaction's working copy.
type repos struct {
	store *Store
	tx    *state
}

func (r *repos) read(fn func(*state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return fn(r.store.data)
}

// write outside a transaction still waits for any running transaction so its
// commit cannot overwrite the change.
func (r *repos) write(fn func(*state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.data)
}

func (r *repos) Rentals() repository.RentalRepository     { return &rentalRepository{r} }
func (r *repos) Vehicles() repository.VehicleRepository   { return &vehicleRepository{r} }
func (r *repos) Payments() repository.PaymentRepository   { return &paymentRepository{r} }
func (r *repos) Customers() repository.CustomerRepository { return &customerRepository{r} }
func (r *repos) Events() repository.EventRepository       { return &eventRepository{r} }
