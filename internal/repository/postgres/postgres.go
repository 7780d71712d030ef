package postgres

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
)

const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"

	codeUniqueViolation = "23505"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repos struct {
	db dbtx
}

func (r *repos) Rentals() repository.RentalRepository     { return &rentalRepository{db: r.db} }
func (r *repos) Vehicles() repository.VehicleRepository   { return &vehicleRepository{db: r.db} }
func (r *repos) Payments() repository.PaymentRepository   { return &paymentRepository{db: r.db} }
func (r *repos) Customers() repository.CustomerRepository { return &customerRepository{db: r.db} }
func (r *repos) Events() repository.EventRepository       { return &eventRepository{db: r.db} }

type Store struct {
	db *sql.DB
	*repos
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		repos: &repos{db: db},
	}
}

// Open connects with lib/pq ("postgres") or pgx ("pgx") and verifies the
// connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver == "" {
		driver = DriverPQ
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s connection", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// WithinTx runs fn inside one database transaction, rolling back on error or
// panic.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	logger.DatabaseCall("BEGIN", "transaction")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Error("Failed to roll back transaction", "error", rbErr)
			}
		}
	}()

	if err = fn(ctx, &repos{db: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return wrapErr("commit transaction", err)
	}
	logger.DatabaseResult("COMMIT", 0, nil)
	return nil
}

// pgCode extracts the SQLSTATE from either driver's error type.
func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// wrapErr turns a driver failure into a StorageError carrying the operation
// and stack.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	if code := pgCode(err); code != "" {
		return domain.StorageError(op, errors.Wrapf(err, "sqlstate %s", code))
	}
	return domain.StorageError(op, errors.WithStack(err))
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}
