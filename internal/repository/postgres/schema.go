package postgres

import (
	"context"
	"database/sql"

	"rentacar-backend/internal/logger"
)

// Schema creates the tables this service reads and writes. Money columns are
// NUMERIC so amounts round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS customers (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS vehicles (
	id            TEXT PRIMARY KEY,
	make          TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT '',
	license_plate TEXT NOT NULL DEFAULT '',
	daily_price   NUMERIC(10,2) NOT NULL CHECK (daily_price > 0),
	is_available  BOOLEAN NOT NULL DEFAULT TRUE,
	status        TEXT NOT NULL DEFAULT 'AVAILABLE'
);

CREATE TABLE IF NOT EXISTS rentals (
	id                  TEXT PRIMARY KEY,
	customer_id         TEXT NOT NULL,
	vehicle_id          TEXT NOT NULL REFERENCES vehicles(id),
	start_date          TIMESTAMPTZ NOT NULL,
	end_date            TIMESTAMPTZ NOT NULL,
	actual_return_date  TIMESTAMPTZ,
	pickup_location     TEXT NOT NULL DEFAULT '',
	dropoff_location    TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	daily_rate          NUMERIC(10,2) NOT NULL,
	total_days          INTEGER NOT NULL CHECK (total_days >= 1),
	extras              TEXT NOT NULL DEFAULT '[]',
	extras_cost         NUMERIC(10,2) NOT NULL DEFAULT 0,
	subtotal            NUMERIC(10,2) NOT NULL,
	discount            NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (discount >= 0),
	tax                 NUMERIC(10,2) NOT NULL CHECK (tax >= 0),
	total_amount        NUMERIC(10,2) NOT NULL CHECK (total_amount > 0),
	mileage_start       INTEGER,
	mileage_end         INTEGER,
	notes               TEXT NOT NULL DEFAULT '',
	cancellation_reason TEXT NOT NULL DEFAULT '',
	version             INTEGER NOT NULL DEFAULT 1,
	created_on          TIMESTAMPTZ NOT NULL,
	updated_on          TIMESTAMPTZ NOT NULL,
	CHECK (end_date > start_date),
	CHECK (mileage_end IS NULL OR mileage_start IS NULL OR mileage_end >= mileage_start),
	CHECK ((status = 'COMPLETED') = (actual_return_date IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS rentals_vehicle_window_idx ON rentals (vehicle_id, status, start_date, end_date);

CREATE TABLE IF NOT EXISTS payments (
	id             TEXT PRIMARY KEY,
	rental_id      TEXT NOT NULL REFERENCES rentals(id),
	amount         NUMERIC(10,2) NOT NULL CHECK (amount > 0),
	method         TEXT NOT NULL,
	status         TEXT NOT NULL,
	transaction_id TEXT NOT NULL,
	created_on     TIMESTAMPTZ NOT NULL,
	updated_on     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS rental_events (
	id          TEXT PRIMARY KEY,
	rental_id   TEXT NOT NULL REFERENCES rentals(id),
	version     INTEGER NOT NULL,
	event_type  TEXT NOT NULL,
	payload     JSONB NOT NULL DEFAULT '{}',
	occurred_at TIMESTAMPTZ NOT NULL,
	UNIQUE (rental_id, version)
);
`

// EnsureSchema applies Schema. Safe to run on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	logger.DatabaseCall("EXEC", "schema")
	_, err := db.ExecContext(ctx, Schema)
	logger.DatabaseResult("EXEC", 0, err)
	return wrapErr("apply schema", err)
}
