package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the full DDL for a fresh database. Statements are idempotent so
// Migrate can run at startup and in test setup.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		address     TEXT PRIMARY KEY,
		balance     BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS registries (
		id          UUID PRIMARY KEY,
		management  TEXT NOT NULL,
		service_fee BIGINT NOT NULL DEFAULT 0 CHECK (service_fee >= 0),
		wallet      BIGINT NOT NULL DEFAULT 0 CHECK (wallet >= 0),
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS registry_trips (
		registry_id UUID NOT NULL REFERENCES registries(id),
		ordinal     INTEGER NOT NULL,
		trip_id     UUID NOT NULL,
		PRIMARY KEY (registry_id, ordinal)
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id               UUID PRIMARY KEY,
		registry_id      UUID NOT NULL,
		driver           TEXT NOT NULL,
		destination      TEXT NOT NULL DEFAULT '',
		fare             BIGINT NOT NULL CHECK (fare > 0),
		pool             BIGINT NOT NULL DEFAULT 0 CHECK (pool >= 0),
		completed        BOOLEAN NOT NULL DEFAULT FALSE,
		completion_token TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trip_passengers (
		trip_id  UUID NOT NULL REFERENCES trips(id),
		ordinal  INTEGER NOT NULL,
		address  TEXT NOT NULL,
		PRIMARY KEY (trip_id, ordinal)
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_records (
		idempotency_key TEXT NOT NULL,
		caller          TEXT NOT NULL,
		method          TEXT NOT NULL,
		route           TEXT NOT NULL,
		body_hash       TEXT NOT NULL,
		status_code     INTEGER NOT NULL,
		content_type    TEXT NOT NULL,
		body            BYTEA NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (idempotency_key, caller, method, route, body_hash)
	)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range Schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
