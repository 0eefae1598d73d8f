package triprepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "ridepool-backend/internal/adapters/postgres"
	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/ports/out/triprepo"
)

// Repo is a Postgres implementation of triprepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}
	registryUUID, err := uuid.Parse(string(t.RegistryID))
	if err != nil {
		return fmt.Errorf("invalid registry id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO trips (
				id,
				registry_id,
				driver,
				destination,
				fare,
				pool,
				completed,
				completion_token,
				created_at,
				updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
			tripUUID,
			registryUUID,
			string(t.Driver),
			t.Destination,
			t.Fare,
			t.Pool,
			t.Completed,
			t.CompletionToken,
			t.CreatedAt.UTC(),
			t.UpdatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
				return triprepo.ErrAlreadyExists
			}
			return err
		}
		return syncPassengers(ctx, tx, tripUUID, t.Passengers)
	})
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return triprepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE trips
			SET driver = $2,
			    destination = $3,
			    fare = $4,
			    pool = $5,
			    completed = $6,
			    updated_at = $7
			WHERE id = $1
		`,
			tripUUID,
			string(t.Driver),
			t.Destination,
			t.Fare,
			t.Pool,
			t.Completed,
			t.UpdatedAt.UTC(),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return triprepo.ErrNotFound
		}
		return syncPassengers(ctx, tx, tripUUID, t.Passengers)
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	if r.pool == nil {
		return triprepo.Trip{}, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `
		SELECT id, registry_id, driver, destination, fare, pool, completed, completion_token, created_at, updated_at
		FROM trips
		WHERE id = $1
	`, tripUUID)

	var (
		tid        uuid.UUID
		registryID uuid.UUID
		driver     string
		out        triprepo.Trip
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&tid, &registryID, &driver, &out.Destination, &out.Fare, &out.Pool, &out.Completed, &out.CompletionToken, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return triprepo.Trip{}, triprepo.ErrNotFound
		}
		return triprepo.Trip{}, err
	}
	out.ID = domain.TripID(tid.String())
	out.RegistryID = domain.RegistryID(registryID.String())
	out.Driver = domain.Address(driver)
	out.CreatedAt = createdAt.UTC()
	out.UpdatedAt = updatedAt.UTC()

	passengers, err := loadPassengers(ctx, r.pool, tripUUID)
	if err != nil {
		return triprepo.Trip{}, err
	}
	out.Passengers = passengers
	return out, nil
}

// syncPassengers rewrites the join table to match the desired list. Ordinal
// preserves join order and duplicates.
func syncPassengers(ctx context.Context, tx pgx.Tx, tripUUID uuid.UUID, desired []domain.Address) error {
	if _, err := tx.Exec(ctx, `DELETE FROM trip_passengers WHERE trip_id = $1`, tripUUID); err != nil {
		return err
	}
	for i, addr := range desired {
		_, err := tx.Exec(ctx, `
			INSERT INTO trip_passengers (trip_id, ordinal, address)
			VALUES ($1, $2, $3)
		`, tripUUID, i, string(addr))
		if err != nil {
			return err
		}
	}
	return nil
}

func loadPassengers(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, tripUUID uuid.UUID) ([]domain.Address, error) {
	rows, err := q.Query(ctx, `
		SELECT address
		FROM trip_passengers
		WHERE trip_id = $1
		ORDER BY ordinal ASC
	`, tripUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Address, 0)
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, domain.Address(addr))
	}
	return out, rows.Err()
}
