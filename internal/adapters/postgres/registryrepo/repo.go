package registryrepo

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
	"ridepool-backend/internal/ports/out/registryrepo"
)

// Repo is a Postgres implementation of registryrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, reg registryrepo.Registry) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	regUUID, err := uuid.Parse(string(reg.ID))
	if err != nil {
		return fmt.Errorf("invalid registry id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO registries (id, management, service_fee, wallet, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			regUUID,
			string(reg.Management),
			reg.ServiceFee,
			reg.Wallet,
			reg.CreatedAt.UTC(),
			reg.UpdatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
				return registryrepo.ErrAlreadyExists
			}
			return err
		}
		return syncTripIDs(ctx, tx, regUUID, reg.TripIDs)
	})
}

func (r *Repo) Save(ctx context.Context, reg registryrepo.Registry) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	regUUID, err := uuid.Parse(string(reg.ID))
	if err != nil {
		return registryrepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE registries
			SET management = $2,
			    service_fee = $3,
			    wallet = $4,
			    updated_at = $5
			WHERE id = $1
		`,
			regUUID,
			string(reg.Management),
			reg.ServiceFee,
			reg.Wallet,
			reg.UpdatedAt.UTC(),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return registryrepo.ErrNotFound
		}
		return syncTripIDs(ctx, tx, regUUID, reg.TripIDs)
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.RegistryID) (registryrepo.Registry, error) {
	if r.pool == nil {
		return registryrepo.Registry{}, errors.New("nil postgres pool")
	}
	regUUID, err := uuid.Parse(string(id))
	if err != nil {
		return registryrepo.Registry{}, registryrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `
		SELECT id, management, service_fee, wallet, created_at, updated_at
		FROM registries
		WHERE id = $1
	`, regUUID)

	var (
		rid        uuid.UUID
		management string
		out        registryrepo.Registry
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&rid, &management, &out.ServiceFee, &out.Wallet, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registryrepo.Registry{}, registryrepo.ErrNotFound
		}
		return registryrepo.Registry{}, err
	}
	out.ID = domain.RegistryID(rid.String())
	out.Management = domain.Address(management)
	out.CreatedAt = createdAt.UTC()
	out.UpdatedAt = updatedAt.UTC()

	tripIDs, err := loadTripIDs(ctx, r.pool, regUUID)
	if err != nil {
		return registryrepo.Registry{}, err
	}
	out.TripIDs = tripIDs
	return out, nil
}

// syncTripIDs rewrites the catalog to match the desired list. Ordinal
// preserves creation order.
func syncTripIDs(ctx context.Context, tx pgx.Tx, regUUID uuid.UUID, desired []domain.TripID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM registry_trips WHERE registry_id = $1`, regUUID); err != nil {
		return err
	}
	for i, id := range desired {
		tripUUID, err := uuid.Parse(string(id))
		if err != nil {
			return fmt.Errorf("invalid trip id in catalog: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO registry_trips (registry_id, ordinal, trip_id)
			VALUES ($1, $2, $3)
		`, regUUID, i, tripUUID)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadTripIDs(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, regUUID uuid.UUID) ([]domain.TripID, error) {
	rows, err := q.Query(ctx, `
		SELECT trip_id
		FROM registry_trips
		WHERE registry_id = $1
		ORDER BY ordinal ASC
	`, regUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.TripID, 0)
	for rows.Next() {
		var tid uuid.UUID
		if err := rows.Scan(&tid); err != nil {
			return nil, err
		}
		out = append(out, domain.TripID(tid.String()))
	}
	return out, rows.Err()
}
