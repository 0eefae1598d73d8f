package accountrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "ridepool-backend/internal/adapters/postgres"
	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/ports/out/accountrepo"
)

// Repo is a Postgres implementation of accountrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, a accountrepo.Account) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (address, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`,
		string(a.Address),
		a.Balance,
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return accountrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, a accountrepo.Account) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET balance = $2,
		    updated_at = $3
		WHERE address = $1
	`,
		string(a.Address),
		a.Balance,
		a.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return accountrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByAddress(ctx context.Context, addr domain.Address) (accountrepo.Account, error) {
	if r.pool == nil {
		return accountrepo.Account{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT address, balance, created_at, updated_at
		FROM accounts
		WHERE address = $1
	`, string(addr))

	var out accountrepo.Account
	var address string
	if err := row.Scan(&address, &out.Balance, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accountrepo.Account{}, accountrepo.ErrNotFound
		}
		return accountrepo.Account{}, err
	}
	out.Address = domain.Address(address)
	out.CreatedAt = out.CreatedAt.UTC()
	out.UpdatedAt = out.UpdatedAt.UTC()
	return out, nil
}
