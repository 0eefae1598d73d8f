package accountrepo

import (
	"context"
	"time"

	"ridepool-backend/internal/domain"
)

// Account is the persistence shape used by the account repository.
// It is not an HTTP DTO.
type Account struct {
	Address domain.Address
	Balance int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted ledger accounts.
//
// Accounts are keyed by address; addresses are unique and accounts are never
// destroyed (no closure operation exists).
type Repository interface {
	Create(ctx context.Context, a Account) error
	Save(ctx context.Context, a Account) error

	GetByAddress(ctx context.Context, addr domain.Address) (Account, error)
}
