package registryrepo

import (
	"context"
	"time"

	"ridepool-backend/internal/domain"
)

// Registry is the persistence shape used by the registry repository.
// It is not an HTTP DTO.
type Registry struct {
	ID         domain.RegistryID
	Management domain.Address

	ServiceFee int64
	Wallet     int64

	// TripIDs is the trip catalog in creation order.
	TripIDs []domain.TripID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted operator registries.
type Repository interface {
	Create(ctx context.Context, r Registry) error
	Save(ctx context.Context, r Registry) error

	GetByID(ctx context.Context, id domain.RegistryID) (Registry, error)
}
