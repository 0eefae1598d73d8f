package triprepo

import (
	"context"
	"time"

	"ridepool-backend/internal/domain"
)

// Trip is the persistence shape used by the trip repository.
// It is not an HTTP DTO.
type Trip struct {
	ID         domain.TripID
	RegistryID domain.RegistryID

	Driver      domain.Address
	Destination string
	Fare        int64

	// Passengers is append-only while the trip is active; order is join order.
	Passengers []domain.Address

	Pool      int64
	Completed bool

	// CompletionToken is the secret bound to this trip at creation. It is
	// compared, never listed; read models must not expose it.
	CompletionToken string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted trips.
//
// Callers are responsible for serializing mutations per trip (see the
// application-layer lock registry); Save overwrites the whole record.
type Repository interface {
	Create(ctx context.Context, t Trip) error
	Save(ctx context.Context, t Trip) error

	GetByID(ctx context.Context, id domain.TripID) (Trip, error)
}
