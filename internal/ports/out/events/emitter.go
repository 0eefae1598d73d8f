package events

import (
	"time"

	"ridepool-backend/internal/domain"
)

// Type names a custody state change.
type Type string

const (
	TypeAccountRegistered   Type = "account_registered"
	TypeDeposited           Type = "deposited"
	TypeWithdrawn           Type = "withdrawn"
	TypeRegistryInitialized Type = "registry_initialized"
	TypeFeeUpdated          Type = "fee_updated"
	TypeFeeCollected        Type = "fee_collected"
	TypeWalletWithdrawn     Type = "wallet_withdrawn"
	TypeTripCreated         Type = "trip_created"
	TypeTripJoined          Type = "trip_joined"
	TypeTripCompleted       Type = "trip_completed"
)

// Event is a state-change notification. Fields not applicable to a given
// type are zero.
type Event struct {
	Type Type

	Address    domain.Address
	TripID     domain.TripID
	RegistryID domain.RegistryID

	// Amount is the value moved by the change, if any.
	Amount int64

	At time.Time
}

// Emitter receives state-change notifications after the change has been
// applied. Delivery is a side channel: it is not part of the originating
// operation's success/failure contract, so Emit must not block and has no
// error to return.
type Emitter interface {
	Emit(e Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Emit(Event) {}

// Fanout forwards each event to every wrapped emitter in order.
type Fanout []Emitter

func (f Fanout) Emit(e Event) {
	for _, em := range f {
		em.Emit(e)
	}
}
