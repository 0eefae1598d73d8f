package trips

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/platform/locking"
	"ridepool-backend/internal/ports/out/accountrepo"
	"ridepool-backend/internal/ports/out/clock"
	"ridepool-backend/internal/ports/out/events"
	"ridepool-backend/internal/ports/out/registryrepo"
	"ridepool-backend/internal/ports/out/triprepo"
)

// Service implements the trip lifecycle and its escrow pool: creation under
// a registry, passenger joins, and token-authorized completion.
//
// Every mutation of a trip runs inside that trip's critical section, so a
// join and a complete (or two completes) on the same trip are mutually
// exclusive. Joins additionally hold the passenger's account lock; completes
// additionally hold the registry lock. Lock order is fixed: trip, then
// account, then registry.
type Service struct {
	trips      triprepo.Repository
	accounts   accountrepo.Repository
	registries registryrepo.Repository
	clk        clock.Clock
	locks      *locking.Keyed
	events     events.Emitter

	newTripID func() domain.TripID
	newToken  func() string
}

func NewService(
	tripsRepo triprepo.Repository,
	accountsRepo accountrepo.Repository,
	registriesRepo registryrepo.Repository,
	clk clock.Clock,
	locks *locking.Keyed,
	emitter events.Emitter,
) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Service{
		trips:      tripsRepo,
		accounts:   accountsRepo,
		registries: registriesRepo,
		clk:        clk,
		locks:      locks,
		events:     emitter,
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.NewString())
		},
		newToken: func() string {
			return uuid.NewString()
		},
	}
}

// SetNewTripIDForTest overrides trip ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

// SetNewTokenForTest overrides completion token generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTokenForTest(fn func() string) {
	if fn != nil {
		s.newToken = fn
	}
}

// Create opens an active trip under the registry and catalogs its id there.
// Management-only. The returned completion token is bound to this trip and
// authorizes its completion regardless of the presenter's address.
func (s *Service) Create(ctx context.Context, caller domain.Address, registryID domain.RegistryID, in CreateTripInput) (TripCreated, error) {
	driver := domain.NormalizeAddress(string(in.Driver))
	if driver == "" {
		return TripCreated{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid driver", Details: map[string]any{"driver": "must be non-empty"}}
	}
	if in.Fare <= 0 {
		return TripCreated{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid fare", Details: map[string]any{"fare": "must be > 0"}}
	}

	s.locks.Lock(locking.RegistryKey(registryID))
	defer s.locks.Unlock(locking.RegistryKey(registryID))

	reg, err := s.registries.GetByID(ctx, registryID)
	if err != nil {
		if errors.Is(err, registryrepo.ErrNotFound) {
			return TripCreated{}, &Error{Status: 404, Code: "REGISTRY_NOT_FOUND", Message: "registry not found"}
		}
		return TripCreated{}, err
	}
	if reg.Management != caller {
		return TripCreated{}, &Error{Status: 403, Code: "NOT_OWNER", Message: "caller is not registry management"}
	}

	now := s.clk.Now()
	id := s.newTripID()
	token := s.newToken()

	// Catalog first, then create the trip; a failed create reverts the
	// catalog so the registry never lists a trip that does not exist.
	prevTripIDs := reg.TripIDs
	reg.TripIDs = append(append([]domain.TripID{}, reg.TripIDs...), id)
	reg.UpdatedAt = now
	if err := s.registries.Save(ctx, reg); err != nil {
		return TripCreated{}, err
	}

	t := triprepo.Trip{
		ID:              id,
		RegistryID:      registryID,
		Driver:          driver,
		Destination:     in.Destination,
		Fare:            in.Fare,
		Passengers:      []domain.Address{},
		Pool:            0,
		Completed:       false,
		CompletionToken: token,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.trips.Create(ctx, t); err != nil {
		reg.TripIDs = prevTripIDs
		if revertErr := s.registries.Save(ctx, reg); revertErr != nil {
			return TripCreated{}, fmt.Errorf("create trip: %w (catalog revert failed: %v)", err, revertErr)
		}
		if errors.Is(err, triprepo.ErrAlreadyExists) {
			// Extremely unlikely (UUID collision); treat as conflict.
			return TripCreated{}, &Error{Status: 409, Code: "TRIP_ID_CONFLICT", Message: "trip id conflict"}
		}
		return TripCreated{}, err
	}

	s.events.Emit(events.Event{Type: events.TypeTripCreated, TripID: id, RegistryID: registryID, Address: driver, At: now})
	return TripCreated{ID: id, CompletionToken: token}, nil
}

// Join commits the caller's fare into the trip's escrow pool: the account
// debit, pool credit, and passenger append are one unit. Preconditions are
// checked in full before anything changes.
func (s *Service) Join(ctx context.Context, caller domain.Address, tripID domain.TripID) (domain.Trip, error) {
	addr := domain.NormalizeAddress(string(caller))
	if addr == "" {
		return domain.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid address", Details: map[string]any{"address": "must be non-empty"}}
	}

	s.locks.Lock(locking.TripKey(tripID))
	defer s.locks.Unlock(locking.TripKey(tripID))

	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return domain.Trip{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return domain.Trip{}, err
	}
	if t.Completed {
		return domain.Trip{}, &Error{Status: 409, Code: "TRIP_COMPLETED", Message: "trip is completed"}
	}

	s.locks.Lock(locking.AccountKey(addr))
	defer s.locks.Unlock(locking.AccountKey(addr))

	a, err := s.accounts.GetByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) {
			return domain.Trip{}, &Error{Status: 403, Code: "NOT_PASSENGER", Message: "caller has no registered account"}
		}
		return domain.Trip{}, err
	}
	if t.Fare > a.Balance {
		return domain.Trip{}, &Error{Status: 409, Code: "INSUFFICIENT_BALANCE", Message: "balance below fare", Details: map[string]any{"balance": a.Balance, "fare": t.Fare}}
	}
	pool, ok := domain.AddValue(t.Pool, t.Fare)
	if !ok {
		return domain.Trip{}, &Error{Status: 409, Code: "VALUE_OVERFLOW", Message: "fare would overflow escrow pool", Details: map[string]any{"pool": t.Pool, "fare": t.Fare}}
	}

	now := s.clk.Now()
	a.Balance -= t.Fare
	a.UpdatedAt = now
	if err := s.accounts.Save(ctx, a); err != nil {
		return domain.Trip{}, err
	}

	t.Pool = pool
	t.Passengers = append(t.Passengers, addr)
	t.UpdatedAt = now
	if err := s.trips.Save(ctx, t); err != nil {
		// Undo the debit so no value vanishes on a half-applied join.
		a.Balance += t.Fare
		if revertErr := s.accounts.Save(ctx, a); revertErr != nil {
			return domain.Trip{}, fmt.Errorf("join trip: %w (debit revert failed: %v)", err, revertErr)
		}
		return domain.Trip{}, err
	}

	s.events.Emit(events.Event{Type: events.TypeTripJoined, TripID: tripID, Address: addr, Amount: t.Fare, At: now})
	return toDomain(t), nil
}

// Complete drains the escrow pool and makes the trip terminal. The presenter
// must hold the completion token issued at creation; caller identity is not
// consulted. The registry's service fee (capped at the pool) is credited to
// its wallet and the remainder is returned as the driver's payout.
//
// The completed flag and the drain are one unit under the trip lock: a second
// Complete observes completed == true before it can touch the pool.
func (s *Service) Complete(ctx context.Context, tripID domain.TripID, token string) (domain.Trip, domain.Payout, error) {
	s.locks.Lock(locking.TripKey(tripID))
	defer s.locks.Unlock(locking.TripKey(tripID))

	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return domain.Trip{}, domain.Payout{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return domain.Trip{}, domain.Payout{}, err
	}
	if t.Completed {
		return domain.Trip{}, domain.Payout{}, &Error{Status: 409, Code: "TRIP_COMPLETED", Message: "trip is completed"}
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(t.CompletionToken)) != 1 {
		return domain.Trip{}, domain.Payout{}, &Error{Status: 403, Code: "NOT_OWNER", Message: "completion token does not match trip"}
	}

	s.locks.Lock(locking.RegistryKey(t.RegistryID))
	defer s.locks.Unlock(locking.RegistryKey(t.RegistryID))

	reg, err := s.registries.GetByID(ctx, t.RegistryID)
	if err != nil {
		return domain.Trip{}, domain.Payout{}, fmt.Errorf("load registry for trip %s: %w", tripID, err)
	}

	fee := reg.ServiceFee
	if fee > t.Pool {
		fee = t.Pool
	}
	payout := domain.Payout{To: t.Driver, Amount: t.Pool - fee}
	wallet, ok := domain.AddValue(reg.Wallet, fee)
	if !ok {
		return domain.Trip{}, domain.Payout{}, &Error{Status: 409, Code: "VALUE_OVERFLOW", Message: "fee would overflow registry wallet", Details: map[string]any{"wallet": reg.Wallet, "fee": fee}}
	}

	now := s.clk.Now()
	prevWallet := reg.Wallet
	reg.Wallet = wallet
	reg.UpdatedAt = now
	if err := s.registries.Save(ctx, reg); err != nil {
		return domain.Trip{}, domain.Payout{}, err
	}

	t.Pool = 0
	t.Completed = true
	t.UpdatedAt = now
	if err := s.trips.Save(ctx, t); err != nil {
		// Undo the fee credit so the wallet never holds value from a trip
		// that was not drained.
		reg.Wallet = prevWallet
		if revertErr := s.registries.Save(ctx, reg); revertErr != nil {
			return domain.Trip{}, domain.Payout{}, fmt.Errorf("complete trip: %w (fee revert failed: %v)", err, revertErr)
		}
		return domain.Trip{}, domain.Payout{}, err
	}

	if fee > 0 {
		s.events.Emit(events.Event{Type: events.TypeFeeCollected, TripID: tripID, RegistryID: t.RegistryID, Amount: fee, At: now})
	}
	s.events.Emit(events.Event{Type: events.TypeTripCompleted, TripID: tripID, RegistryID: t.RegistryID, Address: t.Driver, Amount: payout.Amount, At: now})
	return toDomain(t), payout, nil
}

// Get returns the trip read model. Callable by anyone; the completion token
// is never included.
func (s *Service) Get(ctx context.Context, tripID domain.TripID) (domain.Trip, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return domain.Trip{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return domain.Trip{}, err
	}
	return toDomain(t), nil
}

func toDomain(t triprepo.Trip) domain.Trip {
	return domain.Trip{
		ID:          t.ID,
		RegistryID:  t.RegistryID,
		Driver:      t.Driver,
		Destination: t.Destination,
		Fare:        t.Fare,
		Passengers:  append([]domain.Address{}, t.Passengers...),
		Pool:        t.Pool,
		Completed:   t.Completed,
	}
}
