package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/platform/locking"
	"ridepool-backend/internal/ports/out/clock"
	"ridepool-backend/internal/ports/out/events"
	"ridepool-backend/internal/ports/out/registryrepo"
)

// Service implements operator registry operations: initialization, fee
// configuration, and wallet withdrawal. All mutations are management-only
// and serialize on the registry's lock.
type Service struct {
	registries registryrepo.Repository
	clk        clock.Clock
	locks      *locking.Keyed
	events     events.Emitter

	newRegistryID func() domain.RegistryID
}

func NewService(registriesRepo registryrepo.Repository, clk clock.Clock, locks *locking.Keyed, emitter events.Emitter) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Service{
		registries: registriesRepo,
		clk:        clk,
		locks:      locks,
		events:     emitter,
		newRegistryID: func() domain.RegistryID {
			return domain.RegistryID(uuid.NewString())
		},
	}
}

// SetNewRegistryIDForTest overrides registry ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewRegistryIDForTest(fn func() domain.RegistryID) {
	if fn != nil {
		s.newRegistryID = fn
	}
}

// Initialize creates a registry owned by the caller, with an empty trip
// catalog, zero wallet, and zero service fee.
func (s *Service) Initialize(ctx context.Context, caller domain.Address) (domain.Registry, error) {
	management := domain.NormalizeAddress(string(caller))
	if management == "" {
		return domain.Registry{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid management address", Details: map[string]any{"address": "must be non-empty"}}
	}

	now := s.clk.Now()
	id := s.newRegistryID()
	reg := registryrepo.Registry{
		ID:         id,
		Management: management,
		ServiceFee: 0,
		Wallet:     0,
		TripIDs:    []domain.TripID{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.registries.Create(ctx, reg); err != nil {
		if errors.Is(err, registryrepo.ErrAlreadyExists) {
			// Extremely unlikely (UUID collision); treat as conflict.
			return domain.Registry{}, &Error{Status: 409, Code: "REGISTRY_ID_CONFLICT", Message: "registry id conflict"}
		}
		return domain.Registry{}, err
	}

	s.events.Emit(events.Event{Type: events.TypeRegistryInitialized, RegistryID: id, Address: management, At: now})
	return toDomain(reg), nil
}

// SetFee sets the flat service fee collected on each trip completion.
// Management-only; negative fees are invalid and the value is never clamped.
func (s *Service) SetFee(ctx context.Context, caller domain.Address, id domain.RegistryID, fee int64) (domain.Registry, error) {
	if fee < 0 {
		return domain.Registry{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid service fee", Details: map[string]any{"serviceFee": "must be >= 0"}}
	}

	s.locks.Lock(locking.RegistryKey(id))
	defer s.locks.Unlock(locking.RegistryKey(id))

	reg, err := s.registries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, registryrepo.ErrNotFound) {
			return domain.Registry{}, &Error{Status: 404, Code: "REGISTRY_NOT_FOUND", Message: "registry not found"}
		}
		return domain.Registry{}, err
	}
	if reg.Management != caller {
		return domain.Registry{}, &Error{Status: 403, Code: "NOT_OWNER", Message: "caller is not registry management"}
	}

	reg.ServiceFee = fee
	reg.UpdatedAt = s.clk.Now()
	if err := s.registries.Save(ctx, reg); err != nil {
		return domain.Registry{}, err
	}

	s.events.Emit(events.Event{Type: events.TypeFeeUpdated, RegistryID: id, Amount: fee, At: reg.UpdatedAt})
	return toDomain(reg), nil
}

// WithdrawWallet debits the fee wallet and returns the payout to management.
func (s *Service) WithdrawWallet(ctx context.Context, caller domain.Address, id domain.RegistryID, amount int64) (domain.Registry, domain.Payout, error) {
	if amount <= 0 {
		return domain.Registry{}, domain.Payout{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid amount", Details: map[string]any{"amount": "must be > 0"}}
	}

	s.locks.Lock(locking.RegistryKey(id))
	defer s.locks.Unlock(locking.RegistryKey(id))

	reg, err := s.registries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, registryrepo.ErrNotFound) {
			return domain.Registry{}, domain.Payout{}, &Error{Status: 404, Code: "REGISTRY_NOT_FOUND", Message: "registry not found"}
		}
		return domain.Registry{}, domain.Payout{}, err
	}
	if reg.Management != caller {
		return domain.Registry{}, domain.Payout{}, &Error{Status: 403, Code: "NOT_OWNER", Message: "caller is not registry management"}
	}
	if amount > reg.Wallet {
		return domain.Registry{}, domain.Payout{}, &Error{Status: 409, Code: "INSUFFICIENT_BALANCE", Message: "withdrawal exceeds wallet balance", Details: map[string]any{"wallet": reg.Wallet}}
	}

	reg.Wallet -= amount
	reg.UpdatedAt = s.clk.Now()
	if err := s.registries.Save(ctx, reg); err != nil {
		return domain.Registry{}, domain.Payout{}, err
	}

	s.events.Emit(events.Event{Type: events.TypeWalletWithdrawn, RegistryID: id, Address: reg.Management, Amount: amount, At: reg.UpdatedAt})
	return toDomain(reg),
		domain.Payout{To: reg.Management, Amount: amount},
		nil
}

// ViewTrips returns the trip id catalog in creation order. Callable by anyone.
func (s *Service) ViewTrips(ctx context.Context, id domain.RegistryID) ([]domain.TripID, error) {
	reg, err := s.registries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, registryrepo.ErrNotFound) {
			return nil, &Error{Status: 404, Code: "REGISTRY_NOT_FOUND", Message: "registry not found"}
		}
		return nil, err
	}
	return append([]domain.TripID{}, reg.TripIDs...), nil
}

// Get returns the registry read model. Callable by anyone.
func (s *Service) Get(ctx context.Context, id domain.RegistryID) (domain.Registry, error) {
	reg, err := s.registries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, registryrepo.ErrNotFound) {
			return domain.Registry{}, &Error{Status: 404, Code: "REGISTRY_NOT_FOUND", Message: "registry not found"}
		}
		return domain.Registry{}, err
	}
	return toDomain(reg), nil
}

func toDomain(reg registryrepo.Registry) domain.Registry {
	return domain.Registry{
		ID:         reg.ID,
		Management: reg.Management,
		ServiceFee: reg.ServiceFee,
		Wallet:     reg.Wallet,
		TripIDs:    append([]domain.TripID{}, reg.TripIDs...),
	}
}
