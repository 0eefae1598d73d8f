package accounts

import (
	"context"
	"errors"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/platform/locking"
	"ridepool-backend/internal/ports/out/accountrepo"
	"ridepool-backend/internal/ports/out/clock"
	"ridepool-backend/internal/ports/out/events"
)

// Service implements the account ledger: registration, deposits, and
// withdrawals. Every mutation serializes on the account's lock so a withdraw
// and a join can never both spend the same balance.
type Service struct {
	accounts accountrepo.Repository
	clk      clock.Clock
	locks    *locking.Keyed
	events   events.Emitter
}

func NewService(accountsRepo accountrepo.Repository, clk clock.Clock, locks *locking.Keyed, emitter events.Emitter) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Service{
		accounts: accountsRepo,
		clk:      clk,
		locks:    locks,
		events:   emitter,
	}
}

// Register creates a zero-balance account for the caller's own address.
// Duplicate registration is rejected via the address index.
func (s *Service) Register(ctx context.Context, caller domain.Address) (domain.Account, error) {
	addr := domain.NormalizeAddress(string(caller))
	if addr == "" {
		return domain.Account{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid address", Details: map[string]any{"address": "must be non-empty"}}
	}

	s.locks.Lock(locking.AccountKey(addr))
	defer s.locks.Unlock(locking.AccountKey(addr))

	now := s.clk.Now()
	a := accountrepo.Account{
		Address:   addr,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, accountrepo.ErrAlreadyExists) {
			return domain.Account{}, &Error{Status: 409, Code: "DUPLICATE_ACCOUNT", Message: "account already registered for address"}
		}
		return domain.Account{}, err
	}

	s.events.Emit(events.Event{Type: events.TypeAccountRegistered, Address: addr, At: now})
	return domain.Account{Address: addr, Balance: 0}, nil
}

// Deposit credits amount to the account. The caller must be the account
// owner; amounts must be positive.
func (s *Service) Deposit(ctx context.Context, caller, address domain.Address, amount int64) (domain.Account, error) {
	if caller != address {
		return domain.Account{}, &Error{Status: 403, Code: "NOT_PASSENGER", Message: "caller is not the account owner"}
	}
	if amount <= 0 {
		return domain.Account{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid amount", Details: map[string]any{"amount": "must be > 0"}}
	}

	s.locks.Lock(locking.AccountKey(address))
	defer s.locks.Unlock(locking.AccountKey(address))

	a, err := s.accounts.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) {
			return domain.Account{}, &Error{Status: 404, Code: "ACCOUNT_NOT_FOUND", Message: "account not found"}
		}
		return domain.Account{}, err
	}

	next, ok := domain.AddValue(a.Balance, amount)
	if !ok {
		return domain.Account{}, &Error{Status: 409, Code: "VALUE_OVERFLOW", Message: "deposit would overflow balance", Details: map[string]any{"balance": a.Balance}}
	}
	a.Balance = next
	a.UpdatedAt = s.clk.Now()
	if err := s.accounts.Save(ctx, a); err != nil {
		return domain.Account{}, err
	}

	s.events.Emit(events.Event{Type: events.TypeDeposited, Address: address, Amount: amount, At: a.UpdatedAt})
	return domain.Account{Address: a.Address, Balance: a.Balance}, nil
}

// Withdraw debits amount and returns the resulting account state plus the
// releasable payout. The debit and the payout are one unit: the payout is
// produced only after the balance change is persisted.
func (s *Service) Withdraw(ctx context.Context, caller, address domain.Address, amount int64) (domain.Account, domain.Payout, error) {
	if caller != address {
		return domain.Account{}, domain.Payout{}, &Error{Status: 403, Code: "NOT_PASSENGER", Message: "caller is not the account owner"}
	}
	if amount <= 0 {
		return domain.Account{}, domain.Payout{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid amount", Details: map[string]any{"amount": "must be > 0"}}
	}

	s.locks.Lock(locking.AccountKey(address))
	defer s.locks.Unlock(locking.AccountKey(address))

	a, err := s.accounts.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) {
			return domain.Account{}, domain.Payout{}, &Error{Status: 404, Code: "ACCOUNT_NOT_FOUND", Message: "account not found"}
		}
		return domain.Account{}, domain.Payout{}, err
	}
	if amount > a.Balance {
		return domain.Account{}, domain.Payout{}, &Error{Status: 409, Code: "INSUFFICIENT_BALANCE", Message: "withdrawal exceeds balance", Details: map[string]any{"balance": a.Balance}}
	}

	a.Balance -= amount
	a.UpdatedAt = s.clk.Now()
	if err := s.accounts.Save(ctx, a); err != nil {
		return domain.Account{}, domain.Payout{}, err
	}

	s.events.Emit(events.Event{Type: events.TypeWithdrawn, Address: address, Amount: amount, At: a.UpdatedAt})
	return domain.Account{Address: a.Address, Balance: a.Balance},
		domain.Payout{To: address, Amount: amount},
		nil
}

// Get returns the caller's own account. Balances are not public.
func (s *Service) Get(ctx context.Context, caller, address domain.Address) (domain.Account, error) {
	if caller != address {
		return domain.Account{}, &Error{Status: 403, Code: "NOT_PASSENGER", Message: "caller is not the account owner"}
	}
	a, err := s.accounts.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) {
			return domain.Account{}, &Error{Status: 404, Code: "ACCOUNT_NOT_FOUND", Message: "account not found"}
		}
		return domain.Account{}, err
	}
	return domain.Account{Address: a.Address, Balance: a.Balance}, nil
}
