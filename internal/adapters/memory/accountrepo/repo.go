package accountrepo

import (
	"context"
	"sync"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/ports/out/accountrepo"
)

// Repo is an in-memory implementation of accountrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu        sync.RWMutex
	byAddress map[domain.Address]accountrepo.Account
}

func NewRepo() *Repo {
	return &Repo{
		byAddress: make(map[domain.Address]accountrepo.Account),
	}
}

func (r *Repo) Create(ctx context.Context, a accountrepo.Account) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byAddress[a.Address]; ok {
		return accountrepo.ErrAlreadyExists
	}
	r.byAddress[a.Address] = a
	return nil
}

func (r *Repo) Save(ctx context.Context, a accountrepo.Account) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byAddress[a.Address]; !ok {
		return accountrepo.ErrNotFound
	}
	r.byAddress[a.Address] = a
	return nil
}

func (r *Repo) GetByAddress(ctx context.Context, addr domain.Address) (accountrepo.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byAddress[addr]
	if !ok {
		return accountrepo.Account{}, accountrepo.ErrNotFound
	}
	return a, nil
}
