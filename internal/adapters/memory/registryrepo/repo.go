package registryrepo

import (
	"context"
	"sync"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/ports/out/registryrepo"
)

// Repo is an in-memory implementation of registryrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.RegistryID]registryrepo.Registry
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.RegistryID]registryrepo.Registry),
	}
}

func (r *Repo) Create(ctx context.Context, reg registryrepo.Registry) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[reg.ID]; ok {
		return registryrepo.ErrAlreadyExists
	}
	r.byID[reg.ID] = cloneRegistry(reg)
	return nil
}

func (r *Repo) Save(ctx context.Context, reg registryrepo.Registry) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[reg.ID]; !ok {
		return registryrepo.ErrNotFound
	}
	r.byID[reg.ID] = cloneRegistry(reg)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.RegistryID) (registryrepo.Registry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byID[id]
	if !ok {
		return registryrepo.Registry{}, registryrepo.ErrNotFound
	}
	return cloneRegistry(reg), nil
}

func cloneRegistry(reg registryrepo.Registry) registryrepo.Registry {
	cp := reg
	if reg.TripIDs != nil {
		cp.TripIDs = append([]domain.TripID(nil), reg.TripIDs...)
	}
	return cp
}
