package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"ridepool-backend/internal/domain"
	accountrepoport "ridepool-backend/internal/ports/out/accountrepo"
	idempotencyport "ridepool-backend/internal/ports/out/idempotency"
	registryrepoport "ridepool-backend/internal/ports/out/registryrepo"
	triprepoport "ridepool-backend/internal/ports/out/triprepo"
)

type CleanupFunc = func()

type AccountRepoFactory func(t *testing.T) (accountrepoport.Repository, CleanupFunc)
type TripRepoFactory func(t *testing.T) (triprepoport.Repository, CleanupFunc)
type RegistryRepoFactory func(t *testing.T) (registryrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunAccountRepo(t *testing.T, newRepo AccountRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	addr := domain.Address("rider-" + uuid.NewString())
	if err := repo.Create(ctx, accountrepoport.Account{
		Address:   addr,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByAddress(ctx, addr)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if got.Address != addr || got.Balance != 0 {
		t.Fatalf("unexpected account: %+v", got)
	}

	// Address uniqueness.
	err = repo.Create(ctx, accountrepoport.Account{Address: addr, CreatedAt: now, UpdatedAt: now})
	if !errors.Is(err, accountrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Save overwrites the balance.
	got.Balance = 75
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = repo.GetByAddress(ctx, addr)
	if err != nil || got.Balance != 75 {
		t.Fatalf("after save: %+v err=%v", got, err)
	}

	// Unknown address.
	if _, err := repo.GetByAddress(ctx, domain.Address("absent-"+uuid.NewString())); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Save(ctx, accountrepoport.Account{Address: domain.Address("absent-" + uuid.NewString())}); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on save, got %v", err)
	}
}

func RunTripRepo(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(2000, 0).UTC()
	id := domain.TripID(uuid.NewString())
	if err := repo.Create(ctx, triprepoport.Trip{
		ID:              id,
		RegistryID:      domain.RegistryID(uuid.NewString()),
		Driver:          "driver-1",
		Destination:     "harbor",
		Fare:            30,
		CompletionToken: uuid.NewString(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Fare != 30 || got.Completed || len(got.Passengers) != 0 {
		t.Fatalf("unexpected trip: %+v", got)
	}

	// ID uniqueness.
	if err := repo.Create(ctx, triprepoport.Trip{ID: id, Driver: "driver-2", Fare: 1, CreatedAt: now, UpdatedAt: now}); !errors.Is(err, triprepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Save persists passengers in join order, with duplicates.
	got.Passengers = []domain.Address{"a", "b", "a"}
	got.Pool = 90
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID after save: %v", err)
	}
	if got.Pool != 90 || len(got.Passengers) != 3 || got.Passengers[0] != "a" || got.Passengers[1] != "b" || got.Passengers[2] != "a" {
		t.Fatalf("unexpected passengers: %+v", got)
	}

	// Completion flag and drained pool round-trip.
	got.Completed = true
	got.Pool = 0
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save completed: %v", err)
	}
	got, err = repo.GetByID(ctx, id)
	if err != nil || !got.Completed || got.Pool != 0 {
		t.Fatalf("after completion: %+v err=%v", got, err)
	}

	if _, err := repo.GetByID(ctx, domain.TripID(uuid.NewString())); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func RunRegistryRepo(t *testing.T, newRepo RegistryRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(3000, 0).UTC()
	id := domain.RegistryID(uuid.NewString())
	if err := repo.Create(ctx, registryrepoport.Registry{
		ID:         id,
		Management: "operator",
		ServiceFee: 0,
		Wallet:     0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Create(ctx, registryrepoport.Registry{ID: id, Management: "other", CreatedAt: now, UpdatedAt: now}); !errors.Is(err, registryrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	// Catalog order survives saves.
	t1 := domain.TripID(uuid.NewString())
	t2 := domain.TripID(uuid.NewString())
	got.TripIDs = []domain.TripID{t1, t2}
	got.ServiceFee = 5
	got.Wallet = 40
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID after save: %v", err)
	}
	if got.ServiceFee != 5 || got.Wallet != 40 || len(got.TripIDs) != 2 || got.TripIDs[0] != t1 || got.TripIDs[1] != t2 {
		t.Fatalf("unexpected registry: %+v", got)
	}

	if _, err := repo.GetByID(ctx, domain.RegistryID(uuid.NewString())); !errors.Is(err, registryrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Caller:   domain.Address("rider-1"),
		Method:   "POST",
		Route:    "/accounts/{address}/withdrawals",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Different body hash is a different fingerprint.
	fp2 := fp
	fp2.BodyHash = "deadbeef"
	if _, ok, err := store.Get(ctx, fp2); err != nil || ok {
		t.Fatalf("expected miss for distinct hash, ok=%v err=%v", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}
}
