package triprepo

import (
	"context"
	"testing"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/ports/out/triprepo"
)

func TestRepo_ClonesOnReadAndWrite(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()

	in := triprepo.Trip{
		ID:         "t1",
		Driver:     "driver-1",
		Fare:       30,
		Passengers: []domain.Address{"a"},
		Pool:       30,
		CreatedAt:  time.Unix(10, 0).UTC(),
		UpdatedAt:  time.Unix(10, 0).UTC(),
	}
	if err := r.Create(ctx, in); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	// Mutating the caller's copy after Create must not leak into the store.
	in.Passengers[0] = "x"

	got, err := r.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if got.Passengers[0] != "a" {
		t.Fatalf("passengers=%v, want [a]", got.Passengers)
	}

	// Mutating the returned copy must not leak either.
	got.Passengers[0] = "y"
	again, err := r.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if again.Passengers[0] != "a" {
		t.Fatalf("passengers=%v, want [a]", again.Passengers)
	}
}
