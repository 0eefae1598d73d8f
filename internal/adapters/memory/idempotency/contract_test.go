package idempotency

import (
	"testing"

	"ridepool-backend/internal/adapters/contracttest"
	idempotencyport "ridepool-backend/internal/ports/out/idempotency"
)

func TestContract_IdempotencyStore(t *testing.T) {
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}
