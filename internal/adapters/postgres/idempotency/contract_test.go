package idempotency

import (
	"testing"

	"ridepool-backend/internal/adapters/contracttest"
	"ridepool-backend/internal/adapters/postgres/testutil"
	idempotencyport "ridepool-backend/internal/ports/out/idempotency"
)

func TestContract_PostgresIdempotencyStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(pool), nil
	})
}
