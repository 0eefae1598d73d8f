package triprepo

import (
	"testing"

	"ridepool-backend/internal/adapters/contracttest"
	"ridepool-backend/internal/adapters/postgres/testutil"
	triprepoport "ridepool-backend/internal/ports/out/triprepo"
)

func TestContract_PostgresTripRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunTripRepo(t, func(t *testing.T) (triprepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
