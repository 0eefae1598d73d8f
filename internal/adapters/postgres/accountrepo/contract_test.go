package accountrepo

import (
	"testing"

	"ridepool-backend/internal/adapters/contracttest"
	"ridepool-backend/internal/adapters/postgres/testutil"
	accountrepoport "ridepool-backend/internal/ports/out/accountrepo"
)

func TestContract_PostgresAccountRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunAccountRepo(t, func(t *testing.T) (accountrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
