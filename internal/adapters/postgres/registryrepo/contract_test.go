package registryrepo

import (
	"testing"

	"ridepool-backend/internal/adapters/contracttest"
	"ridepool-backend/internal/adapters/postgres/testutil"
	registryrepoport "ridepool-backend/internal/ports/out/registryrepo"
)

func TestContract_PostgresRegistryRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunRegistryRepo(t, func(t *testing.T) (registryrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
