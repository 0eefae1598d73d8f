package registryrepo

import (
	"testing"

	"ridepool-backend/internal/adapters/contracttest"
	registryrepoport "ridepool-backend/internal/ports/out/registryrepo"
)

func TestContract_RegistryRepo(t *testing.T) {
	contracttest.RunRegistryRepo(t, func(t *testing.T) (registryrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
