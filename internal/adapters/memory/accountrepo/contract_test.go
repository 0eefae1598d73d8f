package accountrepo

import (
	"testing"

	"ridepool-backend/internal/adapters/contracttest"
	accountrepoport "ridepool-backend/internal/ports/out/accountrepo"
)

func TestContract_AccountRepo(t *testing.T) {
	contracttest.RunAccountRepo(t, func(t *testing.T) (accountrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
