package trips_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	eventsrecorder "ridepool-backend/internal/adapters/events/recorder"
	memaccountrepo "ridepool-backend/internal/adapters/memory/accountrepo"
	memclock "ridepool-backend/internal/adapters/memory/clock"
	memregistryrepo "ridepool-backend/internal/adapters/memory/registryrepo"
	memtriprepo "ridepool-backend/internal/adapters/memory/triprepo"
	"ridepool-backend/internal/app/accounts"
	"ridepool-backend/internal/app/registry"
	"ridepool-backend/internal/app/trips"
	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/platform/locking"
	"ridepool-backend/internal/ports/out/events"
)

// fixture wires the three services against memory adapters with a shared
// lock registry, the same way cmd/api does.
type fixture struct {
	accounts *accounts.Service
	registry *registry.Service
	trips    *trips.Service

	accountRepo  *memaccountrepo.Repo
	tripRepo     *memtriprepo.Repo
	registryRepo *memregistryrepo.Repo
	recorder     *eventsrecorder.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	accountRepo := memaccountrepo.NewRepo()
	tripRepo := memtriprepo.NewRepo()
	registryRepo := memregistryrepo.NewRepo()
	rec := eventsrecorder.New()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	locks := locking.NewKeyed()

	f := &fixture{
		accounts:     accounts.NewService(accountRepo, clk, locks, rec),
		registry:     registry.NewService(registryRepo, clk, locks, rec),
		trips:        trips.NewService(tripRepo, accountRepo, registryRepo, clk, locks, rec),
		accountRepo:  accountRepo,
		tripRepo:     tripRepo,
		registryRepo: registryRepo,
		recorder:     rec,
	}
	f.registry.SetNewRegistryIDForTest(func() domain.RegistryID { return "r1" })

	tripSeq := 0
	f.trips.SetNewTripIDForTest(func() domain.TripID {
		tripSeq++
		return domain.TripID(fmt.Sprintf("t%d", tripSeq))
	})
	return f
}

func (f *fixture) fundAccount(t *testing.T, addr domain.Address, amount int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.accounts.Register(ctx, addr); err != nil {
		t.Fatalf("Register %s: %v", addr, err)
	}
	if amount > 0 {
		if _, err := f.accounts.Deposit(ctx, addr, addr, amount); err != nil {
			t.Fatalf("Deposit %s: %v", addr, err)
		}
	}
}

func (f *fixture) createTrip(t *testing.T, fare int64) trips.TripCreated {
	t.Helper()
	ctx := context.Background()
	created, err := f.trips.Create(ctx, "operator", "r1", trips.CreateTripInput{
		Driver:      "driver-1",
		Destination: "downtown",
		Fare:        fare,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return created
}

func (f *fixture) initRegistry(t *testing.T) {
	t.Helper()
	if _, err := f.registry.Initialize(context.Background(), "operator"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func TestService_Create_ManagementOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)

	_, err := f.trips.Create(context.Background(), "mallory", "r1", trips.CreateTripInput{Driver: "driver-1", Fare: 30})
	var ae *trips.Error
	if !errors.As(err, &ae) || ae.Code != "NOT_OWNER" {
		t.Fatalf("err=%v", err)
	}
}

func TestService_Create_CatalogsTripAndIssuesToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)

	created := f.createTrip(t, 30)
	if created.ID != "t1" || created.CompletionToken == "" {
		t.Fatalf("created=%+v", created)
	}

	ids, err := f.registry.ViewTrips(context.Background(), "r1")
	if err != nil {
		t.Fatalf("ViewTrips: %v", err)
	}
	if len(ids) != 1 || ids[0] != "t1" {
		t.Fatalf("ids=%v", ids)
	}

	got, err := f.trips.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Driver != "driver-1" || got.Destination != "downtown" || got.Fare != 30 || got.Completed {
		t.Fatalf("trip=%+v", got)
	}
}

func TestService_Create_RejectsBadInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   trips.CreateTripInput
	}{
		{"zero fare", trips.CreateTripInput{Driver: "driver-1", Fare: 0}},
		{"negative fare", trips.CreateTripInput{Driver: "driver-1", Fare: -5}},
		{"empty driver", trips.CreateTripInput{Driver: "  ", Fare: 30}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.trips.Create(ctx, "operator", "r1", tc.in)
			var ae *trips.Error
			if !errors.As(err, &ae) || ae.Status != 422 {
				t.Fatalf("err=%v", err)
			}
		})
	}
}

func TestService_Join_DebitsFareIntoPool(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	f.fundAccount(t, "alice", 100)
	f.createTrip(t, 30)
	ctx := context.Background()

	got, err := f.trips.Join(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.Pool != 30 || len(got.Passengers) != 1 || got.Passengers[0] != "alice" {
		t.Fatalf("trip=%+v", got)
	}

	a, err := f.accounts.Get(ctx, "alice", "alice")
	if err != nil || a.Balance != 70 {
		t.Fatalf("balance=%d err=%v", a.Balance, err)
	}
}

func TestService_Join_PoolInvariantHoldsAcrossJoins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	f.createTrip(t, 25)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		addr := domain.Address(fmt.Sprintf("p%d", i))
		f.fundAccount(t, addr, 200)
		got, err := f.trips.Join(ctx, addr, "t1")
		if err != nil {
			t.Fatalf("Join %s: %v", addr, err)
		}
		if want := int64(25 * (i + 1)); got.Pool != want || int64(25*len(got.Passengers)) != got.Pool {
			t.Fatalf("after join %d: pool=%d passengers=%d", i+1, got.Pool, len(got.Passengers))
		}
	}
}

func TestService_Join_DuplicateJoinPaysTwice(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	f.fundAccount(t, "alice", 100)
	f.createTrip(t, 30)
	ctx := context.Background()

	if _, err := f.trips.Join(ctx, "alice", "t1"); err != nil {
		t.Fatalf("Join 1: %v", err)
	}
	got, err := f.trips.Join(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("Join 2: %v", err)
	}
	if got.Pool != 60 || len(got.Passengers) != 2 {
		t.Fatalf("trip=%+v", got)
	}

	a, _ := f.accounts.Get(ctx, "alice", "alice")
	if a.Balance != 40 {
		t.Fatalf("balance=%d", a.Balance)
	}
}

func TestService_Join_InsufficientBalanceChangesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	f.fundAccount(t, "alice", 10)
	f.createTrip(t, 30)
	ctx := context.Background()

	_, err := f.trips.Join(ctx, "alice", "t1")
	var ae *trips.Error
	if !errors.As(err, &ae) || ae.Code != "INSUFFICIENT_BALANCE" {
		t.Fatalf("err=%v", err)
	}

	a, _ := f.accounts.Get(ctx, "alice", "alice")
	if a.Balance != 10 {
		t.Fatalf("balance=%d", a.Balance)
	}
	got, _ := f.trips.Get(ctx, "t1")
	if got.Pool != 0 || len(got.Passengers) != 0 {
		t.Fatalf("trip=%+v", got)
	}
}

func TestService_Join_PoolOverflowChangesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	f.fundAccount(t, "alice", math.MaxInt64)
	f.fundAccount(t, "bob", math.MaxInt64)
	created := f.createTrip(t, math.MaxInt64)
	ctx := context.Background()

	if _, err := f.trips.Join(ctx, "alice", created.ID); err != nil {
		t.Fatalf("Join alice: %v", err)
	}

	_, err := f.trips.Join(ctx, "bob", created.ID)
	var ae *trips.Error
	if !errors.As(err, &ae) || ae.Code != "VALUE_OVERFLOW" {
		t.Fatalf("err=%v", err)
	}

	b, _ := f.accounts.Get(ctx, "bob", "bob")
	if b.Balance != math.MaxInt64 {
		t.Fatalf("balance=%d", b.Balance)
	}
	got, _ := f.trips.Get(ctx, created.ID)
	if got.Pool != math.MaxInt64 || len(got.Passengers) != 1 {
		t.Fatalf("trip=%+v", got)
	}
}

func TestService_Join_UnregisteredCaller(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	f.createTrip(t, 30)

	_, err := f.trips.Join(context.Background(), "ghost", "t1")
	var ae *trips.Error
	if !errors.As(err, &ae) || ae.Code != "NOT_PASSENGER" {
		t.Fatalf("err=%v", err)
	}
}

func TestService_Complete_DrainsPoolToDriver(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	f.fundAccount(t, "alice", 100)
	f.fundAccount(t, "bob", 100)
	created := f.createTrip(t, 30)
	ctx := context.Background()

	if _, err := f.trips.Join(ctx, "alice", "t1"); err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	if _, err := f.trips.Join(ctx, "bob", "t1"); err != nil {
		t.Fatalf("Join bob: %v", err)
	}

	got, payout, err := f.trips.Complete(ctx, "t1", created.CompletionToken)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !got.Completed || got.Pool != 0 {
		t.Fatalf("trip=%+v", got)
	}
	if payout.To != "driver-1" || payout.Amount != 60 {
		t.Fatalf("payout=%+v", payout)
	}

	// Second completion fails with TRIP_COMPLETED and changes nothing.
	_, _, err = f.trips.Complete(ctx, "t1", created.CompletionToken)
	var ae *trips.Error
	if !errors.As(err, &ae) || ae.Code != "TRIP_COMPLETED" {
		t.Fatalf("err=%v", err)
	}
	if got := f.recorder.OfType(events.TypeTripCompleted); len(got) != 1 {
		t.Fatalf("completed events=%d", len(got))
	}
}

func TestService_Complete_TokenMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	f.createTrip(t, 30)
	ctx := context.Background()

	var ae *trips.Error
	if _, _, err := f.trips.Complete(ctx, "t1", "not-the-token"); !errors.As(err, &ae) || ae.Code != "NOT_OWNER" {
		t.Fatalf("err=%v", err)
	}
	if _, _, err := f.trips.Complete(ctx, "t1", ""); !errors.As(err, &ae) || ae.Code != "NOT_OWNER" {
		t.Fatalf("err=%v", err)
	}

	got, _ := f.trips.Get(ctx, "t1")
	if got.Completed {
		t.Fatalf("trip=%+v", got)
	}
}

func TestService_Complete_TokenIsBoundToOneTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	created1 := f.createTrip(t, 30)
	f.createTrip(t, 40)
	ctx := context.Background()

	_, _, err := f.trips.Complete(ctx, "t2", created1.CompletionToken)
	var ae *trips.Error
	if !errors.As(err, &ae) || ae.Code != "NOT_OWNER" {
		t.Fatalf("err=%v", err)
	}
}

func TestService_Complete_CreditsServiceFeeToWallet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	ctx := context.Background()
	if _, err := f.registry.SetFee(ctx, "operator", "r1", 15); err != nil {
		t.Fatalf("SetFee: %v", err)
	}
	f.fundAccount(t, "alice", 100)
	created := f.createTrip(t, 30)
	if _, err := f.trips.Join(ctx, "alice", "t1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	_, payout, err := f.trips.Complete(ctx, "t1", created.CompletionToken)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if payout.Amount != 15 {
		t.Fatalf("payout=%+v", payout)
	}

	reg, err := f.registry.Get(ctx, "r1")
	if err != nil || reg.Wallet != 15 {
		t.Fatalf("wallet=%d err=%v", reg.Wallet, err)
	}
}

func TestService_Complete_FeeCappedAtPool(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	ctx := context.Background()
	if _, err := f.registry.SetFee(ctx, "operator", "r1", 1000); err != nil {
		t.Fatalf("SetFee: %v", err)
	}
	f.fundAccount(t, "alice", 100)
	created := f.createTrip(t, 30)
	if _, err := f.trips.Join(ctx, "alice", "t1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	_, payout, err := f.trips.Complete(ctx, "t1", created.CompletionToken)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if payout.Amount != 0 {
		t.Fatalf("payout=%+v", payout)
	}
	reg, _ := f.registry.Get(ctx, "r1")
	if reg.Wallet != 30 {
		t.Fatalf("wallet=%d", reg.Wallet)
	}
}

func TestService_Complete_WalletOverflowLeavesTripOpen(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	ctx := context.Background()
	if _, err := f.registry.SetFee(ctx, "operator", "r1", math.MaxInt64); err != nil {
		t.Fatalf("SetFee: %v", err)
	}

	f.fundAccount(t, "alice", math.MaxInt64)
	first := f.createTrip(t, math.MaxInt64)
	if _, err := f.trips.Join(ctx, "alice", first.ID); err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	if _, _, err := f.trips.Complete(ctx, first.ID, first.CompletionToken); err != nil {
		t.Fatalf("Complete first: %v", err)
	}
	reg, _ := f.registry.Get(ctx, "r1")
	if reg.Wallet != math.MaxInt64 {
		t.Fatalf("wallet=%d", reg.Wallet)
	}

	f.fundAccount(t, "bob", 10)
	second := f.createTrip(t, 10)
	if _, err := f.trips.Join(ctx, "bob", second.ID); err != nil {
		t.Fatalf("Join bob: %v", err)
	}

	_, _, err := f.trips.Complete(ctx, second.ID, second.CompletionToken)
	var ae *trips.Error
	if !errors.As(err, &ae) || ae.Code != "VALUE_OVERFLOW" {
		t.Fatalf("err=%v", err)
	}

	got, _ := f.trips.Get(ctx, second.ID)
	if got.Completed || got.Pool != 10 {
		t.Fatalf("trip=%+v", got)
	}
	reg, _ = f.registry.Get(ctx, "r1")
	if reg.Wallet != math.MaxInt64 {
		t.Fatalf("wallet=%d", reg.Wallet)
	}
}

func TestService_Join_AfterCompletion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	f.fundAccount(t, "alice", 100)
	created := f.createTrip(t, 30)
	ctx := context.Background()

	if _, _, err := f.trips.Complete(ctx, "t1", created.CompletionToken); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	_, err := f.trips.Join(ctx, "alice", "t1")
	var ae *trips.Error
	if !errors.As(err, &ae) || ae.Code != "TRIP_COMPLETED" {
		t.Fatalf("err=%v", err)
	}
	a, _ := f.accounts.Get(ctx, "alice", "alice")
	if a.Balance != 100 {
		t.Fatalf("balance=%d", a.Balance)
	}
}

// TestService_EndToEndScenario walks the canonical flow: fund two accounts,
// join both, complete once, then observe the second completion rejected.
func TestService_EndToEndScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.initRegistry(t)
	ctx := context.Background()

	f.fundAccount(t, "a", 100)
	created := f.createTrip(t, 30)

	if _, err := f.trips.Join(ctx, "a", "t1"); err != nil {
		t.Fatalf("Join a: %v", err)
	}
	a, _ := f.accounts.Get(ctx, "a", "a")
	if a.Balance != 70 {
		t.Fatalf("a.balance=%d", a.Balance)
	}

	f.fundAccount(t, "b", 100)
	if _, err := f.trips.Join(ctx, "b", "t1"); err != nil {
		t.Fatalf("Join b: %v", err)
	}
	tr, _ := f.trips.Get(ctx, "t1")
	if tr.Pool != 60 || len(tr.Passengers) != 2 || tr.Passengers[0] != "a" || tr.Passengers[1] != "b" {
		t.Fatalf("trip=%+v", tr)
	}

	_, payout, err := f.trips.Complete(ctx, "t1", created.CompletionToken)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if payout.To != "driver-1" || payout.Amount != 60 {
		t.Fatalf("payout=%+v", payout)
	}

	_, _, err = f.trips.Complete(ctx, "t1", created.CompletionToken)
	var ae *trips.Error
	if !errors.As(err, &ae) || ae.Code != "TRIP_COMPLETED" {
		t.Fatalf("err=%v", err)
	}
	// Exactly one payout was produced for the driver.
	if got := f.recorder.OfType(events.TypeTripCompleted); len(got) != 1 || got[0].Amount != 60 {
		t.Fatalf("completed events=%+v", got)
	}
}
