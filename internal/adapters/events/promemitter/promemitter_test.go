package promemitter

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ridepool-backend/internal/platform/metrics"
	"ridepool-backend/internal/ports/out/events"
)

func TestEmitter_MapsEventsToCounters(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	e := New(m)

	e.Emit(events.Event{Type: events.TypeAccountRegistered, Address: "a"})
	e.Emit(events.Event{Type: events.TypeDeposited, Address: "a", Amount: 100})
	e.Emit(events.Event{Type: events.TypeTripJoined, Address: "a", TripID: "t1", Amount: 30})
	e.Emit(events.Event{Type: events.TypeFeeCollected, RegistryID: "r1", Amount: 5})
	e.Emit(events.Event{Type: events.TypeTripCompleted, TripID: "t1", Amount: 25})

	if got := testutil.ToFloat64(m.AccountsRegistered); got != 1 {
		t.Fatalf("accounts registered = %v", got)
	}
	if got := testutil.ToFloat64(m.ValueDeposited); got != 100 {
		t.Fatalf("value deposited = %v", got)
	}
	if got := testutil.ToFloat64(m.TripJoins); got != 1 {
		t.Fatalf("trip joins = %v", got)
	}
	if got := testutil.ToFloat64(m.ValueEscrowed); got != 30 {
		t.Fatalf("value escrowed = %v", got)
	}
	if got := testutil.ToFloat64(m.FeesCollected); got != 5 {
		t.Fatalf("fees collected = %v", got)
	}
	if got := testutil.ToFloat64(m.ValueDisbursed); got != 25 {
		t.Fatalf("value disbursed = %v", got)
	}
	if got := testutil.ToFloat64(m.TripCompletions); got != 1 {
		t.Fatalf("trip completions = %v", got)
	}
}
