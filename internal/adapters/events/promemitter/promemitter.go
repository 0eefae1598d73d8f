package promemitter

import (
	"ridepool-backend/internal/platform/metrics"
	"ridepool-backend/internal/ports/out/events"
)

// Emitter maps state-change events onto Prometheus counters. Keeping the
// mapping here leaves the application services free of metrics types.
type Emitter struct {
	m *metrics.Metrics
}

func New(m *metrics.Metrics) *Emitter {
	return &Emitter{m: m}
}

func (e *Emitter) Emit(ev events.Event) {
	if e.m == nil {
		return
	}
	switch ev.Type {
	case events.TypeAccountRegistered:
		e.m.AccountsRegistered.Inc()
	case events.TypeDeposited:
		e.m.ValueDeposited.Add(float64(ev.Amount))
	case events.TypeWithdrawn, events.TypeWalletWithdrawn:
		e.m.ValueDisbursed.Add(float64(ev.Amount))
	case events.TypeTripCreated:
		e.m.TripsCreated.Inc()
	case events.TypeTripJoined:
		e.m.TripJoins.Inc()
		e.m.ValueEscrowed.Add(float64(ev.Amount))
	case events.TypeTripCompleted:
		e.m.TripCompletions.Inc()
		e.m.ValueDisbursed.Add(float64(ev.Amount))
	case events.TypeFeeCollected:
		e.m.FeesCollected.Add(float64(ev.Amount))
	}
}
