package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the custody engine.
type Metrics struct {
	AccountsRegistered prometheus.Counter
	TripsCreated       prometheus.Counter
	TripJoins          prometheus.Counter
	TripCompletions    prometheus.Counter

	ValueDeposited prometheus.Counter
	ValueEscrowed  prometheus.Counter
	ValueDisbursed prometheus.Counter
	FeesCollected  prometheus.Counter
}

// New registers all instruments on reg. Passing a fresh registry keeps tests
// independent; production wiring uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AccountsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "ridepool_accounts_registered_total",
			Help: "Total ledger accounts registered.",
		}),
		TripsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "ridepool_trips_created_total",
			Help: "Total trips created.",
		}),
		TripJoins: f.NewCounter(prometheus.CounterOpts{
			Name: "ridepool_trip_joins_total",
			Help: "Total passenger joins across all trips.",
		}),
		TripCompletions: f.NewCounter(prometheus.CounterOpts{
			Name: "ridepool_trip_completions_total",
			Help: "Total trips completed.",
		}),
		ValueDeposited: f.NewCounter(prometheus.CounterOpts{
			Name: "ridepool_value_deposited_total",
			Help: "Total value deposited into ledger accounts (smallest unit).",
		}),
		ValueEscrowed: f.NewCounter(prometheus.CounterOpts{
			Name: "ridepool_value_escrowed_total",
			Help: "Total value committed into trip escrow pools (smallest unit).",
		}),
		ValueDisbursed: f.NewCounter(prometheus.CounterOpts{
			Name: "ridepool_value_disbursed_total",
			Help: "Total value released as payouts (smallest unit).",
		}),
		FeesCollected: f.NewCounter(prometheus.CounterOpts{
			Name: "ridepool_fees_collected_total",
			Help: "Total operator fees credited to registry wallets (smallest unit).",
		}),
	}
}
