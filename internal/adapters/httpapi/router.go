package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterOptions carries optional wiring for the router.
type RouterOptions struct {
	// AuthMiddleware authenticates requests and stores the caller address in
	// request context. Required for all API routes; /healthz and /metrics
	// bypass it.
	AuthMiddleware func(http.Handler) http.Handler

	// MetricsHandler, when set, is mounted at /metrics.
	MetricsHandler http.Handler
}

// NewRouter constructs the API HTTP router with default options.
func NewRouter(s *Server, authMW func(http.Handler) http.Handler) http.Handler {
	return NewRouterWithOptions(s, RouterOptions{AuthMiddleware: authMW})
}

func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoint is used for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}

		r.Post("/accounts", s.handleRegisterAccount)
		r.Get("/accounts/{address}", s.handleGetAccount)
		r.Post("/accounts/{address}/deposits", s.handleDeposit)
		r.Post("/accounts/{address}/withdrawals", s.handleWithdraw)

		r.Post("/registries", s.handleInitializeRegistry)
		r.Get("/registries/{registryID}", s.handleGetRegistry)
		r.Put("/registries/{registryID}/fee", s.handleSetFee)
		r.Post("/registries/{registryID}/wallet/withdrawals", s.handleWalletWithdraw)
		r.Get("/registries/{registryID}/trips", s.handleListRegistryTrips)
		r.Post("/registries/{registryID}/trips", s.handleCreateTrip)

		r.Get("/trips/{tripID}", s.handleGetTrip)
		r.Post("/trips/{tripID}/passengers", s.handleJoinTrip)
		r.Post("/trips/{tripID}/completion", s.handleCompleteTrip)
	})

	return r
}
