package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridepool-backend/internal/adapters/events/logemitter"
	"ridepool-backend/internal/adapters/events/promemitter"
	"ridepool-backend/internal/adapters/httpapi"
	memaccountrepo "ridepool-backend/internal/adapters/memory/accountrepo"
	memidempotency "ridepool-backend/internal/adapters/memory/idempotency"
	memregistryrepo "ridepool-backend/internal/adapters/memory/registryrepo"
	memtriprepo "ridepool-backend/internal/adapters/memory/triprepo"
	postgres "ridepool-backend/internal/adapters/postgres"
	pgaccountrepo "ridepool-backend/internal/adapters/postgres/accountrepo"
	pgidempotency "ridepool-backend/internal/adapters/postgres/idempotency"
	pgregistryrepo "ridepool-backend/internal/adapters/postgres/registryrepo"
	pgtriprepo "ridepool-backend/internal/adapters/postgres/triprepo"
	"ridepool-backend/internal/app/accounts"
	"ridepool-backend/internal/app/registry"
	"ridepool-backend/internal/app/trips"
	"ridepool-backend/internal/platform/auth/jwtverifier"
	platformclock "ridepool-backend/internal/platform/clock"
	"ridepool-backend/internal/platform/config"
	"ridepool-backend/internal/platform/locking"
	"ridepool-backend/internal/platform/metrics"
	accountrepoport "ridepool-backend/internal/ports/out/accountrepo"
	"ridepool-backend/internal/ports/out/events"
	idempotencyport "ridepool-backend/internal/ports/out/idempotency"
	registryrepoport "ridepool-backend/internal/ports/out/registryrepo"
	triprepoport "ridepool-backend/internal/ports/out/triprepo"
)

func main() {
	port := getenv("PORT", "8080")

	// Auth configuration:
	// - Production: require JWT_* env vars and enforce bearer auth
	// - Local dev: set AUTH_MODE=dev to bypass JWT verification and use X-Debug-Subject
	authMode := getenv("AUTH_MODE", "jwt")
	var authMW func(http.Handler) http.Handler
	switch authMode {
	case "dev":
		authMW = httpapi.NewDevAuthMiddleware(getenv("DEV_SUBJECT", "dev|local"))
	default:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			log.Fatalf("invalid auth config: %v", err)
		}
		verifier := jwtverifier.New(jwtCfg)
		authMW = httpapi.NewAuthMiddleware(verifier)
	}

	clk := platformclock.NewSystemClock()

	storageBackend := getenv("STORAGE_BACKEND", "memory")
	var (
		accountRepo  accountrepoport.Repository
		tripRepo     triprepoport.Repository
		registryRepo registryrepoport.Repository
		idemStore    idempotencyport.Store
		cleanup      func()
	)

	switch storageBackend {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		pool, err := postgres.NewPool(context.Background(), dsn, postgres.PoolOptions{})
		if err != nil {
			log.Fatalf("invalid postgres config: %v", err)
		}
		if err := postgres.Migrate(context.Background(), pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		cleanup = pool.Close

		accountRepo = pgaccountrepo.NewRepo(pool)
		tripRepo = pgtriprepo.NewRepo(pool)
		registryRepo = pgregistryrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	default:
		accountRepo = memaccountrepo.NewRepo()
		tripRepo = memtriprepo.NewRepo()
		registryRepo = memregistryrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	if cleanup != nil {
		defer cleanup()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	emitter := events.Fanout{
		logemitter.New(log.Default()),
		promemitter.New(m),
	}

	// One lock registry serializes account, trip, and registry mutations
	// across all three services.
	locks := locking.NewKeyed()

	accountsSvc := accounts.NewService(accountRepo, clk, locks, emitter)
	registrySvc := registry.NewService(registryRepo, clk, locks, emitter)
	tripsSvc := trips.NewService(tripRepo, accountRepo, registryRepo, clk, locks, emitter)

	api := httpapi.NewServer(accountsSvc, registrySvc, tripsSvc, idemStore)

	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("api listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
