package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	memaccountrepo "ridepool-backend/internal/adapters/memory/accountrepo"
	memclock "ridepool-backend/internal/adapters/memory/clock"
	memidempotency "ridepool-backend/internal/adapters/memory/idempotency"
	memregistryrepo "ridepool-backend/internal/adapters/memory/registryrepo"
	memtriprepo "ridepool-backend/internal/adapters/memory/triprepo"
	"ridepool-backend/internal/app/accounts"
	"ridepool-backend/internal/app/registry"
	"ridepool-backend/internal/app/trips"
	"ridepool-backend/internal/platform/auth/jwks_testutil"
	"ridepool-backend/internal/platform/auth/jwtverifier"
	"ridepool-backend/internal/platform/config"
	"ridepool-backend/internal/platform/locking"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestAuthRouter(t *testing.T) (http.Handler, func(now time.Time, sub string) string) {
	t.Helper()

	jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
	t.Cleanup(jwksSrv.Close)

	kp, err := jwks_testutil.GenerateRSAKeypair("kid-1")
	if err != nil {
		t.Fatalf("GenerateRSAKeypair: %v", err)
	}
	setKeys([]jwks_testutil.Keypair{kp})

	cfg := config.JWTConfig{
		Issuer:                 "test-iss",
		Audience:               "test-aud",
		JWKSURL:                jwksSrv.URL,
		ClockSkew:              0,
		JWKSRefreshInterval:    10 * time.Minute,
		JWKSMinRefreshInterval: 0,
		HTTPTimeout:            2 * time.Second,
	}

	clk := fixedClock{t: time.Unix(1700000000, 0)}
	v := jwtverifier.NewWithOptions(cfg, nil, clk)

	mint := func(now time.Time, sub string) string {
		jwt, err := jwks_testutil.MintRS256JWT(kp, cfg.Issuer, cfg.Audience, sub, now, 5*time.Minute, nil)
		if err != nil {
			t.Fatalf("MintRS256JWT: %v", err)
		}
		return jwt
	}

	svcClk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	locks := locking.NewKeyed()
	accountRepo := memaccountrepo.NewRepo()
	api := NewServer(
		accounts.NewService(accountRepo, svcClk, locks, nil),
		registry.NewService(memregistryrepo.NewRepo(), svcClk, locks, nil),
		trips.NewService(memtriprepo.NewRepo(), accountRepo, memregistryrepo.NewRepo(), svcClk, locks, nil),
		memidempotency.NewStore(),
	)
	h := NewRouterWithOptions(api, RouterOptions{
		AuthMiddleware: NewAuthMiddleware(v),
	})

	return h, mint
}

func TestAuthMiddleware_MissingHeader_401(t *testing.T) {
	t.Parallel()

	h, _ := newTestAuthRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/accounts", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
	var er errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if er.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("code: got %q", er.Error.Code)
	}
	if er.Error.RequestID == "" {
		t.Fatalf("expected requestId to be set")
	}
}

func TestAuthMiddleware_MalformedHeader_401(t *testing.T) {
	t.Parallel()

	h, _ := newTestAuthRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/accounts", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_ValidToken_SubjectBecomesCaller(t *testing.T) {
	t.Parallel()

	h, mint := newTestAuthRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+mint(time.Unix(1700000000, 0), "rider-42"))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d want %d body=%s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var resp struct {
		Account accountView `json:"account"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Account.Address != "rider-42" {
		t.Fatalf("address=%q", resp.Account.Address)
	}
}

func TestAuthMiddleware_ExpiredToken_401(t *testing.T) {
	t.Parallel()

	h, mint := newTestAuthRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/accounts", nil)
	// Issued an hour before the verifier's fixed clock; 5 minute lifetime.
	req.Header.Set("Authorization", "Bearer "+mint(time.Unix(1700000000, 0).Add(-time.Hour), "rider-42"))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
}
