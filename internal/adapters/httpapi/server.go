package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ridepool-backend/internal/app/accounts"
	"ridepool-backend/internal/app/registry"
	"ridepool-backend/internal/app/trips"
	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// Server is the HTTP adapter. Handlers decode requests, delegate to the
// application services, and map typed service errors to HTTP responses.
type Server struct {
	Accounts *accounts.Service
	Registry *registry.Service
	Trips    *trips.Service
	Idem     idempotency.Store
}

func NewServer(accountsSvc *accounts.Service, registrySvc *registry.Service, tripsSvc *trips.Service, idem idempotency.Store) *Server {
	return &Server{
		Accounts: accountsSvc,
		Registry: registrySvc,
		Trips:    tripsSvc,
		Idem:     idem,
	}
}

// --- response shapes ---

type accountView struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

type payoutView struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type tripView struct {
	ID          string   `json:"id"`
	RegistryID  string   `json:"registryId"`
	Driver      string   `json:"driver"`
	Destination string   `json:"destination"`
	Fare        int64    `json:"fare"`
	Passengers  []string `json:"passengers"`
	Pool        int64    `json:"pool"`
	Completed   bool     `json:"completed"`
}

type registryView struct {
	ID         string `json:"id"`
	Management string `json:"management"`
	ServiceFee int64  `json:"serviceFee"`
	Wallet     int64  `json:"wallet"`
}

func accountViewFromDomain(a domain.Account) accountView {
	return accountView{Address: string(a.Address), Balance: a.Balance}
}

func payoutViewFromDomain(p domain.Payout) payoutView {
	return payoutView{To: string(p.To), Amount: p.Amount}
}

func tripViewFromDomain(t domain.Trip) tripView {
	passengers := make([]string, 0, len(t.Passengers))
	for _, p := range t.Passengers {
		passengers = append(passengers, string(p))
	}
	return tripView{
		ID:          string(t.ID),
		RegistryID:  string(t.RegistryID),
		Driver:      string(t.Driver),
		Destination: t.Destination,
		Fare:        t.Fare,
		Passengers:  passengers,
		Pool:        t.Pool,
		Completed:   t.Completed,
	}
}

func registryViewFromDomain(r domain.Registry) registryView {
	return registryView{
		ID:         string(r.ID),
		Management: string(r.Management),
		ServiceFee: r.ServiceFee,
		Wallet:     r.Wallet,
	}
}

// --- accounts ---

func (s *Server) handleRegisterAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	a, err := s.Accounts.Register(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"account": accountViewFromDomain(a)})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	address := domain.NormalizeAddress(chi.URLParam(r, "address"))
	a, err := s.Accounts.Get(r.Context(), caller, address)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": accountViewFromDomain(a)})
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	address := domain.NormalizeAddress(chi.URLParam(r, "address"))

	s.runIdempotent(w, r, caller, "POST /accounts/{address}/deposits", func(body []byte) (int, any, error) {
		var req amountRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return 0, nil, &accounts.Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid request body"}
		}
		a, err := s.Accounts.Deposit(r.Context(), caller, address, req.Amount)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]any{"account": accountViewFromDomain(a)}, nil
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	address := domain.NormalizeAddress(chi.URLParam(r, "address"))

	s.runIdempotent(w, r, caller, "POST /accounts/{address}/withdrawals", func(body []byte) (int, any, error) {
		var req amountRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return 0, nil, &accounts.Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid request body"}
		}
		a, payout, err := s.Accounts.Withdraw(r.Context(), caller, address, req.Amount)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]any{
			"account": accountViewFromDomain(a),
			"payout":  payoutViewFromDomain(payout),
		}, nil
	})
}

// --- registries ---

func (s *Server) handleInitializeRegistry(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	reg, err := s.Registry.Initialize(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"registry": registryViewFromDomain(reg)})
}

func (s *Server) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	id := domain.RegistryID(chi.URLParam(r, "registryID"))
	reg, err := s.Registry.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registry": registryViewFromDomain(reg)})
}

type setFeeRequest struct {
	ServiceFee int64 `json:"serviceFee"`
}

func (s *Server) handleSetFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	id := domain.RegistryID(chi.URLParam(r, "registryID"))

	var req setFeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	reg, err := s.Registry.SetFee(r.Context(), caller, id, req.ServiceFee)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registry": registryViewFromDomain(reg)})
}

func (s *Server) handleWalletWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	id := domain.RegistryID(chi.URLParam(r, "registryID"))

	s.runIdempotent(w, r, caller, "POST /registries/{registryID}/wallet/withdrawals", func(body []byte) (int, any, error) {
		var req amountRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return 0, nil, &registry.Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid request body"}
		}
		reg, payout, err := s.Registry.WithdrawWallet(r.Context(), caller, id, req.Amount)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]any{
			"registry": registryViewFromDomain(reg),
			"payout":   payoutViewFromDomain(payout),
		}, nil
	})
}

func (s *Server) handleListRegistryTrips(w http.ResponseWriter, r *http.Request) {
	id := domain.RegistryID(chi.URLParam(r, "registryID"))
	ids, err := s.Registry.ViewTrips(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]string, 0, len(ids))
	for _, tid := range ids {
		out = append(out, string(tid))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tripIds": out})
}

// --- trips ---

type createTripRequest struct {
	Driver      string `json:"driver"`
	Destination string `json:"destination"`
	Fare        int64  `json:"fare"`
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	registryID := domain.RegistryID(chi.URLParam(r, "registryID"))

	var req createTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	created, err := s.Trips.Create(r.Context(), caller, registryID, trips.CreateTripInput{
		Driver:      domain.Address(req.Driver),
		Destination: req.Destination,
		Fare:        req.Fare,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	// The completion token is returned exactly once, here.
	writeJSON(w, http.StatusCreated, map[string]any{
		"tripId":          string(created.ID),
		"completionToken": created.CompletionToken,
	})
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	id := domain.TripID(chi.URLParam(r, "tripID"))
	t, err := s.Trips.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trip": tripViewFromDomain(t)})
}

func (s *Server) handleJoinTrip(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	id := domain.TripID(chi.URLParam(r, "tripID"))
	t, err := s.Trips.Join(r.Context(), caller, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trip": tripViewFromDomain(t)})
}

type completeTripRequest struct {
	CompletionToken string `json:"completionToken"`
}

func (s *Server) handleCompleteTrip(w http.ResponseWriter, r *http.Request) {
	id := domain.TripID(chi.URLParam(r, "tripID"))

	var req completeTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	t, payout, err := s.Trips.Complete(r.Context(), id, req.CompletionToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trip":   tripViewFromDomain(t),
		"payout": payoutViewFromDomain(payout),
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

// runIdempotent wraps a value-releasing POST handler with idempotency-key
// handling:
//   - replay the stored response for same key+caller+route+body
//   - reject key reuse with a different body (409)
//
// The record stored under an empty body hash carries the first body's hash so
// reuse can be detected before re-executing the operation.
func (s *Server) runIdempotent(w http.ResponseWriter, r *http.Request, caller domain.Address, route string, fn func(body []byte) (int, any, error)) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing Idempotency-Key header", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unreadable request body", nil)
		return
	}
	sum := sha256.Sum256(body)
	bodyHash := hex.EncodeToString(sum[:])

	method, path, _ := strings.Cut(route, " ")
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Caller:   caller,
		Method:   method,
		Route:    path,
		BodyHash: "",
	}

	if s.Idem != nil {
		if meta, ok, err := s.Idem.Get(r.Context(), metaFP); err == nil && ok {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else if err == nil {
			_ = s.Idem.Put(r.Context(), metaFP, idempotency.Record{
				StatusCode:  0,
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   time.Now().UTC(),
			})
		}

		respFP := metaFP
		respFP.BodyHash = bodyHash
		if rec, ok, err := s.Idem.Get(r.Context(), respFP); err == nil && ok && strings.HasPrefix(rec.ContentType, "application/json") {
			w.Header().Set("Content-Type", rec.ContentType)
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	status, payload, err := fn(body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	if s.Idem != nil {
		respFP := metaFP
		respFP.BodyHash = bodyHash
		_ = s.Idem.Put(r.Context(), respFP, idempotency.Record{
			StatusCode:  status,
			ContentType: "application/json",
			Body:        buf,
			CreatedAt:   time.Now().UTC(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}
