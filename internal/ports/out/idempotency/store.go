package idempotency

import (
	"context"
	"time"

	"ridepool-backend/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes.
//
// Strategy: key + caller + route + request body hash. Route is HTTP method +
// normalized path template (e.g. "POST /accounts/{address}/withdrawals").
// The record stored under an empty BodyHash holds the hash of the first body
// seen for the key, so key reuse with a different payload can be rejected.
type Fingerprint struct {
	Key      Key
	Caller   domain.Address
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
