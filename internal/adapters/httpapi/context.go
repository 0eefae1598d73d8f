package httpapi

import (
	"context"

	"ridepool-backend/internal/domain"
)

type callerKey struct{}

func WithCaller(ctx context.Context, caller domain.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFromContext(ctx context.Context) (domain.Address, bool) {
	v, ok := ctx.Value(callerKey{}).(domain.Address)
	return v, ok && v != ""
}
