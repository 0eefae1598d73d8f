package trips

import "ridepool-backend/internal/domain"

type CreateTripInput struct {
	Driver      domain.Address
	Destination string
	Fare        int64
}

// TripCreated is returned when a trip is created. CompletionToken is the
// capability authorizing completion; it is surfaced here exactly once and is
// never readable afterwards.
type TripCreated struct {
	ID              domain.TripID
	CompletionToken string
}
