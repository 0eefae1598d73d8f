package domain

// Trip is the read model for a trip and its escrow pool.
//
// The completion token issued at creation is deliberately absent: it is a
// capability and is returned exactly once, by the create operation.
type Trip struct {
	ID          TripID
	RegistryID  RegistryID
	Driver      Address
	Destination string

	// Fare is the fixed per-passenger cost of joining, in the smallest
	// currency unit. Immutable after creation.
	Fare int64

	// Passengers lists joined addresses in join order. An address appears
	// once per join; joining twice pays the fare twice.
	Passengers []Address

	// Pool is the escrowed value. While the trip is active,
	// Pool == Fare * len(Passengers).
	Pool int64

	// Completed is monotonic: once true the trip is terminal and no join or
	// completion is permitted.
	Completed bool
}
