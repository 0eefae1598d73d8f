package domain

// Address is the external identity of a custody participant (passenger,
// driver, or operator management). It is supplied by the authenticating
// collaborator (typically a JWT "sub" claim); the core treats it as an
// opaque identifier.
type Address string

// TripID identifies a trip record.
type TripID string

// RegistryID identifies an operator registry record.
type RegistryID string
