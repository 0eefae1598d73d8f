package domain

// Registry is the read model for an operator's trip catalog and fee wallet.
type Registry struct {
	ID RegistryID

	// Management is the address authorized for operator actions. Fixed at
	// initialization; there is no transfer-of-ownership operation.
	Management Address

	// ServiceFee is the flat fee, per trip completion, credited to Wallet.
	// Zero disables fee collection.
	ServiceFee int64

	// Wallet accumulates collected fees until withdrawn by management.
	Wallet int64

	// TripIDs is the catalog of trips created under this registry, in
	// creation order.
	TripIDs []TripID
}
