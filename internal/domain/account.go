package domain

// Account is the read model for a passenger's custodial balance record.
//
// Balance is an integer amount in the smallest currency unit and is never
// negative after any operation sequence.
type Account struct {
	Address Address
	Balance int64
}
