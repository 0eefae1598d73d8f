package domain

// Payout is releasable value leaving custody. The core only produces the
// record; actual submission/signing is the calling infrastructure's concern.
type Payout struct {
	To     Address
	Amount int64
}
