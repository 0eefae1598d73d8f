package domain

import "strings"

// NormalizeAddress trims surrounding whitespace from an externally supplied
// address. Address content is otherwise opaque and preserved byte-for-byte.
func NormalizeAddress(s string) Address {
	return Address(strings.TrimSpace(s))
}
