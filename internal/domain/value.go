package domain

import "math"

// AddValue adds two non-negative value amounts and reports whether the sum
// fits in int64. Callers must treat ok == false as a rejected operation so
// no balance, pool, or wallet ever wraps negative.
func AddValue(a, b int64) (int64, bool) {
	if b > math.MaxInt64-a {
		return 0, false
	}
	return a + b, true
}
