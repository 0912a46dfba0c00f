// Package sizing provides safe size arithmetic and conversions to prevent overflow.
package sizing

import "math"

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// AddInt64 adds two non-negative int64 values, returning (result, false) on overflow.
func AddInt64(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// NextCapacity returns the doubled capacity for a buffer of size n,
// clamped to limit when limit is non-zero. ok is false when the buffer
// is already at the limit.
func NextCapacity(n int, limit uint64) (int, bool) {
	next := n * 2
	if next <= n {
		next = math.MaxInt
	}
	if limit == 0 {
		return next, true
	}
	if uint64(n) >= limit { //nolint:gosec // n is a buffer length
		return n, false
	}
	if uint64(next) > limit { //nolint:gosec // next is positive
		next = int(limit) //nolint:gosec // limit < next fits in int
	}
	return next, true
}
