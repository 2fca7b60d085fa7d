package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// RoundUp rounds v up to the next multiple of align. align must be non-zero.
func RoundUp[T ~uint32 | ~uint64 | ~int](v, align T) T {
	return (v + align - 1) / align * align
}

// Clamp limits v to the range [lo, hi].
func Clamp[T ~int32 | ~uint32 | ~float32](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
