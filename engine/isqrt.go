package engine

// ISqrt returns the integer square root of v, floor(sqrt(v)), using the
// digit-by-digit method so the result is exact for every uint64.
func ISqrt(v uint64) uint64 {
	var (
		rem = v
		res uint64
		bit uint64 = 1 << 62
	)
	for bit > rem {
		bit >>= 2
	}
	for bit != 0 {
		if rem >= res+bit {
			rem -= res + bit
			res = res>>1 + bit
		} else {
			res >>= 1
		}
		bit >>= 2
	}
	return res
}
