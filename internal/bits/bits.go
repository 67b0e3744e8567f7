// Package bits provides the dense bitset backing each block's composite cache.
package bits

// Bytes returns the number of bytes needed to hold n flags.
func Bytes(n uint64) uint64 {
	return (n + 7) >> 3
}

// Set raises flag i.
func Set(b []byte, i uint64) {
	b[i>>3] |= 1 << (i & 7)
}

// IsSet reports whether flag i is raised.
func IsSet(b []byte, i uint64) bool {
	return b[i>>3]&(1<<(i&7)) != 0
}
