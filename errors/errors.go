// Package errors defines all exported error sentinels for the primesieve library.
//
// This is the single source of truth for error values. Both the top-level
// primesieve package and internal packages import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import "errors"

// Argument errors, reported synchronously by Generate before any allocation.
var (
	ErrInvalidBound     = errors.New("primesieve: upper bound must be greater than 1")
	ErrBoundTooLarge    = errors.New("primesieve: upper bound exceeds the square of the block size")
	ErrInvalidBlockSize = errors.New("primesieve: block size is below the minimum")
)

// Resource errors
var (
	ErrResourceExhausted = errors.New("primesieve: block allocation failed")
	ErrBlockOverflow     = errors.New("primesieve: block result capacity exceeded")
)

// Sequence errors
var (
	// ErrDone is returned by Next once every prime below the bound has been
	// produced. It marks normal termination and is never wrapped.
	ErrDone            = errors.New("primesieve: no more primes")
	ErrGeneratorClosed = errors.New("primesieve: generator is closed")
)
