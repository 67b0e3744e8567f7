package primesieve

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	primeerrors "github.com/tamirms/primesieve/errors"
	"github.com/tamirms/primesieve/internal/arena"
)

// referencePrimes returns the primes below n by trial division.
func referencePrimes(n uint64) []uint64 {
	var out []uint64
	if n > 2 {
		out = append(out, 2)
	}
	for c := uint64(3); c < n; c += 2 {
		prime := true
		for _, p := range out[1:] {
			if p*p > c {
				break
			}
			if c%p == 0 {
				prime = false
				break
			}
		}
		if prime {
			out = append(out, c)
		}
	}
	return out
}

// collect drains gen with Next and fails the test on any error but ErrDone.
func collect(t testing.TB, gen *Generator) []uint64 {
	t.Helper()
	var out []uint64
	for {
		p, err := gen.Next()
		if errors.Is(err, primeerrors.ErrDone) {
			return out
		}
		require.NoError(t, err)
		out = append(out, p)
	}
}

// generateAll builds a Generator for n and drains it.
func generateAll(t testing.TB, n uint64, opts ...Option) []uint64 {
	t.Helper()
	gen, err := Generate(n, opts...)
	require.NoError(t, err)
	defer func() { require.NoError(t, gen.Close()) }()
	return collect(t, gen)
}

// trackingAllocator wraps the default allocator, counting live regions and
// optionally failing selected allocations.
type trackingAllocator struct {
	inner arena.Allocator

	mu     sync.Mutex
	allocs int
	live   int
	peak   int
	freed  int
	failOn func(call int, size int) bool // call is 1-based
}

var errInjected = errors.New("injected allocation failure")

func newTrackingAllocator() *trackingAllocator {
	return &trackingAllocator{inner: arena.Mmap()}
}

func (a *trackingAllocator) Alloc(size int) ([]byte, error) {
	a.mu.Lock()
	a.allocs++
	call := a.allocs
	fail := a.failOn != nil && a.failOn(call, size)
	a.mu.Unlock()

	if fail {
		return nil, errors.Join(primeerrors.ErrResourceExhausted, errInjected)
	}
	region, err := a.inner.Alloc(size)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.live++
	a.peak = max(a.peak, a.live)
	a.mu.Unlock()
	return region, nil
}

func (a *trackingAllocator) Free(region []byte) error {
	a.mu.Lock()
	a.live--
	a.freed++
	a.mu.Unlock()
	return a.inner.Free(region)
}

func (a *trackingAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

func (a *trackingAllocator) Peak() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peak
}
