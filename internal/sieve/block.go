// Package sieve implements blocks of the segmented sieve of Eratosthenes and
// the engine that marks and harvests them.
//
// A block covers the half-open range [start, end). Its composite cache holds
// one flag per odd number in the range; even numbers other than 2 are never
// candidates. Results are appended in increasing order into a buffer whose
// capacity is fixed at allocation time.
package sieve

import (
	"fmt"

	primeerrors "github.com/tamirms/primesieve/errors"
	"github.com/tamirms/primesieve/internal/arena"
	"github.com/tamirms/primesieve/internal/bits"
)

// seeds bootstrap the root block. Every prime below 8 is listed, so a root
// block ending at or below 8 is complete after seeding.
var seeds = [...]uint64{2, 3, 5, 7}

// Block is a contiguous sub-range of the search space with its own result
// buffer and composite cache.
//
// A Block is NOT safe for concurrent mutation. During a parallel group each
// block is owned by exactly one worker; the root block is only read.
type Block struct {
	start, end uint64

	capacity int
	region   []byte   // single allocation: results then cache
	results  []uint64 // view into region, fixed capacity
	cache    []byte   // view into region, one bit per odd candidate
	firstOdd uint64   // number represented by cache bit 0

	clearCursor int    // source primes already applied to cache
	harvestFrom uint64 // next odd candidate to harvest
	executed    bool
	freed       bool
}

// NewBlock describes the block [start, end) without allocating it.
func NewBlock(start, end uint64) *Block {
	return &Block{
		start:    start,
		end:      end,
		capacity: Capacity(start, end),
		firstOdd: start | 1,
	}
}

// Capacity returns the result capacity for [start, end): the range size
// divided by floor(log10(size)). This bounds the prime count of any window of
// that size (Brun–Titchmarsh gives fewer than 2y/ln y primes in a window of
// length y, and y/log10 y is larger). Ranges under 100 get one slot per
// number; ranges ending at or below 2 hold no primes.
func Capacity(start, end uint64) int {
	if end <= 2 || end <= start {
		return 0
	}
	size := end - start
	digits := uint64(0)
	for s := size; s >= 10; s /= 10 {
		digits++
	}
	if digits < 2 {
		return int(size)
	}
	return int(size / digits)
}

// Start returns the first number covered by the block.
func (b *Block) Start() uint64 { return b.start }

// End returns one past the last number covered by the block.
func (b *Block) End() uint64 { return b.end }

// Capacity returns the fixed result capacity of the block.
func (b *Block) Capacity() int { return b.capacity }

// Results returns the primes harvested so far, in increasing order.
// The slice aliases block storage and is invalid after Free.
func (b *Block) Results() []uint64 { return b.results }

// Executed reports whether the block has been fully sieved.
func (b *Block) Executed() bool { return b.executed }

// Allocated reports whether the block currently holds storage.
func (b *Block) Allocated() bool { return b.region != nil }

// oddCount returns the number of odd candidates in the block.
func (b *Block) oddCount() uint64 {
	if b.end <= b.firstOdd {
		return 0
	}
	return (b.end - b.firstOdd + 1) / 2
}

// RegionSize returns the number of bytes Alloc requests for the block.
func (b *Block) RegionSize() int {
	if b.capacity == 0 {
		return 0
	}
	return b.capacity*8 + int(bits.Bytes(b.oddCount()))
}

// Alloc sizes the block's storage from a. A block with zero capacity never
// allocates. Calling Alloc on an allocated block is a no-op.
func (b *Block) Alloc(a arena.Allocator) error {
	if b.region != nil || b.capacity == 0 {
		return nil
	}
	if b.freed {
		return fmt.Errorf("%w: block [%d, %d) reallocated after free",
			primeerrors.ErrResourceExhausted, b.start, b.end)
	}
	region, err := a.Alloc(b.RegionSize())
	if err != nil {
		return fmt.Errorf("block [%d, %d): %w", b.start, b.end, err)
	}
	b.region = region
	b.results = arena.Uint64s(region, b.capacity)
	b.cache = region[b.capacity*8:]
	b.harvestFrom = b.firstOdd
	if b.harvestFrom == 1 {
		b.harvestFrom = 3
	}
	return nil
}

// Free releases the block's storage. Only the first call has any effect.
func (b *Block) Free(a arena.Allocator) error {
	if b.freed {
		return nil
	}
	b.freed = true
	region := b.region
	b.region, b.results, b.cache = nil, nil, nil
	if region == nil {
		return nil
	}
	return a.Free(region)
}

// Seed appends the bootstrap primes below end and moves the harvest point
// past them. Only the root block is seeded.
func (b *Block) Seed() error {
	for _, p := range seeds {
		if p >= b.end {
			break
		}
		if err := b.appendResult(p); err != nil {
			return err
		}
	}
	b.harvestFrom = max(b.harvestFrom, seeds[len(seeds)-1]+2)
	return nil
}

func (b *Block) appendResult(p uint64) error {
	if len(b.results) == cap(b.results) {
		return fmt.Errorf("%w: block [%d, %d) holds %d primes",
			primeerrors.ErrBlockOverflow, b.start, b.end, cap(b.results))
	}
	b.results = append(b.results, p)
	return nil
}

// cacheIndex maps an odd number in the block to its cache bit.
func (b *Block) cacheIndex(odd uint64) uint64 {
	return (odd - b.firstOdd) >> 1
}
