// Package arena hands out fixed-capacity, zero-filled memory regions for block
// storage. Regions are never grown; a block sizes its region once, up front,
// and gives it back exactly once.
package arena

import (
	"fmt"
	"unsafe"

	"github.com/edsrzf/mmap-go"

	primeerrors "github.com/tamirms/primesieve/errors"
)

// Allocator hands out zero-filled regions of exactly the requested size.
//
// Implementations must be safe for concurrent use: blocks in a parallel group
// allocate from the same Allocator.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(region []byte) error
}

// Mmap returns the default Allocator, backed by anonymous memory mappings.
// Each region is its own mapping, so Free returns the pages to the OS
// immediately instead of waiting for the garbage collector.
func Mmap() Allocator {
	return mmapAllocator{}
}

type mmapAllocator struct{}

func (mmapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: invalid region size %d", primeerrors.ErrResourceExhausted, size)
	}
	mm, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: map %d bytes: %w", primeerrors.ErrResourceExhausted, size, err)
	}
	prefaultRegion(mm)
	return mm, nil
}

func (mmapAllocator) Free(region []byte) error {
	if region == nil {
		return nil
	}
	mm := mmap.MMap(region)
	return mm.Unmap()
}

// Uint64s views the first n*8 bytes of region as a zero-length []uint64 with
// capacity n. The region must come from an Allocator (page aligned) and be at
// least n*8 bytes long.
func Uint64s(region []byte, n int) []uint64 {
	if n == 0 {
		return nil
	}
	_ = region[n*8-1]
	return unsafe.Slice((*uint64)(unsafe.Pointer(&region[0])), n)[:0]
}
