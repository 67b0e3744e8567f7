package primesieve

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	primeerrors "github.com/tamirms/primesieve/errors"
	"github.com/tamirms/primesieve/internal/arena"
	"github.com/tamirms/primesieve/internal/sieve"
)

// partition splits [0, n) into contiguous blocks of at most blockSize
// numbers, in ascending order.
func partition(n, blockSize uint64) []*sieve.Block {
	blocks := make([]*sieve.Block, 0, (n+blockSize-1)/blockSize)
	for start := uint64(0); start < n; start += blockSize {
		blocks = append(blocks, sieve.NewBlock(start, min(start+blockSize, n)))
	}
	return blocks
}

// runRoot allocates and bootstraps the root block. It must complete before
// any other block is sieved: every other block reads the root's results.
func runRoot(root *sieve.Block, alloc arena.Allocator) (int, error) {
	if err := root.Alloc(alloc); err != nil {
		return 0, err
	}
	return sieve.RunRoot(root)
}

// runGroup allocates and sieves each block once against root.
//
// Blocks are independent: with threads > 1 they fan out over an errgroup
// limited to threads goroutines. Each worker owns its block exclusively and
// only reads root. A failing block does not stop its siblings; every failure
// is recorded in its own slot and merged after the join. On failure, every
// block of the group is freed before returning.
func runGroup(blocks []*sieve.Block, root *sieve.Block, alloc arena.Allocator, threads int) error {
	errs := make([]error, len(blocks))
	build := func(i int) {
		b := blocks[i]
		if err := b.Alloc(alloc); err != nil {
			errs[i] = err
			return
		}
		if _, err := sieve.Sieve(b, root); err != nil {
			errs[i] = fmt.Errorf("sieve block [%d, %d): %w", b.Start(), b.End(), err)
		}
	}

	if threads <= 1 || len(blocks) == 1 {
		for i := range blocks {
			build(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(threads)
		for i := range blocks {
			g.Go(func() error {
				build(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	err := errors.Join(errs...)
	if err == nil {
		return nil
	}
	var freeErrs []error
	for _, b := range blocks {
		freeErrs = append(freeErrs, b.Free(alloc))
	}
	if !errors.Is(err, primeerrors.ErrResourceExhausted) {
		err = fmt.Errorf("%w: %w", primeerrors.ErrResourceExhausted, err)
	}
	return errors.Join(err, errors.Join(freeErrs...))
}
