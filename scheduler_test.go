package primesieve

import (
	"fmt"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	primeerrors "github.com/tamirms/primesieve/errors"
	"github.com/tamirms/primesieve/internal/sieve"
)

func TestPartitionCoversRangeOnce(t *testing.T) {
	tests := []struct {
		n, blockSize uint64
		blocks       int
	}{
		{2, 1000, 1},
		{1000, 1000, 1},
		{1001, 1000, 2},
		{1_000_003, 1_000_000, 2},
		{10_000, 64, 157},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d/%d", tc.n, tc.blockSize), func(t *testing.T) {
			blocks := partition(tc.n, tc.blockSize)
			require.Len(t, blocks, tc.blocks)

			next := uint64(0)
			for _, b := range blocks {
				require.Equal(t, next, b.Start(), "gap or overlap")
				require.LessOrEqual(t, b.End()-b.Start(), tc.blockSize)
				require.Greater(t, b.End(), b.Start())
				require.False(t, b.Allocated(), "partition must not allocate")
				next = b.End()
			}
			require.Equal(t, tc.n, next)
		})
	}
}

func TestRunGroupMatchesSequential(t *testing.T) {
	a := newTrackingAllocator()
	root := sieve.NewBlock(0, 1000)
	_, err := runRoot(root, a)
	require.NoError(t, err)

	want := referencePrimes(40_000)
	for _, threads := range []int{1, 4, 39} {
		blocks := partition(40_000, 1000)[1:]
		require.NoError(t, runGroup(blocks, root, a, threads))

		var got []uint64
		for _, b := range blocks {
			require.True(t, b.Executed())
			got = append(got, b.Results()...)
			require.NoError(t, b.Free(a))
		}
		require.Equal(t, want[168:], got, "threads=%d", threads)
	}
	require.NoError(t, root.Free(a))
	require.Zero(t, a.Live())
}

// TestRunGroupFailureDoesNotStopSiblings fails one block and checks the rest
// still ran before the group reported the failure.
func TestRunGroupFailureDoesNotStopSiblings(t *testing.T) {
	a := newTrackingAllocator()
	root := sieve.NewBlock(0, 1000)
	_, err := runRoot(root, a)
	require.NoError(t, err)
	defer root.Free(a)

	var attempted atomic.Int32
	a.failOn = func(call, _ int) bool {
		attempted.Add(1)
		return call == 3
	}

	blocks := partition(9000, 1000)[1:]
	err = runGroup(blocks, root, a, 4)
	require.ErrorIs(t, err, primeerrors.ErrResourceExhausted)
	require.ErrorIs(t, err, errInjected)

	require.EqualValues(t, len(blocks), attempted.Load(), "every block attempted its allocation")
	require.Equal(t, 1, a.Live(), "group freed its blocks; only root remains")
	executed := slices.IndexFunc(blocks, func(b *sieve.Block) bool { return b.Executed() })
	require.NotEqual(t, -1, executed, "siblings of the failed block were sieved")
}
