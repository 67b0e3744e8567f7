package sieve

import (
	"fmt"

	primeerrors "github.com/tamirms/primesieve/errors"
	"github.com/tamirms/primesieve/internal/bits"
)

// maxRootRounds caps self-sieve rounds. The proven frontier squares every
// round (7, 49, 2209, ...), so six rounds cover any uint64 block end.
const maxRootRounds = 64

// Sieve advances target using the primes already proven in source and
// returns the upper bound below which target's results are now complete.
//
// source may be target itself only for the root block. Otherwise source must
// already hold every prime below sqrt(target.End()).
func Sieve(target, source *Block) (uint64, error) {
	if target.capacity == 0 {
		target.executed = true
		return target.end, nil
	}
	if target.region == nil {
		return 0, fmt.Errorf("%w: block [%d, %d) sieved before allocation",
			primeerrors.ErrResourceExhausted, target.start, target.end)
	}
	self := target == source

	// Snapshot the length: in self-sieve mode, results grow during harvest
	// and those primes belong to the next round.
	primes := source.results[:len(source.results)]
	i := target.clearCursor
	covered := false
	for ; i < len(primes); i++ {
		p := primes[i]
		if p == 2 {
			continue
		}
		sq := p * p
		if sq >= target.end {
			// Every later prime squares even further out.
			covered = true
			break
		}
		m := max(sq, (target.start+p-1)/p*p)
		if m&1 == 0 {
			m += p
		}
		for step := 2 * p; m < target.end; m += step {
			bits.Set(target.cache, target.cacheIndex(m))
		}
	}
	target.clearCursor = i

	bound := target.end
	if self && !covered && len(primes) > 0 {
		q := primes[len(primes)-1]
		bound = min(target.end, q*q)
	}

	if err := target.harvest(bound); err != nil {
		return 0, err
	}
	if bound >= target.end {
		target.executed = true
	}
	return bound, nil
}

// harvest appends every unmarked odd candidate below bound, resuming after
// the last harvested number.
func (b *Block) harvest(bound uint64) error {
	o := b.harvestFrom
	for ; o < bound; o += 2 {
		if bits.IsSet(b.cache, b.cacheIndex(o)) {
			continue
		}
		if err := b.appendResult(o); err != nil {
			b.harvestFrom = o
			return err
		}
	}
	b.harvestFrom = o
	return nil
}

// RunRoot bootstraps the root block: seed it, then sieve it against itself
// until its proven frontier reaches its end. It returns the number of
// self-sieve rounds taken.
func RunRoot(root *Block) (int, error) {
	if root.start != 0 {
		return 0, fmt.Errorf("root block must start at 0, got %d", root.start)
	}
	if root.capacity == 0 {
		root.executed = true
		return 0, nil
	}
	if err := root.Seed(); err != nil {
		return 0, err
	}
	for rounds := 1; rounds <= maxRootRounds; rounds++ {
		reached, err := Sieve(root, root)
		if err != nil {
			return rounds, err
		}
		if reached >= root.end {
			return rounds, nil
		}
	}
	return maxRootRounds, fmt.Errorf("root block [0, %d) did not converge", root.end)
}
