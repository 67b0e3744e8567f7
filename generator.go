package primesieve

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	primeerrors "github.com/tamirms/primesieve/errors"
	"github.com/tamirms/primesieve/internal/sieve"
)

// Generator produces the primes below a bound in increasing order, one block
// at a time.
//
// Usage:
//
//	gen, err := primesieve.Generate(1_000_000_000, primesieve.WithThreads(8))
//	if err != nil { return err }
//	defer gen.Close()
//
//	for p := range gen.All() {
//	    fmt.Println(p)
//	}
//	return gen.Err()
//
// The first pull sieves the root block [0, blockSize) on the calling
// goroutine. Once the root's primes are drained, the remaining blocks are
// sieved in groups of up to threads blocks in parallel; each group's primes
// are handed out in range order and each block is freed as soon as it is
// drained. Peak block storage is therefore the root block plus at most
// threads other blocks, however large the bound.
//
// A Generator is single-pass and NOT safe for concurrent use.
type Generator struct {
	cfg     *config
	log     *zap.Logger
	n       uint64
	threads int

	blocks   []*sieve.Block
	blockIdx int // block being drained, or next block to drain
	executed int // blocks [0, executed) have been sieved

	active []uint64 // results of blocks[blockIdx]; nil between blocks
	pos    int

	rootDrained bool
	state       State
	err         error
	closed      bool
}

// Generate returns a Generator over the primes strictly below n.
//
// It validates its arguments and partitions [0, n) into blocks but does not
// sieve anything; the first call to Next does. n must be greater than 1 and
// at most the square of the block size (10^12 by default).
func Generate(n uint64, opts ...Option) (*Generator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if n <= 1 {
		return nil, fmt.Errorf("%w: got %d", primeerrors.ErrInvalidBound, n)
	}
	if cfg.blockSize < MinBlockSize {
		return nil, fmt.Errorf("%w: got %d, minimum %d", primeerrors.ErrInvalidBlockSize, cfg.blockSize, MinBlockSize)
	}
	// blockSize² could overflow; compare against n/blockSize instead.
	if n/cfg.blockSize > cfg.blockSize || (n/cfg.blockSize == cfg.blockSize && n%cfg.blockSize != 0) {
		return nil, fmt.Errorf("%w: %d > %d²", primeerrors.ErrBoundTooLarge, n, cfg.blockSize)
	}

	blocks := partition(n, cfg.blockSize)

	threads := cfg.threads
	if threads <= 0 {
		threads = defaultThreads()
	}
	if rest := len(blocks) - 1; threads > rest {
		threads = max(rest, 1)
	}

	return &Generator{
		cfg:     cfg,
		log:     cfg.logger.With(zap.Uint64("bound", n)),
		n:       n,
		threads: threads,
		blocks:  blocks,
		state:   StateUnstarted,
	}, nil
}

// Next returns the next prime. It returns primeerrors.ErrDone once every
// prime below the bound has been produced. Any other error leaves the
// Generator in StateFailed, and every later call returns the same error.
func (g *Generator) Next() (uint64, error) {
	if g.closed {
		return 0, primeerrors.ErrGeneratorClosed
	}
	for {
		switch g.state {
		case StateExhausted:
			return 0, primeerrors.ErrDone
		case StateFailed:
			return 0, g.err
		}

		if g.active == nil {
			if g.blockIdx >= len(g.blocks) {
				g.state = StateExhausted
				g.log.Debug("sequence exhausted")
				return 0, primeerrors.ErrDone
			}
			if err := g.prepare(); err != nil {
				g.fail(err)
				return 0, err
			}
			g.active = g.blocks[g.blockIdx].Results()
			g.pos = 0
			g.state = StateEmitting
		}

		if g.pos < len(g.active) {
			p := g.active[g.pos]
			g.pos++
			if g.pos == len(g.active) {
				g.release()
			}
			return p, nil
		}
		// Block holds no primes.
		g.release()
	}
}

// prepare makes sure blocks[blockIdx] has been sieved. The root block runs
// alone; every later block runs in a group with up to threads-1 successors.
func (g *Generator) prepare() error {
	b := g.blocks[g.blockIdx]
	if b.Executed() {
		return nil
	}

	if g.blockIdx == 0 {
		start := time.Now()
		rounds, err := runRoot(b, g.cfg.allocator)
		if err != nil {
			return fmt.Errorf("root block: %w", err)
		}
		g.executed = 1
		g.log.Debug("root block ready",
			zap.Uint64("end", b.End()),
			zap.Int("rounds", rounds),
			zap.Int("primes", len(b.Results())),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	end := min(g.blockIdx+g.threads, len(g.blocks))
	group := g.blocks[g.blockIdx:end]
	start := time.Now()
	if err := runGroup(group, g.blocks[0], g.cfg.allocator, g.threads); err != nil {
		g.log.Warn("block group failed",
			zap.Uint64("start", group[0].Start()),
			zap.Uint64("end", group[len(group)-1].End()),
			zap.Error(err))
		return err
	}
	g.executed = end
	g.log.Debug("block group ready",
		zap.Uint64("start", group[0].Start()),
		zap.Uint64("end", group[len(group)-1].End()),
		zap.Int("blocks", len(group)),
		zap.Duration("elapsed", time.Since(start)))

	g.releaseRootIfUnused()
	return nil
}

// release frees the drained block and moves on to the next one. The root
// block is kept until no block is left to sieve against it.
func (g *Generator) release() {
	b := g.blocks[g.blockIdx]
	g.active = nil
	g.pos = 0
	if g.blockIdx == 0 {
		g.rootDrained = true
		g.releaseRootIfUnused()
	} else if err := b.Free(g.cfg.allocator); err != nil {
		g.log.Warn("free block", zap.Uint64("start", b.Start()), zap.Error(err))
	}
	g.blockIdx++
}

// releaseRootIfUnused frees the root block once its primes have been handed
// out and every other block has been sieved.
func (g *Generator) releaseRootIfUnused() {
	if !g.rootDrained || g.executed < len(g.blocks) {
		return
	}
	root := g.blocks[0]
	if err := root.Free(g.cfg.allocator); err != nil {
		g.log.Warn("free root block", zap.Error(err))
	}
}

func (g *Generator) fail(err error) {
	g.state = StateFailed
	g.err = err
	g.active = nil
	g.log.Error("sequence failed", zap.Int("block", g.blockIdx), zap.Error(err))
	// Nothing else will read the remaining storage.
	_ = g.freeAll()
}

func (g *Generator) freeAll() error {
	var errs []error
	for _, b := range g.blocks {
		errs = append(errs, b.Free(g.cfg.allocator))
	}
	return errors.Join(errs...)
}

// All returns an iterator over the remaining primes. Iteration stops at the
// end of the sequence or at the first error, which Err then reports.
func (g *Generator) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for {
			p, err := g.Next()
			if err != nil {
				return
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Err returns the error that put the Generator in StateFailed, or nil.
func (g *Generator) Err() error {
	return g.err
}

// State returns the current lifecycle state.
func (g *Generator) State() State {
	return g.state
}

// Close releases all block storage. Safe to call more than once and at any
// point of the sequence; after Close, Next returns ErrGeneratorClosed.
func (g *Generator) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.active = nil
	return g.freeAll()
}

// Summary describes a drained sequence.
type Summary struct {
	Count   uint64 // number of primes below the bound
	Largest uint64 // largest prime below the bound, 0 if none
	Digest  uint64 // xxHash64 of the primes as little-endian uint64s, in order
}

// Drain pulls every prime below n without exposing them, for throughput
// measurement and for comparing runs cheaply via the digest.
func Drain(n uint64, opts ...Option) (Summary, error) {
	gen, err := Generate(n, opts...)
	if err != nil {
		return Summary{}, err
	}
	defer gen.Close()

	var s Summary
	var buf [8]byte
	h := xxhash.New()
	for p := range gen.All() {
		s.Count++
		s.Largest = p
		binary.LittleEndian.PutUint64(buf[:], p)
		_, _ = h.Write(buf[:])
	}
	if err := gen.Err(); err != nil {
		return Summary{}, err
	}
	s.Digest = h.Sum64()
	return s, nil
}
