package primesieve

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"go.uber.org/zap"

	"github.com/tamirms/primesieve/internal/arena"
)

const (
	// DefaultBlockSize is the width of every block but possibly the last.
	// The root block then supplies every prime below 10^6, enough to sieve
	// any bound up to 10^12.
	DefaultBlockSize = 1_000_000

	// MinBlockSize keeps the root block past the bootstrap seeds.
	MinBlockSize = 64
)

// Option is a functional option for configuring a Generator.
type Option func(*config)

type config struct {
	threads   int
	blockSize uint64
	logger    *zap.Logger
	allocator arena.Allocator
}

func defaultConfig() *config {
	return &config{
		threads:   0, // resolved to the core count in Generate
		blockSize: DefaultBlockSize,
		logger:    zap.NewNop(),
		allocator: arena.Mmap(),
	}
}

// WithThreads sets the upper bound on concurrent workers used once the root
// block is ready. 1 disables parallel execution; 0 or less selects the number
// of logical cores.
func WithThreads(n int) Option {
	return func(c *config) {
		c.threads = n
	}
}

// WithBlockSize sets the block width. The largest accepted bound is the
// square of the block size. Values below MinBlockSize are rejected by Generate.
func WithBlockSize(size uint64) Option {
	return func(c *config) {
		c.blockSize = size
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// withAllocator replaces the block allocator. Used by tests to account for
// and inject allocation failures.
func withAllocator(a arena.Allocator) Option {
	return func(c *config) {
		c.allocator = a
	}
}

// defaultThreads returns the logical core count.
func defaultThreads() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}
