// Bench is a benchmarking tool for measuring primesieve throughput and memory
// usage.
//
// Usage:
//
//	go run ./cmd/bench -n 10000000000 -threads 8 -hash xxh3
//
// Flags:
//
//	-n          Upper bound, exclusive (default: 1,000,000,000)
//	-threads    Thread budget, 0 for all logical cores (default: 0)
//	-block      Block size (default: 1,000,000)
//	-hash       Sequence digest: xxhash, xxh3 or murmur3 (default: xxhash)
//	-verbose    Log root and group progress
//	-cpuprofile Write a CPU profile to the given file
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/tamirms/primesieve"
	primeerrors "github.com/tamirms/primesieve/errors"
)

// digest is the subset of hash.Hash64 the benchmark needs.
type digest interface {
	io.Writer
	Sum64() uint64
}

func newDigest(name string) (digest, error) {
	switch name {
	case "xxhash":
		return xxhash.New(), nil
	case "xxh3":
		return xxh3.New(), nil
	case "murmur3":
		return murmur3.New64(), nil
	}
	return nil, fmt.Errorf("unknown hash %q (use xxhash, xxh3 or murmur3)", name)
}

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
// Block storage is mmap'd outside the Go heap, so RSS is the number to watch.
func getMaxRSS() uint64 {
	var rusage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, Maxrss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

func main() {
	nFlag := flag.Uint64("n", 1_000_000_000, "upper bound (exclusive)")
	threadsFlag := flag.Int("threads", 0, "thread budget (0 = all logical cores)")
	blockFlag := flag.Uint64("block", primesieve.DefaultBlockSize, "block size")
	hashFlag := flag.String("hash", "xxhash", "sequence digest: xxhash, xxh3 or murmur3")
	verbose := flag.Bool("verbose", false, "log root and group progress")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	flag.Parse()

	if err := run(*nFlag, *threadsFlag, *blockFlag, *hashFlag, *verbose, *cpuprofile); err != nil {
		fmt.Fprintf(os.Stderr, "bench: %v\n", err)
		os.Exit(1)
	}
}

func run(n uint64, threads int, blockSize uint64, hashName string, verbose bool, cpuprofile string) error {
	h, err := newDigest(hashName)
	if err != nil {
		return err
	}

	opts := []primesieve.Option{
		primesieve.WithThreads(threads),
		primesieve.WithBlockSize(blockSize),
	}
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
		opts = append(opts, primesieve.WithLogger(logger))
	}

	gen, err := primesieve.Generate(n, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = gen.Close() }()

	runtime.GC()
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := getMaxRSS()

	// 10ms sampling for peak memory. runtime/metrics avoids the
	// stop-the-world pause of ReadMemStats.
	var peakHeap atomic.Uint64
	var peakRSS atomic.Uint64
	peakHeap.Store(baseline.Alloc)
	peakRSS.Store(baselineRSS)
	done := make(chan struct{})
	go func() {
		samples := []metrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&peakHeap, samples[0].Value.Uint64())
				storeMax(&peakRSS, getMaxRSS())
			}
		}
	}()

	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return fmt.Errorf("create CPU profile: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	fmt.Printf("Sieving primes below %d...\n", n)
	start := time.Now()

	var count, largest uint64
	var buf [8]byte
	for {
		p, err := gen.Next()
		if errors.Is(err, primeerrors.ErrDone) {
			break
		}
		if err != nil {
			close(done)
			return err
		}
		count++
		largest = p
		binary.LittleEndian.PutUint64(buf[:], p)
		_, _ = h.Write(buf[:])
	}
	elapsed := time.Since(start)
	close(done)
	storeMax(&peakRSS, getMaxRSS())

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦══════════════════════╗\n")
	fmt.Printf("║ Metric              ║ Value                ║\n")
	fmt.Printf("╠═════════════════════╬══════════════════════╣\n")
	fmt.Printf("║ Bound               ║ %20d ║\n", n)
	fmt.Printf("║ Primes              ║ %20d ║\n", count)
	fmt.Printf("║ Largest prime       ║ %20d ║\n", largest)
	fmt.Printf("║ Digest (%-7s)     ║   %016x   ║\n", hashName, h.Sum64())
	fmt.Printf("║ Elapsed             ║ %16.3f sec ║\n", elapsed.Seconds())
	fmt.Printf("║ Throughput          ║ %14.2f M/sec ║\n", float64(count)/elapsed.Seconds()/1_000_000)
	fmt.Printf("║ Peak heap memory    ║ %17.1f MB ║\n", float64(peakHeap.Load()-min(baseline.Alloc, peakHeap.Load()))/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %17.1f MB ║\n", float64(peakRSS.Load()-baselineRSS)/1_000_000)
	fmt.Printf("╚═════════════════════╩══════════════════════╝\n")
	return nil
}

func storeMax(v *atomic.Uint64, x uint64) {
	for {
		old := v.Load()
		if x <= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}
