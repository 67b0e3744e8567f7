// Package primesieve generates every prime below a bound, up to 10^12, as a
// lazy ascending sequence with bounded memory.
//
// It is a segmented sieve of Eratosthenes. [0, n) is split into fixed-size
// blocks; the first (root) block bootstraps itself from the seeds {2, 3, 5, 7}
// and supplies the sieving primes for every other block, which are then
// sieved in parallel groups.
//
// # Basic Usage
//
//	gen, err := primesieve.Generate(1_000_000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gen.Close()
//
//	for p := range gen.All() {
//	    fmt.Println(p)
//	}
//	if err := gen.Err(); err != nil {
//	    log.Fatal(err)
//	}
//
// Pull-style iteration is also available:
//
//	for {
//	    p, err := gen.Next()
//	    if errors.Is(err, primeerrors.ErrDone) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    use(p)
//	}
//
// # Package Structure
//
//   - Public API: generator.go (Generate, Next, All, Close, Drain)
//   - Configuration: options.go (Option, With* functions)
//   - Scheduling: scheduler.go (partition, runRoot, runGroup)
//   - Block storage and sieve engine: internal/sieve/
//   - Memory regions: internal/arena/ (anonymous mmap)
//   - Composite cache bitset: internal/bits/
package primesieve
