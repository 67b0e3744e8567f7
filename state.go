package primesieve

// State identifies where a Generator is in its lifecycle.
type State uint8

const (
	// StateUnstarted means no sieve work has run yet.
	StateUnstarted State = iota

	// StateEmitting means a block's primes are being handed out.
	StateEmitting

	// StateExhausted means every prime below the bound has been produced.
	StateExhausted

	// StateFailed means a block could not be produced. Further pulls
	// re-report the failure.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEmitting:
		return "emitting"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
