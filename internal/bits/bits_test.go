package bits

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

func TestBytes(t *testing.T) {
	for _, tc := range []struct{ n, want uint64 }{
		{0, 0}, {1, 1}, {7, 1}, {8, 1}, {9, 2}, {16, 2}, {17, 3}, {500_000, 62_500},
	} {
		if got := Bytes(tc.n); got != tc.want {
			t.Errorf("Bytes(%d) = %d, want %d", tc.n, got, tc.want)
		}
	}
}

// TestSetIsSetMatchesReference sets random flags and checks every flag
// against a plain bool slice.
func TestSetIsSetMatchesReference(t *testing.T) {
	rng := newTestRNG(t)
	const n = 10_000

	b := make([]byte, Bytes(n))
	want := make([]bool, n)
	for range 3000 {
		i := rng.Uint64N(n)
		Set(b, i)
		want[i] = true
	}

	for i := range uint64(n) {
		if got := IsSet(b, i); got != want[i] {
			t.Fatalf("IsSet(%d) = %v, want %v", i, got, want[i])
		}
	}
}

// TestSetIsIdempotent verifies that raising a flag twice leaves neighbours alone.
func TestSetIsIdempotent(t *testing.T) {
	b := make([]byte, 2)
	Set(b, 9)
	Set(b, 9)
	if b[0] != 0 || b[1] != 0b10 {
		t.Fatalf("unexpected bytes after double Set: %08b %08b", b[0], b[1])
	}
	for i := range uint64(16) {
		if IsSet(b, i) != (i == 9) {
			t.Errorf("IsSet(%d) = %v", i, IsSet(b, i))
		}
	}
}
