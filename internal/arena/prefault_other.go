//go:build !linux

package arena

// prefaultRegion is a no-op on non-Linux platforms.
func prefaultRegion(data []byte) {}
