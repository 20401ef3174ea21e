package testkit

import (
	"sync"
	"testing"
)

// seams serializes tests that rewrite package-level variables
var seams sync.Mutex

// Swap replaces *target for the rest of the test; the old value is put back on cleanup
// Typical targets are clock, id and logger seams such as now or newID
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	old := *target
	*target = replacement
	t.Cleanup(func() { *target = old })
}

// Serial holds a process-wide lock until the test ends
// Tests that Swap a seam read by parallel tests take it first
func Serial(t *testing.T) {
	t.Helper()
	seams.Lock()
	t.Cleanup(seams.Unlock)
}
