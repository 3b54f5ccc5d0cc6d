package runner

import "runtime/debug"

// CollectorHandle is the explicit resource handle for the process-wide
// garbage collector toggle. The engine owns one and disables collection
// around each timing sample with a strict acquire/release discipline, so no
// case can leak a disabled collector into its successors.
type CollectorHandle interface {
	// Disable turns the collector off and returns the function that
	// restores the previous state. Callers must invoke restore
	// unconditionally, typically via defer, so the state is recovered
	// even when the benchmark panics.
	Disable() (restore func())
}

// RuntimeCollector toggles the real Go collector via debug.SetGCPercent.
type RuntimeCollector struct{}

// Disable implements CollectorHandle.
func (RuntimeCollector) Disable() func() {
	prev := debug.SetGCPercent(-1)
	return func() { debug.SetGCPercent(prev) }
}
