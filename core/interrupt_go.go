//go:build !tinygo

package core

// State is the saved interrupt-enable state on regular Go builds.
type State uintptr

// disableInterrupts is a no-op on regular Go. The simulator drives the
// dispatch router from the same goroutine as the code it interrupts, so
// there is nothing to mask.
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on regular Go.
func restoreInterrupts(state State) {
}
