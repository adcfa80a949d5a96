package core

import "periph.io/x/conn/v3/gpio"

// InterruptController is the per-peripheral flag/enable/priority primitive
// set plus the global enable bits.
type InterruptController interface {
	// Flag reports whether the peripheral's pending flag is set.
	Flag(p Peripheral) bool

	// ClearFlag clears the pending flag.
	ClearFlag(p Peripheral)

	// Enable sets the peripheral's interrupt enable bit.
	Enable(p Peripheral)

	// Disable clears the peripheral's interrupt enable bit.
	Disable(p Peripheral)

	// Enabled reports the peripheral's interrupt enable bit.
	Enabled(p Peripheral) bool

	// SetPriority selects the tier the peripheral is vectored to.
	SetPriority(p Peripheral, pr Priority)

	// SetTrigger selects the active edge of an external interrupt line.
	SetTrigger(p Peripheral, edge gpio.Edge)

	// SetPriorityMode switches between the single vector and the two-tier
	// vector scheme.
	SetPriorityMode(on bool)

	// SetGlobal sets or clears the global enable bits of the current
	// vector scheme (GIE/PEIE, or GIEH/GIEL).
	SetGlobal(on bool)

	// Global reports the global interrupt enable bit.
	Global() bool
}
