package sim

import (
	"picmcal/core"

	"periph.io/x/conn/v3/gpio"
)

// Flag implements core.InterruptController.
func (b *Board) Flag(p core.Peripheral) bool {
	return b.flags.Has(p)
}

// ClearFlag implements core.InterruptController.
func (b *Board) ClearFlag(p core.Peripheral) {
	b.flags = b.flags.Without(p)
}

// Enable implements core.InterruptController.
func (b *Board) Enable(p core.Peripheral) {
	b.enables = b.enables.With(p)
}

// Disable implements core.InterruptController.
func (b *Board) Disable(p core.Peripheral) {
	b.enables = b.enables.Without(p)
}

// Enabled implements core.InterruptController.
func (b *Board) Enabled(p core.Peripheral) bool {
	return b.enables.Has(p)
}

// SetPriority implements core.InterruptController. INT0 has no priority
// bit and ignores the call.
func (b *Board) SetPriority(p core.Peripheral, pr core.Priority) {
	if p < core.PeripheralLimit && p != core.PeriphINT0 {
		b.priority[p] = pr
	}
}

// Priority returns the tier a peripheral is vectored to.
func (b *Board) Priority(p core.Peripheral) core.Priority {
	if p >= core.PeripheralLimit {
		return core.PriorityLow
	}
	return b.tier(p)
}

// SetTrigger implements core.InterruptController.
func (b *Board) SetTrigger(p core.Peripheral, edge gpio.Edge) {
	if i, ok := externalIndex(p); ok {
		b.trigger[i] = edge
	}
}

// Trigger returns the active edge of an external interrupt line.
func (b *Board) Trigger(p core.Peripheral) gpio.Edge {
	if i, ok := externalIndex(p); ok {
		return b.trigger[i]
	}
	return gpio.NoEdge
}

// SetPriorityMode implements core.InterruptController.
func (b *Board) SetPriorityMode(on bool) {
	b.priorityMode = on
}

// PriorityMode reports the vector scheme.
func (b *Board) PriorityMode() bool {
	return b.priorityMode
}

// SetGlobal implements core.InterruptController.
func (b *Board) SetGlobal(on bool) {
	b.global = on
}

// Global implements core.InterruptController.
func (b *Board) Global() bool {
	return b.global
}

func externalIndex(p core.Peripheral) (int, bool) {
	if p >= core.PeriphINT0 && p <= core.PeriphINT2 {
		return int(p - core.PeriphINT0), true
	}
	return 0, false
}
