package core

// tier selects which peripherals a dispatch pass may service.
type tier uint8

const (
	tierAll tier = iota
	tierHigh
	tierLow
)

// Dispatcher is the interrupt entry point. Each pass snapshots the pending
// flags of the enabled peripherals, then clears and services them in
// Peripheral order. Flags raised while servicing wait for the next entry.
type Dispatcher struct {
	mcu      *MCU
	services [PeripheralLimit]func()

	passes   uint32
	dropped  uint32
	serviced [PeripheralLimit]uint32
}

// Interrupt is the single vector used when the priority feature is off.
func (d *Dispatcher) Interrupt() {
	d.pass(tierAll)
}

// InterruptHigh is the high-priority vector.
func (d *Dispatcher) InterruptHigh() {
	d.pass(tierHigh)
}

// InterruptLow is the low-priority vector.
func (d *Dispatcher) InterruptLow() {
	d.pass(tierLow)
}

// Passes returns the number of dispatch entries.
func (d *Dispatcher) Passes() uint32 {
	return d.passes
}

// Dropped returns the number of serviced flags that had no handler.
func (d *Dispatcher) Dropped() uint32 {
	return d.dropped
}

// Serviced returns how many times p's flag was serviced.
func (d *Dispatcher) Serviced(p Peripheral) uint32 {
	if p >= PeripheralLimit {
		return 0
	}
	return d.serviced[p]
}

func (d *Dispatcher) pass(t tier) {
	ic := d.mcu.ic
	d.passes++
	d.mcu.trace.record(TraceEnter, uint8(t), d.passes)

	var pending [PeripheralLimit]bool
	for p := Peripheral(0); p < PeripheralLimit; p++ {
		pending[p] = d.mcu.features.Has(p) && d.inTier(p, t) && ic.Enabled(p) && ic.Flag(p)
	}
	for p := Peripheral(0); p < PeripheralLimit; p++ {
		if !pending[p] {
			continue
		}
		ic.ClearFlag(p)
		d.serviced[p]++
		d.services[p]()
	}
}

func (d *Dispatcher) inTier(p Peripheral, t tier) bool {
	switch t {
	case tierHigh:
		return d.mcu.registry.Priority(p) == PriorityHigh
	case tierLow:
		return d.mcu.registry.Priority(p) == PriorityLow
	}
	return true
}

// handler returns the service of a single-slot peripheral.
func (d *Dispatcher) handler(p Peripheral) func() {
	s, _ := peripheralSource(p)
	return func() {
		h := d.mcu.registry.Handler(s)
		if h == nil {
			d.drop(p)
			return
		}
		d.mcu.trace.record(TraceService, uint8(s), 0)
		h()
	}
}

func (d *Dispatcher) drop(p Peripheral) {
	d.dropped++
	d.mcu.trace.record(TraceDrop, uint8(p), d.dropped)
}
