package core

// PeripheralSet is a bit set of peripherals.
type PeripheralSet uint16

// AllPeripherals enables every peripheral interrupt.
const AllPeripherals PeripheralSet = 1<<PeripheralLimit - 1

// Has reports whether p is in the set.
func (s PeripheralSet) Has(p Peripheral) bool {
	return p < PeripheralLimit && s&(1<<p) != 0
}

// With returns the set extended by ps.
func (s PeripheralSet) With(ps ...Peripheral) PeripheralSet {
	for _, p := range ps {
		if p < PeripheralLimit {
			s |= 1 << p
		}
	}
	return s
}

// Without returns the set with ps removed.
func (s PeripheralSet) Without(ps ...Peripheral) PeripheralSet {
	for _, p := range ps {
		if p < PeripheralLimit {
			s &^= 1 << p
		}
	}
	return s
}

// Features is the startup configuration of an MCU context. It is validated
// once by New and read-only afterwards.
type Features struct {
	Clock Clock

	// Priority selects the two-tier vector scheme.
	Priority bool

	// Peripherals lists the peripherals allowed to raise interrupts.
	Peripherals PeripheralSet

	// Trace records dispatch events into the trace ring.
	Trace bool
}

// MaxClockHz is the fastest oscillator the device family runs from.
const MaxClockHz = 64000000

// DefaultFeatures returns the reference board setup: 16 MHz, single vector,
// every peripheral interrupt available.
func DefaultFeatures() Features {
	return Features{
		Clock:       DefaultClock,
		Peripherals: AllPeripherals,
		Trace:       true,
	}
}

// Has reports whether p may raise interrupts.
func (f *Features) Has(p Peripheral) bool {
	return f.Peripherals.Has(p)
}

func (f *Features) validate() error {
	const op = "features"
	if f.Clock.Hz == 0 || f.Clock.Hz > MaxClockHz {
		return rangeError(op, "clock_hz", int(f.Clock.Hz))
	}
	if f.Peripherals&^AllPeripherals != 0 {
		return rangeError(op, "peripherals", int(f.Peripherals))
	}
	return nil
}
