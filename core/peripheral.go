package core

// Peripheral identifies one hardware interrupt flag/enable pair. The
// declaration order is the order in which the dispatch router polls flags:
// timers, capture/compare modules, serial, external pins, on-change pins,
// analog conversion.
type Peripheral uint8

const (
	PeriphTimer0 Peripheral = iota
	PeriphTimer1
	PeriphTimer2
	PeriphTimer3
	PeriphCCP1
	PeriphCCP2
	PeriphSerialRx
	PeriphSerialTx
	PeriphINT0
	PeriphINT1
	PeriphINT2
	PeriphOnChange
	PeriphADC
	PeripheralLimit
)

var peripheralNames = [PeripheralLimit]string{
	"timer0", "timer1", "timer2", "timer3",
	"ccp1", "ccp2",
	"serial_rx", "serial_tx",
	"int0", "int1", "int2",
	"on_change", "adc",
}

func (p Peripheral) String() string {
	if p < PeripheralLimit {
		return peripheralNames[p]
	}
	return "peripheral(" + itoa(int(p)) + ")"
}

// Priority selects the dispatch tier when the priority feature is enabled.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityHigh
	PriorityLimit
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	}
	return "priority(" + itoa(int(p)) + ")"
}

// Source identifies one handler slot. Most sources map one-to-one onto a
// peripheral; the on-change peripheral fans out into a rising and a falling
// slot per watched pin.
type Source uint8

const (
	SourceTimer0 Source = iota
	SourceTimer1
	SourceTimer2
	SourceTimer3
	SourceCCP1
	SourceCCP2
	SourceSerialRx
	SourceSerialTx
	SourceINT0
	SourceINT1
	SourceINT2
	SourceRB4Rising
	SourceRB4Falling
	SourceRB5Rising
	SourceRB5Falling
	SourceRB6Rising
	SourceRB6Falling
	SourceRB7Rising
	SourceRB7Falling
	SourceADC
	SourceLimit
)

var sourcePeripheral = [SourceLimit]Peripheral{
	PeriphTimer0, PeriphTimer1, PeriphTimer2, PeriphTimer3,
	PeriphCCP1, PeriphCCP2,
	PeriphSerialRx, PeriphSerialTx,
	PeriphINT0, PeriphINT1, PeriphINT2,
	PeriphOnChange, PeriphOnChange, PeriphOnChange, PeriphOnChange,
	PeriphOnChange, PeriphOnChange, PeriphOnChange, PeriphOnChange,
	PeriphADC,
}

// Peripheral returns the hardware flag this source is raised through.
func (s Source) Peripheral() Peripheral {
	if s < SourceLimit {
		return sourcePeripheral[s]
	}
	return PeripheralLimit
}

func (s Source) String() string {
	if s >= SourceLimit {
		return "source(" + itoa(int(s)) + ")"
	}
	if s.Peripheral() != PeriphOnChange {
		return s.Peripheral().String()
	}
	idx := int(s - SourceRB4Rising)
	name := "rb" + itoa(4+idx/2)
	if idx%2 == 0 {
		return name + "_rising"
	}
	return name + "_falling"
}

// peripheralSource maps a single-slot peripheral to its source.
func peripheralSource(p Peripheral) (Source, bool) {
	switch p {
	case PeriphTimer0, PeriphTimer1, PeriphTimer2, PeriphTimer3,
		PeriphCCP1, PeriphCCP2, PeriphSerialRx, PeriphSerialTx, PeriphINT0, PeriphINT1, PeriphINT2:
		return Source(p), true
	case PeriphADC:
		return SourceADC, true
	}
	return SourceLimit, false
}
