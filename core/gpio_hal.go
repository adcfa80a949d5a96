package core

import "periph.io/x/conn/v3/gpio"

// Port identifies one 8-bit I/O port.
type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
	PortD
	PortE
	PortLimit
)

// PinsPerPort is the width of every I/O port.
const PinsPerPort = 8

// Pin identifies a single port bit.
type Pin struct {
	Port Port
	Bit  uint8
}

func (p Pin) String() string {
	if p.Port >= PortLimit {
		return "pin(" + itoa(int(p.Port)) + "," + itoa(int(p.Bit)) + ")"
	}
	return "R" + string(rune('A'+p.Port)) + itoa(int(p.Bit))
}

// Valid reports whether the pin exists on the device.
func (p Pin) Valid() bool {
	return p.Port < PortLimit && p.Bit < PinsPerPort
}

// Direction is the data direction of a pin.
type Direction uint8

const (
	Output Direction = iota
	Input
)

// PinDriver is the pin primitive set the core consumes. Implementations are
// expected to be already correct single-register operations.
type PinDriver interface {
	// SetDirection configures a pin as input or output.
	SetDirection(pin Pin, dir Direction) error

	// Read returns the current logic level of a pin.
	Read(pin Pin) (gpio.Level, error)

	// Write drives an output pin.
	Write(pin Pin, level gpio.Level) error

	// Toggle inverts an output pin.
	Toggle(pin Pin) error
}

// Fixed pin assignments of the peripherals the core drives.
var (
	PinT0CKI  = Pin{PortA, 4} // Timer0 external clock
	PinT13CKI = Pin{PortC, 0} // Timer1/Timer3 external clock
	PinCCP2   = Pin{PortC, 1}
	PinCCP1   = Pin{PortC, 2}
	PinINT0   = Pin{PortB, 0}
	PinINT1   = Pin{PortB, 1}
	PinINT2   = Pin{PortB, 2}
	PinRB4    = Pin{PortB, 4}
	PinRB5    = Pin{PortB, 5}
	PinRB6    = Pin{PortB, 6}
	PinRB7    = Pin{PortB, 7}
)
