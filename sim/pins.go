package sim

import (
	"picmcal/core"

	"periph.io/x/conn/v3/gpio"
)

// SetDirection implements core.PinDriver.
func (b *Board) SetDirection(pin core.Pin, dir core.Direction) error {
	if !pin.Valid() {
		return ErrInvalidPin
	}
	old := b.level(pin)
	p := &b.ports[pin.Port]
	if dir == core.Input {
		p.tris |= 1 << pin.Bit
	} else {
		p.tris &^= 1 << pin.Bit
	}
	b.levelChanged(pin, old)
	return nil
}

// Read implements core.PinDriver.
func (b *Board) Read(pin core.Pin) (gpio.Level, error) {
	if !pin.Valid() {
		return gpio.Low, ErrInvalidPin
	}
	return b.level(pin), nil
}

// Write implements core.PinDriver. Writes land in the output latch and are
// visible on the pin only while it is an output.
func (b *Board) Write(pin core.Pin, level gpio.Level) error {
	if !pin.Valid() {
		return ErrInvalidPin
	}
	old := b.level(pin)
	p := &b.ports[pin.Port]
	if level == gpio.High {
		p.latch |= 1 << pin.Bit
	} else {
		p.latch &^= 1 << pin.Bit
	}
	b.levelChanged(pin, old)
	return nil
}

// Toggle implements core.PinDriver.
func (b *Board) Toggle(pin core.Pin) error {
	if !pin.Valid() {
		return ErrInvalidPin
	}
	latch := b.ports[pin.Port].latch&(1<<pin.Bit) != 0
	return b.Write(pin, gpio.Level(!latch))
}

// Direction returns the data direction of a pin.
func (b *Board) Direction(pin core.Pin) core.Direction {
	if !pin.Valid() || b.ports[pin.Port].tris&(1<<pin.Bit) != 0 {
		return core.Input
	}
	return core.Output
}

// SetPin drives an input pin from outside the device. Level changes on
// the timer clock pins, the external interrupt lines and the on-change
// pins raise the corresponding hardware events.
func (b *Board) SetPin(pin core.Pin, level gpio.Level) error {
	if !pin.Valid() {
		return ErrInvalidPin
	}
	old := b.level(pin)
	p := &b.ports[pin.Port]
	if level == gpio.High {
		p.drive |= 1 << pin.Bit
	} else {
		p.drive &^= 1 << pin.Bit
	}
	b.levelChanged(pin, old)
	return nil
}

// Pulse drives pin high then low, producing one rising and one falling edge.
func (b *Board) Pulse(pin core.Pin) error {
	if err := b.SetPin(pin, gpio.High); err != nil {
		return err
	}
	return b.SetPin(pin, gpio.Low)
}

func (b *Board) level(pin core.Pin) gpio.Level {
	p := b.ports[pin.Port]
	mask := uint8(1) << pin.Bit
	if p.tris&mask != 0 {
		return p.drive&mask != 0
	}
	return p.latch&mask != 0
}

func (b *Board) levelChanged(pin core.Pin, old gpio.Level) {
	level := b.level(pin)
	if level == old {
		return
	}
	edge := gpio.FallingEdge
	if level == gpio.High {
		edge = gpio.RisingEdge
	}

	switch pin {
	case core.PinT0CKI:
		b.timers[core.Timer0].externalEdge(edge)
	case core.PinT13CKI:
		b.timers[core.Timer1].externalEdge(edge)
		b.timers[core.Timer3].externalEdge(edge)
	case core.PinINT0, core.PinINT1, core.PinINT2:
		p := core.PeriphINT0 + core.Peripheral(pin.Bit)
		if b.trigger[pin.Bit] == edge {
			b.Raise(p)
		}
	case core.PinCCP1, core.PinCCP2:
		if b.Direction(pin) == core.Input {
			b.ccps[core.CCP1+core.CCPID(2-pin.Bit)].inputEdge(edge)
		}
	case core.PinRB4, core.PinRB5, core.PinRB6, core.PinRB7:
		if b.Direction(pin) == core.Input {
			b.Raise(core.PeriphOnChange)
		}
	}
}
