package sim

import (
	"picmcal/core"

	"periph.io/x/conn/v3/gpio"
)

// CCP models one capture/compare/PWM module. Capture latches the selected
// timer on an edge of the module pin, compare acts when that timer equals
// the register, PWM follows Timer2's period.
type CCP struct {
	b  *Board
	id core.CCPID

	mode     uint8
	register uint16
	duty     uint16 // 10-bit, loaded into active at each period start
	active   uint16
	edges    uint32
	events   uint32
}

func newCCP(b *Board, id core.CCPID) *CCP {
	return &CCP{b: b, id: id}
}

// SetMode implements core.CCPHardware. Entering a set-high or set-low
// compare mode drives the pin to the opposite level.
func (c *CCP) SetMode(code uint8) {
	c.mode = code & core.CCPModeFieldMask
	c.edges = 0
	switch c.mode {
	case core.CCPModeCompare:
		c.b.Write(c.id.Pin(), gpio.Low)
	case core.CCPModeCompare + 1:
		c.b.Write(c.id.Pin(), gpio.High)
	}
}

// Mode returns the mode field.
func (c *CCP) Mode() uint8 {
	return c.mode
}

// SetTimerSource implements core.CCPHardware. The selection is shared by
// both modules.
func (c *CCP) SetTimerSource(code uint8) {
	c.b.ccpTimers = code & 3
}

// WriteRegister implements core.CCPHardware.
func (c *CCP) WriteRegister(v uint16) {
	c.register = v
}

// ReadRegister implements core.CCPHardware.
func (c *CCP) ReadRegister() uint16 {
	return c.register
}

// SetDuty implements core.CCPHardware.
func (c *CCP) SetDuty(v uint16) {
	c.duty = v & 0x3FF
}

// Duty returns the duty value of the current PWM period.
func (c *CCP) Duty() uint16 {
	return c.active
}

// Events returns the number of captures and compare matches.
func (c *CCP) Events() uint32 {
	return c.events
}

func (c *CCP) timer() *Timer {
	src := core.CCPTimerSource(c.b.ccpTimers)
	if src > core.CCPTimer3 {
		src = core.CCPTimer3
	}
	return c.b.timers[src.Timer(c.id)]
}

func (c *CCP) capturing() bool {
	return c.mode >= core.CCPModeCapture && c.mode < core.CCPModeCompare
}

func (c *CCP) comparing() bool {
	return c.mode == core.CCPModeToggle || c.mode >= core.CCPModeCompare && c.mode < core.CCPModePWM
}

func (c *CCP) pwm() bool {
	return c.mode >= core.CCPModePWM
}

func (c *CCP) inputEdge(edge gpio.Edge) {
	if !c.capturing() {
		return
	}
	sel := core.CaptureEdge(c.mode - core.CCPModeCapture)
	want := gpio.RisingEdge
	if sel == core.CaptureFalling {
		want = gpio.FallingEdge
	}
	if edge != want {
		return
	}
	c.edges++
	if c.edges < sel.Every() {
		return
	}
	c.edges = 0
	c.register = c.timer().counter
	c.events++
	c.b.Raise(c.id.Peripheral())
}

func (c *CCP) compare(t *Timer) {
	if !c.comparing() || c.timer() != t || t.counter != c.register {
		return
	}
	pin := c.id.Pin()
	switch c.mode {
	case core.CCPModeToggle:
		c.b.Toggle(pin)
	case core.CCPModeCompare:
		c.b.Write(pin, gpio.High)
	case core.CCPModeCompare + 1:
		c.b.Write(pin, gpio.Low)
	case core.CCPModeCompare + 3:
		t.counter = 0
	}
	c.events++
	c.b.Raise(c.id.Peripheral())
}

func (c *CCP) periodStart() {
	if !c.pwm() {
		return
	}
	c.active = c.duty
	c.b.Write(c.id.Pin(), gpio.Level(c.active > 0))
}

// pwmTick approximates the 10-bit duty compare at four Q-clocks per
// Timer2 count.
func (c *CCP) pwmTick(count uint16) {
	if c.pwm() && uint32(count)<<2 >= uint32(c.active) {
		c.b.Write(c.id.Pin(), gpio.Low)
	}
}
