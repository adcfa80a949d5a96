package sim

import (
	"picmcal/core"

	"periph.io/x/conn/v3/gpio"
)

// writeLogSize is the number of counter writes each timer remembers.
const writeLogSize = 64

// Timer models one timer channel. A counter write resets the prescaler and
// suppresses the next two counter increments.
type Timer struct {
	b  *Board
	id core.TimerID

	running  bool
	external bool
	edge     gpio.Edge
	bits     uint8

	prescale      uint32
	prescaleCount uint32
	postscale     uint32
	postCount     uint32

	counter uint16
	period  uint8
	inhibit uint8

	writes  [writeLogSize]uint16
	nwrites int
}

func newTimer(b *Board, id core.TimerID) *Timer {
	t := &Timer{
		b:         b,
		id:        id,
		edge:      gpio.RisingEdge,
		bits:      16,
		prescale:  1,
		postscale: 1,
		period:    0xFF,
	}
	if id == core.Timer2 {
		t.bits = 8
	}
	return t
}

// SetRunning implements core.TimerHardware.
func (t *Timer) SetRunning(on bool) {
	t.running = on
}

// Running reports whether the counter is enabled.
func (t *Timer) Running() bool {
	return t.running
}

// SetClockSource implements core.TimerHardware.
func (t *Timer) SetClockSource(external bool) {
	t.external = external && t.id != core.Timer2
}

// SetSourceEdge implements core.TimerHardware. Only Timer0 can count
// falling edges.
func (t *Timer) SetSourceEdge(edge gpio.Edge) {
	if t.id == core.Timer0 {
		t.edge = edge
	}
}

// SetWidth implements core.TimerHardware. Only Timer0 is configurable.
func (t *Timer) SetWidth(bits uint8) {
	if t.id == core.Timer0 && (bits == 8 || bits == 16) {
		t.bits = bits
	}
}

// SetPrescaler implements core.TimerHardware.
func (t *Timer) SetPrescaler(code int) {
	switch t.id {
	case core.Timer0:
		if code < 0 {
			t.prescale = 1
		} else {
			t.prescale = 2 << uint(code&7)
		}
	case core.Timer2:
		switch code & 3 {
		case 0:
			t.prescale = 1
		case 1:
			t.prescale = 4
		default:
			t.prescale = 16
		}
	default:
		t.prescale = 1 << uint(code&3)
	}
	t.prescaleCount = 0
}

// Prescale returns the active prescaler multiplier.
func (t *Timer) Prescale() uint32 {
	return t.prescale
}

// SetPostscaler implements core.TimerHardware.
func (t *Timer) SetPostscaler(code uint8) {
	t.postscale = uint32(code&0x0F) + 1
	t.postCount = 0
}

// WriteCounter implements core.TimerHardware.
func (t *Timer) WriteCounter(v uint16) {
	if t.bits == 8 {
		v &= 0xFF
	}
	t.counter = v
	t.inhibit = core.WriteInhibitCycles
	t.prescaleCount = 0
	t.writes[t.nwrites%writeLogSize] = v
	t.nwrites++
}

// ReadCounter implements core.TimerHardware.
func (t *Timer) ReadCounter() uint16 {
	return t.counter
}

// WriteCompare implements core.TimerHardware.
func (t *Timer) WriteCompare(v uint8) {
	if t.id == core.Timer2 {
		t.period = v
	}
}

// ReadCompare implements core.TimerHardware.
func (t *Timer) ReadCompare() uint8 {
	return t.period
}

// Writes returns the most recent counter writes, oldest first.
func (t *Timer) Writes() []uint16 {
	n := t.nwrites
	if n > writeLogSize {
		out := make([]uint16, 0, writeLogSize)
		for i := 0; i < writeLogSize; i++ {
			out = append(out, t.writes[(n+i)%writeLogSize])
		}
		return out
	}
	return append([]uint16(nil), t.writes[:n]...)
}

// WriteCount returns the total number of counter writes.
func (t *Timer) WriteCount() int {
	return t.nwrites
}

func (t *Timer) externalEdge(edge gpio.Edge) {
	if !t.running || !t.external {
		return
	}
	want := gpio.RisingEdge
	if t.id == core.Timer0 {
		want = t.edge
	}
	if edge == want {
		t.clockIn()
	}
}

func (t *Timer) clockIn() {
	t.prescaleCount++
	if t.prescaleCount < t.prescale {
		return
	}
	t.prescaleCount = 0
	t.increment()
}

func (t *Timer) increment() {
	if t.inhibit > 0 {
		t.inhibit--
		return
	}
	if t.id == core.Timer2 {
		if uint8(t.counter) == t.period {
			t.counter = 0
			for _, c := range t.b.ccps {
				c.periodStart()
			}
			t.postCount++
			if t.postCount >= t.postscale {
				t.postCount = 0
				t.b.Raise(core.PeriphTimer2)
			}
			return
		}
		t.counter++
		for _, c := range t.b.ccps {
			c.pwmTick(t.counter)
		}
		return
	}

	max := uint16(0xFFFF)
	if t.bits == 8 {
		max = 0xFF
	}
	if t.counter >= max {
		t.counter = 0
		t.b.Raise(core.Peripheral(t.id))
	} else {
		t.counter++
	}
	if t.id == core.Timer1 || t.id == core.Timer3 {
		for _, c := range t.b.ccps {
			c.compare(t)
		}
	}
}
