// Package sim is a cycle-stepped model of the PIC18 peripherals the core
// drives: the four timers, interrupt flags and enables, external interrupt
// lines, port B on-change detection, the two CCP modules and the EUSART. It implements
// core.Hardware so the core runs unmodified on a host.
package sim

import (
	"errors"
	"time"

	"picmcal/core"

	"periph.io/x/conn/v3/gpio"
)

var ErrInvalidPin = errors.New("sim: invalid pin")

type port struct {
	latch uint8 // output latch
	drive uint8 // externally driven input levels
	tris  uint8 // 1 = input
}

// Board is the simulated device. All methods must be called from one
// goroutine; interrupt vectors run synchronously inside Step.
type Board struct {
	clock core.Clock
	cycle uint64

	ports  [core.PortLimit]port
	timers [core.TimerLimit]*Timer
	uart   *UART
	ccps   [core.CCPLimit]*CCP

	ccpTimers uint8 // shared capture/compare timer select

	flags        core.PeripheralSet
	enables      core.PeripheralSet
	priority     [core.PeripheralLimit]core.Priority
	trigger      [3]gpio.Edge
	priorityMode bool
	global       bool

	vector, high, low func()
	isr               isrLevel
}

// isrLevel is the vector currently executing.
type isrLevel uint8

const (
	isrNone isrLevel = iota
	isrLow           // low vector, or the single vector
	isrHigh
)

// NewBoard returns a board in its reset state: every pin an input, every
// timer stopped, interrupts disabled.
func NewBoard(clock core.Clock) *Board {
	b := &Board{clock: clock}
	for i := range b.ports {
		b.ports[i].tris = 0xFF
	}
	for i := range b.trigger {
		b.trigger[i] = gpio.RisingEdge
	}
	for id := core.TimerID(0); id < core.TimerLimit; id++ {
		b.timers[id] = newTimer(b, id)
	}
	for id := core.CCPID(0); id < core.CCPLimit; id++ {
		b.ccps[id] = newCCP(b, id)
	}
	b.uart = newUART(b)
	return b
}

// Pins implements core.Hardware.
func (b *Board) Pins() core.PinDriver {
	return b
}

// Interrupts implements core.Hardware.
func (b *Board) Interrupts() core.InterruptController {
	return b
}

// Timer implements core.Hardware.
func (b *Board) Timer(id core.TimerID) core.TimerHardware {
	if id >= core.TimerLimit {
		return nil
	}
	return b.timers[id]
}

// SimTimer returns the model of a timer channel for inspection.
func (b *Board) SimTimer(id core.TimerID) *Timer {
	if id >= core.TimerLimit {
		return nil
	}
	return b.timers[id]
}

// CCP implements core.Hardware.
func (b *Board) CCP(id core.CCPID) core.CCPHardware {
	if id >= core.CCPLimit {
		return nil
	}
	return b.ccps[id]
}

// SimCCP returns the model of a capture/compare/PWM module for inspection.
func (b *Board) SimCCP(id core.CCPID) *CCP {
	if id >= core.CCPLimit {
		return nil
	}
	return b.ccps[id]
}

// UART returns the simulated EUSART.
func (b *Board) UART() *UART {
	return b.uart
}

// Attach connects the board's interrupt vectors to m.
func (b *Board) Attach(m *core.MCU) {
	b.AttachVectors(m.Interrupt, m.InterruptHigh, m.InterruptLow)
}

// AttachVectors sets the functions called for the single vector and the
// high and low priority vectors.
func (b *Board) AttachVectors(single, high, low func()) {
	b.vector = single
	b.high = high
	b.low = low
}

// Cycle returns the number of instruction cycles executed.
func (b *Board) Cycle() uint64 {
	return b.cycle
}

// Cycles converts a duration into instruction cycles.
func (b *Board) Cycles(d time.Duration) uint64 {
	return uint64(d) * uint64(b.clock.Hz) / core.BaseClockDivisor / uint64(time.Second)
}

// Elapsed returns the simulated time since reset.
func (b *Board) Elapsed() time.Duration {
	if b.clock.Hz == 0 {
		return 0
	}
	ticks := b.cycle * core.BaseClockDivisor
	hz := uint64(b.clock.Hz)
	return time.Duration(ticks/hz)*time.Second + time.Duration(ticks%hz*uint64(time.Second)/hz)
}

// Step executes n instruction cycles. Interrupts are taken between cycles.
func (b *Board) Step(n uint64) {
	for i := uint64(0); i < n; i++ {
		b.cycle++
		for _, t := range b.timers {
			if t.running && !t.external {
				t.clockIn()
			}
		}
		b.serviceInterrupts()
	}
}

// Run executes the cycles making up d.
func (b *Board) Run(d time.Duration) {
	b.Step(b.Cycles(d))
}

// serviceInterrupts takes pending interrupts. A vector is never re-entered
// and the single vector is never interrupted, but in priority mode the high
// vector preempts a running low vector.
func (b *Board) serviceInterrupts() {
	if b.isr == isrHigh || !b.global || b.flags&b.enables == 0 {
		return
	}
	if !b.priorityMode {
		if b.isr == isrNone && b.pending(false, 0) && b.vector != nil {
			b.enter(isrLow, b.vector)
		}
		return
	}
	if b.pending(true, core.PriorityHigh) && b.high != nil {
		b.enter(isrHigh, b.high)
	}
	if b.isr == isrNone && b.pending(true, core.PriorityLow) && b.low != nil {
		b.enter(isrLow, b.low)
	}
}

func (b *Board) enter(level isrLevel, vector func()) {
	prev := b.isr
	b.isr = level
	defer func() { b.isr = prev }()
	vector()
}

func (b *Board) pending(tiered bool, pr core.Priority) bool {
	active := b.flags & b.enables
	if !tiered {
		return active != 0
	}
	for p := core.Peripheral(0); p < core.PeripheralLimit; p++ {
		if active.Has(p) && b.tier(p) == pr {
			return true
		}
	}
	return false
}

func (b *Board) tier(p core.Peripheral) core.Priority {
	if p == core.PeriphINT0 {
		return core.PriorityHigh
	}
	return b.priority[p]
}

// Raise sets a peripheral's pending flag, as the hardware would on an event.
// A high-tier event raised while the low vector runs preempts it at once.
func (b *Board) Raise(p core.Peripheral) {
	b.flags = b.flags.With(p)
	if b.isr == isrLow && b.priorityMode {
		b.serviceInterrupts()
	}
}
