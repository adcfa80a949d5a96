package core

// TimerID identifies a hardware timer channel.
type TimerID uint8

const (
	Timer0 TimerID = iota
	Timer1
	Timer2
	Timer3
	TimerLimit
)

func (id TimerID) String() string {
	if id < TimerLimit {
		return "timer" + itoa(int(id))
	}
	return "timer(" + itoa(int(id)) + ")"
}

// TimerMode selects the clock source and interrupt semantics of a channel.
type TimerMode uint8

const (
	ModeTimer        TimerMode = iota // free-running on the instruction clock
	ModeCounter                       // counts edges on the external clock pin
	ModeCompareMatch                  // interrupts when the counter matches the period register
	TimerModeLimit
)

func (m TimerMode) String() string {
	switch m {
	case ModeTimer:
		return "timer"
	case ModeCounter:
		return "counter"
	case ModeCompareMatch:
		return "compare"
	}
	return "mode(" + itoa(int(m)) + ")"
}

// Resolution selects the counter width. ResolutionNative picks the widest
// width the channel supports.
type Resolution uint8

const (
	ResolutionNative Resolution = iota
	Resolution8Bit
	Resolution16Bit
	ResolutionLimit
)

// Prescaler divides the counter input clock. The multiplier of each value is
// 1 << value, NoPrescaler being the x1 sentinel.
type Prescaler uint8

const (
	NoPrescaler Prescaler = iota
	Prescale2
	Prescale4
	Prescale8
	Prescale16
	Prescale32
	Prescale64
	Prescale128
	Prescale256
	PrescalerLimit
)

// Factor returns the integer multiplier of the prescaler.
func (p Prescaler) Factor() uint32 {
	return 1 << p
}

// Postscaler divides the interrupt rate of the compare-match channel. The
// multiplier of each value is value + 1.
type Postscaler uint8

const (
	NoPostscaler Postscaler = iota
	Postscale2
	Postscale3
	Postscale4
	Postscale5
	Postscale6
	Postscale7
	Postscale8
	Postscale9
	Postscale10
	Postscale11
	Postscale12
	Postscale13
	Postscale14
	Postscale15
	Postscale16
	PostscalerLimit
)

// Factor returns the integer multiplier of the postscaler.
func (p Postscaler) Factor() uint32 {
	return uint32(p) + 1
}

// noCode marks a prescaler value the channel cannot encode.
const noCode = -2

// prescalerBypass is the register encoding that routes around the prescaler.
const prescalerBypass = -1

// ChannelSpec describes what a timer channel supports and how its control
// register encodes it.
type ChannelSpec struct {
	ID         TimerID
	Modes      [TimerModeLimit]bool
	Widths     [ResolutionLimit]uint32 // counter period in ticks per resolution; 0 = unsupported
	Prescalers [PrescalerLimit]int     // register code per prescaler; noCode = unsupported
	Postscaler bool
	CountPin   Pin
	HasCount   bool
}

// Peripheral returns the interrupt flag of the channel.
func (s ChannelSpec) Peripheral() Peripheral {
	return Peripheral(s.ID)
}

// Source returns the handler slot of the channel.
func (s ChannelSpec) Source() Source {
	return Source(s.ID)
}

// Width returns the counter period for a resolution, resolving
// ResolutionNative, or 0 when the channel does not support it.
func (s ChannelSpec) Width(r Resolution) uint32 {
	if r >= ResolutionLimit {
		return 0
	}
	if r == ResolutionNative {
		if s.Widths[Resolution16Bit] != 0 {
			return s.Widths[Resolution16Bit]
		}
		return s.Widths[Resolution8Bit]
	}
	return s.Widths[r]
}

// PrescalerCode returns the register encoding of p.
func (s ChannelSpec) PrescalerCode(p Prescaler) (int, bool) {
	if p >= PrescalerLimit || s.Prescalers[p] == noCode {
		return 0, false
	}
	return s.Prescalers[p], true
}

// validate checks every field of cfg against the channel before any
// register is touched.
func (s ChannelSpec) validate(op string, cfg *TimerConfig) error {
	if cfg.Mode >= TimerModeLimit || !s.Modes[cfg.Mode] {
		return rangeError(op, "mode", int(cfg.Mode))
	}
	if s.Width(cfg.Resolution) == 0 {
		return rangeError(op, "resolution", int(cfg.Resolution))
	}
	if _, ok := s.PrescalerCode(cfg.Prescaler); !ok {
		return rangeError(op, "prescaler", int(cfg.Prescaler))
	}
	if cfg.Postscaler >= PostscalerLimit || (!s.Postscaler && cfg.Postscaler != NoPostscaler) {
		return rangeError(op, "postscaler", int(cfg.Postscaler))
	}
	if cfg.Mode == ModeCounter && !validEdge(cfg.SourceEdge) {
		return rangeError(op, "source_edge", int(cfg.SourceEdge))
	}
	if cfg.Priority >= PriorityLimit {
		return rangeError(op, "priority", int(cfg.Priority))
	}
	return nil
}

func unsupportedPrescalers() [PrescalerLimit]int {
	var p [PrescalerLimit]int
	for i := range p {
		p[i] = noCode
	}
	return p
}

var channelSpecs = func() [TimerLimit]ChannelSpec {
	var specs [TimerLimit]ChannelSpec

	// Timer0: 8 or 16 bit, prescaler 2..256 or bypassed, external clock on T0CKI.
	t0 := ChannelSpec{ID: Timer0, CountPin: PinT0CKI, HasCount: true}
	t0.Modes[ModeTimer] = true
	t0.Modes[ModeCounter] = true
	t0.Widths[Resolution8Bit] = 1 << 8
	t0.Widths[Resolution16Bit] = 1 << 16
	t0.Prescalers = unsupportedPrescalers()
	t0.Prescalers[NoPrescaler] = prescalerBypass
	for p := Prescale2; p <= Prescale256; p++ {
		t0.Prescalers[p] = int(p) - 1
	}
	specs[Timer0] = t0

	// Timer1 and Timer3: 16 bit, prescaler 1..8, external clock on T13CKI.
	for _, id := range []TimerID{Timer1, Timer3} {
		t := ChannelSpec{ID: id, CountPin: PinT13CKI, HasCount: true}
		t.Modes[ModeTimer] = true
		t.Modes[ModeCounter] = true
		t.Widths[Resolution16Bit] = 1 << 16
		t.Prescalers = unsupportedPrescalers()
		for p := NoPrescaler; p <= Prescale8; p++ {
			t.Prescalers[p] = int(p)
		}
		specs[id] = t
	}

	// Timer2: 8 bit with period register and postscaler, prescaler 1, 4 or 16.
	t2 := ChannelSpec{ID: Timer2, Postscaler: true}
	t2.Modes[ModeTimer] = true
	t2.Modes[ModeCompareMatch] = true
	t2.Widths[Resolution8Bit] = 1 << 8
	t2.Prescalers = unsupportedPrescalers()
	t2.Prescalers[NoPrescaler] = 0
	t2.Prescalers[Prescale4] = 1
	t2.Prescalers[Prescale16] = 3
	specs[Timer2] = t2

	return specs
}()

// Spec returns the description of a timer channel.
func Spec(id TimerID) (ChannelSpec, bool) {
	if id >= TimerLimit {
		return ChannelSpec{}, false
	}
	return channelSpecs[id], true
}
