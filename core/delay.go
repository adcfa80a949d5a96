package core

import (
	"math"
	"time"
)

const (
	// BaseClockDivisor is the number of oscillator periods per instruction
	// cycle. Timers count instruction cycles.
	BaseClockDivisor = 4

	// WriteInhibitCycles is added to every value loaded into a running
	// counter register to make up for the increments lost after the write.
	WriteInhibitCycles = 2

	// CompareMax is the largest divisor a compare-match period can use.
	CompareMax = 255
)

// Clock is the oscillator frequency the instruction clock is derived from.
type Clock struct {
	Hz uint32
}

// DefaultClock is the 16 MHz oscillator of the reference board.
var DefaultClock = Clock{Hz: 16000000}

// TickTime returns the duration of one counter increment for the given
// total division of the instruction clock.
func (c Clock) TickTime(div uint32) time.Duration {
	if c.Hz == 0 {
		return 0
	}
	return time.Duration(uint64(div) * BaseClockDivisor * uint64(time.Second) / uint64(c.Hz))
}

// DelayPlan is the result of turning a millisecond delay into counter
// values for one channel.
type DelayPlan struct {
	TickTime   time.Duration // duration of one counter increment
	TotalTicks uint64        // counter increments per period
	Overflows  uint32        // full counter periods (free-running) or matches (compare)
	Reload     uint16        // preload of a free-running counter, or compare value
	Width      uint32        // counter period in ticks; 0 for compare-match
	Divisor    uint32        // compare-match divisor; 0 for free-running
}

// Compare reports whether the plan uses the compare-match scheme.
func (p DelayPlan) Compare() bool {
	return p.Divisor != 0
}

// Degraded reports a compare-match plan whose divisor search bottomed out
// at 1, so every counter increment raises a match.
func (p DelayPlan) Degraded() bool {
	return p.Divisor == 1 && p.TotalTicks > 1
}

// Events returns the number of hardware interrupts that make up one period.
func (p DelayPlan) Events() uint32 {
	if p.Compare() {
		return p.Overflows
	}
	return p.Overflows + 1
}

// CounterValue returns the value to write into the live counter register
// at the start of each period, including the write-inhibit correction.
func (p DelayPlan) CounterValue() uint16 {
	if p.Compare() {
		return WriteInhibitCycles
	}
	v := uint32(p.Reload) + WriteInhibitCycles
	if p.Width != 0 && v >= p.Width {
		v = p.Width - 1
	}
	return uint16(v)
}

// ComputeDelay plans a delay of delayMs on the channel described by ch with
// the divisions of cfg.
//
// Free-running channels satisfy Overflows*Width + (Width - Reload) ==
// TotalTicks. Compare-match channels satisfy Overflows*Divisor == TotalTicks.
func ComputeDelay(ch ChannelSpec, cfg TimerConfig, clk Clock, delayMs uint32) (DelayPlan, error) {
	op := ch.ID.String() + ".delay"
	if err := ch.validate(op, &cfg); err != nil {
		return DelayPlan{}, err
	}
	if clk.Hz == 0 {
		return DelayPlan{}, rangeError(op, "clock_hz", 0)
	}
	if cfg.Mode == ModeCounter {
		return DelayPlan{}, causeError(op, ErrWrongMode)
	}

	div := cfg.Prescaler.Factor() * cfg.Postscaler.Factor()
	total := uint64(delayMs) * uint64(clk.Hz) / (1000 * BaseClockDivisor * uint64(div))
	if total == 0 {
		return DelayPlan{}, causeError(op, ErrZeroDelay)
	}

	plan := DelayPlan{
		TickTime:   clk.TickTime(div),
		TotalTicks: total,
	}

	if cfg.Mode == ModeCompareMatch {
		d := uint64(CompareMax)
		for total%d != 0 {
			d--
		}
		n := total / d
		if n > math.MaxUint32 {
			return DelayPlan{}, rangeError(op, "delay_ms", int(delayMs))
		}
		plan.Divisor = uint32(d)
		plan.Overflows = uint32(n)
		plan.Reload = uint16(d - 1)
		return plan, nil
	}

	width := uint64(ch.Width(cfg.Resolution))
	n := total / width
	rem := total % width
	if rem == 0 {
		// A whole number of periods: the last overflow ends the delay.
		n--
		rem = width
	}
	if n > math.MaxUint32 {
		return DelayPlan{}, rangeError(op, "delay_ms", int(delayMs))
	}
	plan.Width = uint32(width)
	plan.Overflows = uint32(n)
	plan.Reload = uint16(width - rem)
	return plan, nil
}
