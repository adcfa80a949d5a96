package sim

import (
	"reflect"
	"testing"
	"time"

	"picmcal/core"

	"periph.io/x/conn/v3/gpio"
)

func TestTimerPrescaleAndWriteInhibit(t *testing.T) {
	b := NewBoard(core.DefaultClock)
	tm := b.SimTimer(core.Timer1)
	tm.SetPrescaler(1) // x2
	tm.WriteCounter(0xFFFE)
	tm.SetRunning(true)

	// Two suppressed increments, FFFE->FFFF, then the overflow: 4 x 2 cycles.
	b.Step(7)
	if b.Flag(core.PeriphTimer1) {
		t.Fatal("overflow one cycle early")
	}
	if tm.ReadCounter() != 0xFFFF {
		t.Errorf("counter %#x, want 0xffff", tm.ReadCounter())
	}
	b.Step(1)
	if !b.Flag(core.PeriphTimer1) {
		t.Fatal("no overflow after 8 cycles")
	}
	if tm.ReadCounter() != 0 {
		t.Errorf("counter %#x after overflow, want 0", tm.ReadCounter())
	}
}

func TestTimerPrescalerDecode(t *testing.T) {
	b := NewBoard(core.DefaultClock)
	tests := []struct {
		id   core.TimerID
		code int
		want uint32
	}{
		{core.Timer0, -1, 1},
		{core.Timer0, 0, 2},
		{core.Timer0, 7, 256},
		{core.Timer1, 0, 1},
		{core.Timer1, 3, 8},
		{core.Timer2, 0, 1},
		{core.Timer2, 1, 4},
		{core.Timer2, 3, 16},
		{core.Timer3, 2, 4},
	}
	for _, tt := range tests {
		tm := b.SimTimer(tt.id)
		tm.SetPrescaler(tt.code)
		if got := tm.Prescale(); got != tt.want {
			t.Errorf("%v code %d: prescale %d, want %d", tt.id, tt.code, got, tt.want)
		}
	}
}

func TestTimer0EightBit(t *testing.T) {
	b := NewBoard(core.DefaultClock)
	tm := b.SimTimer(core.Timer0)
	tm.SetWidth(8)
	tm.SetPrescaler(-1)
	tm.WriteCounter(0x1FE)
	if tm.ReadCounter() != 0xFE {
		t.Fatalf("counter %#x, want 0xfe", tm.ReadCounter())
	}
	tm.SetRunning(true)
	b.Step(4)
	if !b.Flag(core.PeriphTimer0) {
		t.Error("8-bit Timer0 did not overflow past 0xff")
	}
}

func TestTimer2PeriodMatchAndPostscaler(t *testing.T) {
	b := NewBoard(core.DefaultClock)
	tm := b.SimTimer(core.Timer2)
	tm.SetPrescaler(0)
	tm.SetPostscaler(1) // x2
	tm.WriteCompare(4)
	tm.WriteCounter(0)
	tm.SetRunning(true)

	// 2 inhibited cycles, then two periods of PR2+1 increments each.
	b.Step(11)
	if b.Flag(core.PeriphTimer2) {
		t.Fatal("match flag before the postscaler expired")
	}
	b.Step(1)
	if !b.Flag(core.PeriphTimer2) {
		t.Fatal("no match flag after two periods")
	}
	if tm.ReadCompare() != 4 {
		t.Errorf("PR2 = %d, want 4", tm.ReadCompare())
	}
}

func TestTimerExternalClock(t *testing.T) {
	b := NewBoard(core.DefaultClock)
	t0 := b.SimTimer(core.Timer0)
	t0.SetClockSource(true)
	t0.SetSourceEdge(gpio.FallingEdge)
	t0.SetPrescaler(-1)
	t0.SetRunning(true)

	t1 := b.SimTimer(core.Timer1)
	t1.SetClockSource(true)
	t1.SetRunning(true)

	for i := 0; i < 3; i++ {
		b.Pulse(core.PinT0CKI)
		b.Pulse(core.PinT13CKI)
	}
	b.SetPin(core.PinT0CKI, gpio.High)
	b.Step(100)

	if t0.ReadCounter() != 3 {
		t.Errorf("Timer0 counted %d falling edges, want 3", t0.ReadCounter())
	}
	if t1.ReadCounter() != 3 {
		t.Errorf("Timer1 counted %d rising edges, want 3", t1.ReadCounter())
	}
	if b.SimTimer(core.Timer3).ReadCounter() != 0 {
		t.Error("stopped Timer3 counted")
	}
}

func TestWriteLogWraps(t *testing.T) {
	b := NewBoard(core.DefaultClock)
	tm := b.SimTimer(core.Timer3)
	for i := 0; i < writeLogSize+3; i++ {
		tm.WriteCounter(uint16(i))
	}
	w := tm.Writes()
	if len(w) != writeLogSize || tm.WriteCount() != writeLogSize+3 {
		t.Fatalf("log len %d count %d", len(w), tm.WriteCount())
	}
	if w[0] != 3 || w[len(w)-1] != writeLogSize+2 {
		t.Errorf("log spans %d..%d, want 3..%d", w[0], w[len(w)-1], writeLogSize+2)
	}
}

func TestExternalInterruptTrigger(t *testing.T) {
	b := NewBoard(core.DefaultClock)

	b.SetPin(core.PinINT2, gpio.High)
	if !b.Flag(core.PeriphINT2) {
		t.Error("rising edge did not flag INT2")
	}

	b.SetTrigger(core.PeriphINT0, gpio.FallingEdge)
	b.SetPin(core.PinINT0, gpio.High)
	if b.Flag(core.PeriphINT0) {
		t.Fatal("rising edge flagged a falling-triggered line")
	}
	b.SetPin(core.PinINT0, gpio.Low)
	if !b.Flag(core.PeriphINT0) {
		t.Error("falling edge did not flag INT0")
	}
	if b.Trigger(core.PeriphADC) != gpio.NoEdge {
		t.Error("non-external peripheral reports a trigger")
	}
}

func TestOnChangeOnlyForInputs(t *testing.T) {
	b := NewBoard(core.DefaultClock)

	b.SetDirection(core.PinRB5, core.Output)
	b.Write(core.PinRB5, gpio.High)
	if b.Flag(core.PeriphOnChange) {
		t.Fatal("output pin raised the on-change flag")
	}
	if lvl, _ := b.Read(core.PinRB5); lvl != gpio.High {
		t.Error("output latch not visible on the pin")
	}

	b.SetPin(core.PinRB6, gpio.High)
	if !b.Flag(core.PeriphOnChange) {
		t.Error("input pin change did not raise the on-change flag")
	}
	if err := b.SetPin(core.Pin{Port: core.PortLimit}, gpio.High); err != ErrInvalidPin {
		t.Errorf("invalid pin err = %v", err)
	}
}

func TestUARTFlags(t *testing.T) {
	b := NewBoard(core.DefaultClock)
	u := b.UART()

	u.Receive([]byte("ab"))
	if !b.Flag(core.PeriphSerialRx) || u.Buffered() != 2 {
		t.Fatal("receive did not queue and flag")
	}
	buf := make([]byte, 1)
	u.Read(buf)
	if !b.Flag(core.PeriphSerialRx) {
		t.Error("flag cleared with a byte still queued")
	}
	u.Read(buf)
	if b.Flag(core.PeriphSerialRx) || buf[0] != 'b' {
		t.Error("flag not cleared after draining")
	}

	u.Write([]byte{1, 2, 3})
	if !b.Flag(core.PeriphSerialTx) {
		t.Error("write did not flag transmit")
	}
	if got := u.Transmitted(); !reflect.DeepEqual(got, []byte{1, 2, 3}) {
		t.Errorf("transmitted %v", got)
	}
}

func TestCyclesAndElapsed(t *testing.T) {
	b := NewBoard(core.DefaultClock)
	if got := b.Cycles(time.Millisecond); got != 4000 {
		t.Fatalf("Cycles(1ms) = %d, want 4000", got)
	}
	b.Run(3 * time.Millisecond)
	if b.Cycle() != 12000 {
		t.Errorf("Cycle = %d, want 12000", b.Cycle())
	}
	if b.Elapsed() != 3*time.Millisecond {
		t.Errorf("Elapsed = %v, want 3ms", b.Elapsed())
	}
}

func TestVectors(t *testing.T) {
	b := NewBoard(core.DefaultClock)
	var calls []string
	b.AttachVectors(
		func() { calls = append(calls, "single"); b.ClearFlag(core.PeriphADC) },
		func() { calls = append(calls, "high"); b.ClearFlag(core.PeriphINT0) },
		func() { calls = append(calls, "low"); b.ClearFlag(core.PeriphADC) },
	)
	b.Enable(core.PeriphADC)
	b.Enable(core.PeriphINT0)

	b.Raise(core.PeriphADC)
	b.Step(1)
	if len(calls) != 0 {
		t.Fatal("vector taken with global interrupts off")
	}

	b.SetGlobal(true)
	b.Step(1)
	if !reflect.DeepEqual(calls, []string{"single"}) {
		t.Fatalf("calls %v, want [single]", calls)
	}

	calls = nil
	b.SetPriorityMode(true)
	b.SetPriority(core.PeriphINT0, core.PriorityLow)
	b.Raise(core.PeriphADC)
	b.Raise(core.PeriphINT0)
	b.Step(1)
	if !reflect.DeepEqual(calls, []string{"high", "low"}) {
		t.Errorf("calls %v, want [high low]", calls)
	}
	if b.Priority(core.PeriphINT0) != core.PriorityHigh {
		t.Error("INT0 left the high tier")
	}
}

func TestHighVectorPreemptsLow(t *testing.T) {
	b := NewBoard(core.DefaultClock)
	var calls []string
	b.AttachVectors(
		func() {
			calls = append(calls, "single")
			b.ClearFlag(core.PeriphADC)
			b.Raise(core.PeriphINT0)
			calls = append(calls, "single done")
		},
		func() { calls = append(calls, "high"); b.ClearFlag(core.PeriphINT0) },
		func() {
			calls = append(calls, "low")
			b.ClearFlag(core.PeriphADC)
			b.Raise(core.PeriphINT0)
			b.Raise(core.PeriphSerialRx)
			calls = append(calls, "low done")
		},
	)
	b.Enable(core.PeriphADC)
	b.Enable(core.PeriphINT0)
	b.Enable(core.PeriphSerialRx)
	b.SetGlobal(true)
	b.SetPriorityMode(true)

	b.Raise(core.PeriphADC)
	b.Step(1)
	want := []string{"low", "high", "low done"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls %v, want %v", calls, want)
	}

	// A low-tier flag raised inside the low vector waits for the next entry.
	if !b.Flag(core.PeriphSerialRx) {
		t.Fatal("serial flag lost")
	}
	calls = nil
	b.ClearFlag(core.PeriphSerialRx)
	b.SetPriorityMode(false)
	b.Raise(core.PeriphADC)
	b.Step(1)
	want = []string{"single", "single done"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls %v, want %v", calls, want)
	}
	if !b.Flag(core.PeriphINT0) {
		t.Error("INT0 taken inside the single vector")
	}
}
