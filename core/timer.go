package core

import "periph.io/x/conn/v3/gpio"

// Handler is an interrupt callback. It runs in interrupt context and must
// return quickly without blocking.
type Handler func()

// TimerConfig is the configuration of one timer channel.
type TimerConfig struct {
	Mode       TimerMode
	Resolution Resolution
	SourceEdge gpio.Edge // counted edge in ModeCounter
	Prescaler  Prescaler
	Postscaler Postscaler // Timer2 only
	Handler    Handler    // optional; without it the channel is polled
	Priority   Priority
}

// Timer drives one hardware timer channel. Configuration methods are called
// from the main loop; service runs from the dispatch router.
type Timer struct {
	mcu  *MCU
	spec ChannelSpec
	hw   TimerHardware

	cfg        TimerConfig
	configured bool
	running    bool

	// Written by StartTimer inside a critical section, read by service.
	plan   DelayPlan
	period uint32 // hardware events per period, 0 when stopped

	// Written by service only.
	events uint32
	fires  uint32
}

func (t *Timer) op(name string) string {
	return t.spec.ID.String() + "." + name
}

// ID returns the channel identifier.
func (t *Timer) ID() TimerID {
	return t.spec.ID
}

// Spec returns the channel description.
func (t *Timer) Spec() ChannelSpec {
	return t.spec
}

// Config returns the active configuration.
func (t *Timer) Config() TimerConfig {
	return t.cfg
}

// Plan returns the delay plan loaded by the last StartTimer.
func (t *Timer) Plan() DelayPlan {
	state := disableInterrupts()
	p := t.plan
	restoreInterrupts(state)
	return p
}

// Fires returns the number of completed periods since the last start.
func (t *Timer) Fires() uint32 {
	state := disableInterrupts()
	n := t.fires
	restoreInterrupts(state)
	return n
}

// Running reports whether the channel is counting.
func (t *Timer) Running() bool {
	return t.running
}

// Init validates cfg and programs the channel. The channel is left stopped
// with its interrupt disabled. On error no register is touched.
func (t *Timer) Init(cfg *TimerConfig) error {
	op := t.op("init")
	if cfg == nil {
		return t.reject(causeError(op, ErrNilConfig))
	}
	if err := t.spec.validate(op, cfg); err != nil {
		return t.reject(err)
	}
	p := t.spec.Peripheral()
	if cfg.Handler != nil && !t.mcu.features.Has(p) {
		return t.reject(causeError(op, ErrFeatureDisabled))
	}

	code, _ := t.spec.PrescalerCode(cfg.Prescaler)
	width := t.spec.Width(cfg.Resolution)

	state := disableInterrupts()
	t.stop()
	t.hw.SetClockSource(cfg.Mode == ModeCounter)
	if cfg.Mode == ModeCounter {
		t.hw.SetSourceEdge(cfg.SourceEdge)
	}
	if width == 1<<8 {
		t.hw.SetWidth(8)
	} else {
		t.hw.SetWidth(16)
	}
	t.hw.SetPrescaler(code)
	if t.spec.Postscaler {
		t.hw.SetPostscaler(uint8(cfg.Postscaler))
	}
	t.cfg = *cfg
	t.configured = true
	t.plan = DelayPlan{}
	t.mcu.registry.bind(t.spec.Source(), cfg.Handler, cfg.Priority)
	restoreInterrupts(state)

	debugLog(op + " mode=" + cfg.Mode.String() + " prescale=" + utoa(cfg.Prescaler.Factor()))
	return nil
}

// DeInit stops the channel, clears its handler and resets its priority.
func (t *Timer) DeInit() error {
	state := disableInterrupts()
	t.stop()
	t.mcu.registry.unbind(t.spec.Source())
	t.cfg = TimerConfig{}
	t.configured = false
	t.plan = DelayPlan{}
	restoreInterrupts(state)
	return nil
}

// StartTimer loads the counter for a delay of delayMs and starts the
// channel. The handler fires once every delayMs until Stop.
func (t *Timer) StartTimer(delayMs uint32) error {
	op := t.op("start")
	if !t.configured {
		return t.reject(causeError(op, ErrNotConfigured))
	}
	if t.cfg.Mode == ModeCounter {
		return t.reject(causeError(op, ErrWrongMode))
	}
	plan, err := ComputeDelay(t.spec, t.cfg, t.mcu.features.Clock, delayMs)
	if err != nil {
		return t.reject(err)
	}
	if plan.Degraded() {
		debugLog(op + " compare divisor fell back to 1 ticks=" + utoa64(plan.TotalTicks))
	}

	state := disableInterrupts()
	t.stop()
	t.plan = plan
	t.period = plan.Events()
	t.load()
	t.arm()
	restoreInterrupts(state)

	debugLog(op + " ticks=" + utoa64(plan.TotalTicks) +
		" overflows=" + utoa(plan.Overflows) + " reload=" + utoa(uint32(plan.Reload)))
	return nil
}

// StartCounter configures the external clock pin as input and starts
// counting edges. The handler fires on every counter overflow.
func (t *Timer) StartCounter() error {
	op := t.op("start_counter")
	if !t.configured {
		return t.reject(causeError(op, ErrNotConfigured))
	}
	if t.cfg.Mode != ModeCounter {
		return t.reject(causeError(op, ErrWrongMode))
	}
	if err := t.mcu.pins.SetDirection(t.spec.CountPin, Input); err != nil {
		return t.reject(causeError(op, err))
	}

	state := disableInterrupts()
	t.stop()
	t.plan = DelayPlan{}
	t.period = 1
	t.arm()
	restoreInterrupts(state)
	return nil
}

// Stop halts the channel and disables its interrupt. The configuration and
// handler are kept.
func (t *Timer) Stop() {
	state := disableInterrupts()
	t.stop()
	restoreInterrupts(state)
}

// WriteCounter loads the counter register directly. The value is written
// as given; no write-inhibit correction is applied.
func (t *Timer) WriteCounter(v uint16) {
	state := disableInterrupts()
	t.hw.WriteCounter(v)
	restoreInterrupts(state)
}

// ReadCounter returns the counter register.
func (t *Timer) ReadCounter() uint16 {
	state := disableInterrupts()
	v := t.hw.ReadCounter()
	restoreInterrupts(state)
	return v
}

// WriteCompare loads the period register of a compare-match channel.
func (t *Timer) WriteCompare(v uint8) error {
	if t.spec.ID != Timer2 {
		return causeError(t.op("write_compare"), ErrWrongMode)
	}
	t.hw.WriteCompare(v)
	return nil
}

// ReadCompare returns the period register of a compare-match channel.
func (t *Timer) ReadCompare() (uint8, error) {
	if t.spec.ID != Timer2 {
		return 0, causeError(t.op("read_compare"), ErrWrongMode)
	}
	return t.hw.ReadCompare(), nil
}

// stop must run with interrupts masked.
func (t *Timer) stop() {
	p := t.spec.Peripheral()
	t.hw.SetRunning(false)
	t.mcu.ic.Disable(p)
	t.mcu.ic.ClearFlag(p)
	t.running = false
	t.period = 0
	t.events = 0
	t.fires = 0
}

// arm must run with interrupts masked.
func (t *Timer) arm() {
	p := t.spec.Peripheral()
	t.events = 0
	t.fires = 0
	t.mcu.ic.ClearFlag(p)
	if t.mcu.registry.Handler(t.spec.Source()) != nil {
		t.mcu.ic.Enable(p)
	}
	t.hw.SetRunning(true)
	t.running = true
}

// load writes the plan's start-of-period values.
func (t *Timer) load() {
	if t.spec.Postscaler {
		if t.plan.Compare() {
			t.hw.WriteCompare(uint8(t.plan.Reload))
		} else {
			t.hw.WriteCompare(uint8(t.spec.Width(t.cfg.Resolution) - 1))
		}
	}
	t.hw.WriteCounter(t.plan.CounterValue())
}

// service runs from the dispatch router after the channel's flag has been
// cleared. It counts hardware events and, once a full period has elapsed,
// reloads the counter and invokes the handler.
func (t *Timer) service() {
	if t.period == 0 {
		t.mcu.dispatch.drop(t.spec.Peripheral())
		return
	}
	t.events++
	if t.events < t.period {
		return
	}
	t.events = 0
	if t.cfg.Mode != ModeCounter {
		t.load()
	}
	t.fires++
	h := t.mcu.registry.Handler(t.spec.Source())
	if h == nil {
		t.mcu.dispatch.drop(t.spec.Peripheral())
		return
	}
	t.mcu.trace.record(TraceFire, uint8(t.spec.Source()), t.fires)
	h()
}

func (t *Timer) reject(err error) error {
	debugLog(err.Error())
	return err
}
