package core

// MCU is the context object owning every table the timer engine and the
// dispatch router share. Create it once at startup with New and connect its
// vectors to the hardware entry points.
type MCU struct {
	features Features
	hw       Hardware
	pins     PinDriver
	ic       InterruptController

	registry Registry
	dispatch Dispatcher
	edges    EdgeSynth
	trace    Trace
	timers   [TimerLimit]Timer
	ccps     [CCPLimit]CCP
}

// New validates f and builds a context over hw. Every peripheral starts
// disabled and the global interrupt enable is cleared.
func New(hw Hardware, f Features) (*MCU, error) {
	if hw == nil {
		return nil, causeError("mcu.new", ErrNilConfig)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	m := &MCU{
		features: f,
		hw:       hw,
		pins:     hw.Pins(),
		ic:       hw.Interrupts(),
	}
	m.registry = Registry{ic: m.ic, features: &m.features}
	m.dispatch.mcu = m
	m.edges.mcu = m
	m.trace.enabled = f.Trace

	for id := TimerID(0); id < TimerLimit; id++ {
		spec, _ := Spec(id)
		t := &m.timers[id]
		t.mcu = m
		t.spec = spec
		t.hw = hw.Timer(id)
		m.dispatch.services[spec.Peripheral()] = t.service
	}
	for id := CCPID(0); id < CCPLimit; id++ {
		m.ccps[id] = CCP{mcu: m, id: id, hw: hw.CCP(id)}
	}
	for p := Peripheral(0); p < PeripheralLimit; p++ {
		if m.dispatch.services[p] == nil {
			m.dispatch.services[p] = m.dispatch.handler(p)
		}
	}
	m.dispatch.services[PeriphOnChange] = m.edges.service

	m.ic.SetGlobal(false)
	m.ic.SetPriorityMode(f.Priority)
	for p := Peripheral(0); p < PeripheralLimit; p++ {
		m.ic.Disable(p)
		m.ic.ClearFlag(p)
		if f.Priority {
			if p == PeriphINT0 {
				m.ic.SetPriority(p, PriorityHigh)
			} else {
				m.ic.SetPriority(p, PriorityLow)
			}
		}
	}
	return m, nil
}

// Features returns the startup configuration.
func (m *MCU) Features() Features {
	return m.features
}

// Timer returns the channel id, or nil for an unknown id.
func (m *MCU) Timer(id TimerID) *Timer {
	if id >= TimerLimit {
		return nil
	}
	return &m.timers[id]
}

// CCP returns the capture/compare/PWM module id, or nil for an unknown id.
func (m *MCU) CCP(id CCPID) *CCP {
	if id >= CCPLimit {
		return nil
	}
	return &m.ccps[id]
}

// Registry returns the handler table.
func (m *MCU) Registry() *Registry {
	return &m.registry
}

// Dispatcher returns the interrupt router.
func (m *MCU) Dispatcher() *Dispatcher {
	return &m.dispatch
}

// Edges returns the on-change edge synthesizer.
func (m *MCU) Edges() *EdgeSynth {
	return &m.edges
}

// Trace returns the dispatch trace ring.
func (m *MCU) Trace() *Trace {
	return &m.trace
}

// Interrupt is the single interrupt vector.
func (m *MCU) Interrupt() {
	m.dispatch.Interrupt()
}

// InterruptHigh is the high-priority interrupt vector.
func (m *MCU) InterruptHigh() {
	m.dispatch.InterruptHigh()
}

// InterruptLow is the low-priority interrupt vector.
func (m *MCU) InterruptLow() {
	m.dispatch.InterruptLow()
}

// InitPeripheral arms a serial or ADC handler slot.
func (m *MCU) InitPeripheral(cfg *HandlerConfig) error {
	return m.registry.Init(cfg)
}

// DeInitPeripheral empties a serial or ADC handler slot.
func (m *MCU) DeInitPeripheral(cfg *HandlerConfig) error {
	return m.registry.DeInit(cfg)
}

// EnableInterrupts sets the global enable bits of the active vector scheme.
func (m *MCU) EnableInterrupts() {
	m.ic.SetGlobal(true)
}

// DisableInterrupts clears the global enable bits.
func (m *MCU) DisableInterrupts() {
	m.ic.SetGlobal(false)
}

// InterruptStatus reports the global enable bit, for save/restore around
// code that must not be interrupted.
func (m *MCU) InterruptStatus() bool {
	return m.ic.Global()
}

// SetInterruptStatus restores a state returned by InterruptStatus.
func (m *MCU) SetInterruptStatus(on bool) {
	m.ic.SetGlobal(on)
}
