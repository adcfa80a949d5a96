package core

import "periph.io/x/conn/v3/gpio"

// ExternalLine identifies an edge-triggered external interrupt pin.
type ExternalLine uint8

const (
	INT0 ExternalLine = iota
	INT1
	INT2
	ExternalLineLimit
)

var externalPins = [ExternalLineLimit]Pin{PinINT0, PinINT1, PinINT2}

// Peripheral returns the interrupt flag of the line.
func (l ExternalLine) Peripheral() Peripheral {
	return PeriphINT0 + Peripheral(l)
}

// Pin returns the port bit of the line.
func (l ExternalLine) Pin() Pin {
	if l >= ExternalLineLimit {
		return Pin{Port: PortLimit}
	}
	return externalPins[l]
}

// ExternalConfig configures one external interrupt line.
type ExternalConfig struct {
	Line     ExternalLine
	Trigger  gpio.Edge // gpio.RisingEdge or gpio.FallingEdge
	Handler  Handler
	Priority Priority // ignored for INT0, which is always high
}

// OnChangeConfig watches one port B pin through the shared on-change flag.
// Both callbacks are required.
type OnChangeConfig struct {
	Pin      OnChangePin
	Rising   Handler
	Falling  Handler
	Priority Priority
}

// InitExternal configures the line's pin as input, selects its trigger edge
// and arms its handler.
func (m *MCU) InitExternal(cfg *ExternalConfig) error {
	const op = "exti.init"
	if cfg == nil {
		return causeError(op, ErrNilConfig)
	}
	if cfg.Line >= ExternalLineLimit {
		return rangeError(op, "line", int(cfg.Line))
	}
	src := SourceINT0 + Source(cfg.Line)
	if err := firstError(
		edgeError(op, cfg.Trigger),
		nilHandler(op, cfg.Handler),
		m.registry.check(op, src, cfg.Priority),
	); err != nil {
		debugLog(err.Error())
		return err
	}
	if err := m.pins.SetDirection(cfg.Line.Pin(), Input); err != nil {
		return causeError(op, err)
	}

	p := cfg.Line.Peripheral()
	state := disableInterrupts()
	m.ic.Disable(p)
	m.ic.ClearFlag(p)
	m.ic.SetTrigger(p, cfg.Trigger)
	m.registry.bind(src, cfg.Handler, cfg.Priority)
	m.ic.Enable(p)
	restoreInterrupts(state)
	return nil
}

// DeInitExternal disarms the line and restores the falling-edge trigger.
func (m *MCU) DeInitExternal(cfg *ExternalConfig) error {
	const op = "exti.deinit"
	if cfg == nil {
		return causeError(op, ErrNilConfig)
	}
	if cfg.Line >= ExternalLineLimit {
		return rangeError(op, "line", int(cfg.Line))
	}
	p := cfg.Line.Peripheral()
	state := disableInterrupts()
	m.registry.unbind(SourceINT0 + Source(cfg.Line))
	m.ic.SetTrigger(p, gpio.FallingEdge)
	m.ic.ClearFlag(p)
	restoreInterrupts(state)
	return nil
}

// InitOnChange configures the pin as input, resets its edge state to
// Lowered and arms the shared on-change interrupt. All watched pins share
// one dispatch tier; a priority that differs from the other watched pins is
// rejected. A change pending for another pin is kept.
func (m *MCU) InitOnChange(cfg *OnChangeConfig) error {
	const op = "onchange.init"
	if cfg == nil {
		return causeError(op, ErrNilConfig)
	}
	if cfg.Pin >= OnChangePinLimit {
		return rangeError(op, "pin", int(cfg.Pin))
	}
	if err := firstError(
		nilHandler(op, cfg.Rising),
		nilHandler(op, cfg.Falling),
		m.registry.check(op, cfg.Pin.Rising(), cfg.Priority),
		m.onChangeTier(op, cfg.Pin, cfg.Priority),
	); err != nil {
		debugLog(err.Error())
		return err
	}
	if err := m.pins.SetDirection(cfg.Pin.Pin(), Input); err != nil {
		return causeError(op, err)
	}

	state := disableInterrupts()
	shared := m.otherWatched(cfg.Pin)
	m.ic.Disable(PeriphOnChange)
	m.registry.bind(cfg.Pin.Rising(), cfg.Rising, cfg.Priority)
	m.registry.bind(cfg.Pin.Falling(), cfg.Falling, cfg.Priority)
	m.edges.reset(cfg.Pin)
	if !shared {
		m.ic.ClearFlag(PeriphOnChange)
	}
	m.ic.Enable(PeriphOnChange)
	restoreInterrupts(state)
	return nil
}

// DeInitOnChange stops watching the pin. The shared interrupt stays enabled
// while another pin is watched.
func (m *MCU) DeInitOnChange(cfg *OnChangeConfig) error {
	const op = "onchange.deinit"
	if cfg == nil {
		return causeError(op, ErrNilConfig)
	}
	if cfg.Pin >= OnChangePinLimit {
		return rangeError(op, "pin", int(cfg.Pin))
	}
	state := disableInterrupts()
	m.registry.unbind(cfg.Pin.Rising())
	m.registry.unbind(cfg.Pin.Falling())
	m.edges.reset(cfg.Pin)
	restoreInterrupts(state)
	return nil
}

// otherWatched reports whether a pin other than pin has handlers.
func (m *MCU) otherWatched(pin OnChangePin) bool {
	for p := OnChangePin(0); p < OnChangePinLimit; p++ {
		if p != pin && m.registry.Registered(p.Rising()) {
			return true
		}
	}
	return false
}

func (m *MCU) onChangeTier(op string, pin OnChangePin, pr Priority) error {
	if !m.features.Priority || pr >= PriorityLimit || !m.otherWatched(pin) {
		return nil
	}
	if m.registry.Priority(PeriphOnChange) != pr {
		return &ConfigError{Op: op, Field: "priority", Value: int(pr), Err: ErrTierConflict}
	}
	return nil
}

func edgeError(op string, e gpio.Edge) error {
	if !validEdge(e) {
		return rangeError(op, "trigger", int(e))
	}
	return nil
}
