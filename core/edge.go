package core

import "periph.io/x/conn/v3/gpio"

// EdgeState is the last level the edge synthesizer saw on a watched pin.
type EdgeState uint8

const (
	Lowered EdgeState = iota
	Raised
)

func (s EdgeState) String() string {
	if s == Raised {
		return "raised"
	}
	return "lowered"
}

// OnChangePin identifies one of the port B pins sharing the on-change flag.
type OnChangePin uint8

const (
	RB4 OnChangePin = iota
	RB5
	RB6
	RB7
	OnChangePinLimit
)

var onChangePins = [OnChangePinLimit]Pin{PinRB4, PinRB5, PinRB6, PinRB7}

// Pin returns the port bit of the on-change pin.
func (p OnChangePin) Pin() Pin {
	if p >= OnChangePinLimit {
		return Pin{Port: PortLimit}
	}
	return onChangePins[p]
}

// Rising returns the handler slot of the pin's rising edge.
func (p OnChangePin) Rising() Source {
	return SourceRB4Rising + Source(2*p)
}

// Falling returns the handler slot of the pin's falling edge.
func (p OnChangePin) Falling() Source {
	return SourceRB4Falling + Source(2*p)
}

func (p OnChangePin) String() string {
	return "rb" + itoa(4+int(p))
}

// EdgeSynth turns the shared on-change flag into per-pin rising and falling
// callbacks by comparing each watched pin with its last seen level.
// Two transitions between passes cancel out and are not reported.
type EdgeSynth struct {
	mcu   *MCU
	state [OnChangePinLimit]EdgeState
}

// State returns the stored level of pin.
func (e *EdgeSynth) State(pin OnChangePin) EdgeState {
	if pin >= OnChangePinLimit {
		return Lowered
	}
	return e.state[pin]
}

func (e *EdgeSynth) reset(pin OnChangePin) {
	e.state[pin] = Lowered
}

// service runs once per dispatch pass after the shared flag was cleared.
func (e *EdgeSynth) service() {
	reg := &e.mcu.registry
	for pin := OnChangePin(0); pin < OnChangePinLimit; pin++ {
		rise, fall := reg.Handler(pin.Rising()), reg.Handler(pin.Falling())
		if rise == nil && fall == nil {
			continue
		}
		level, err := e.mcu.pins.Read(pin.Pin())
		if err != nil {
			continue
		}
		switch {
		case level == gpio.High && e.state[pin] == Lowered:
			e.fire(pin.Rising(), rise, TraceEdgeRise)
			e.state[pin] = Raised
		case level == gpio.Low && e.state[pin] == Raised:
			e.fire(pin.Falling(), fall, TraceEdgeFall)
			e.state[pin] = Lowered
		}
	}
}

func (e *EdgeSynth) fire(s Source, h Handler, kind TraceKind) {
	if h == nil {
		e.mcu.dispatch.drop(PeriphOnChange)
		return
	}
	e.mcu.trace.record(kind, uint8(s), 0)
	h()
}

func validEdge(e gpio.Edge) bool {
	return e == gpio.RisingEdge || e == gpio.FallingEdge
}
