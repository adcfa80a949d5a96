// Package simrun runs a board description on the simulator: it arms the
// configured timers, pins and CCP modules on a core.MCU, drives the
// stimulus and reports every handler call.
package simrun

import (
	"context"
	"fmt"
	"io"
	"time"

	"picmcal/config"
	"picmcal/core"
	"picmcal/sim"
)

// Event is one handler call.
type Event struct {
	Cycle uint64
	At    time.Duration
	Name  string // handler slot, e.g. timer1, int0, rb5_rising
	Data  []byte // bytes read by the serial receive handler
}

func (e Event) String() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("%12v %s %q", e.At, e.Name, e.Data)
	}
	return fmt.Sprintf("%12v %s", e.At, e.Name)
}

// Session is an armed board.
type Session struct {
	Board *sim.Board
	MCU   *core.MCU

	// OnEvent, if set, is called for every handler call.
	OnEvent func(Event)

	// TraceOut, if set, receives the trace frames the device streams to
	// its UART.
	TraceOut io.Writer

	cfg    *config.BoardConfig
	events []Event
	sink   *core.TraceSink
}

// New builds the board and arms everything cfg describes.
func New(cfg *config.BoardConfig) (*Session, error) {
	f, err := cfg.Features()
	if err != nil {
		return nil, err
	}
	b := sim.NewBoard(f.Clock)
	m, err := core.New(b, f)
	if err != nil {
		return nil, err
	}
	b.Attach(m)

	s := &Session{Board: b, MCU: m, cfg: cfg}
	if err := s.arm(); err != nil {
		return nil, err
	}
	m.EnableInterrupts()
	return s, nil
}

// Events returns the handler calls so far.
func (s *Session) Events() []Event {
	return s.events
}

func (s *Session) handler(name string) core.Handler {
	return func() { s.emit(Event{Name: name}) }
}

func (s *Session) emit(evt Event) {
	evt.Cycle = s.Board.Cycle()
	evt.At = s.Board.Elapsed()
	s.events = append(s.events, evt)
	if s.OnEvent != nil {
		s.OnEvent(evt)
	}
}

func (s *Session) arm() error {
	for i, tc := range s.cfg.Timers {
		id, cfg, err := tc.Core()
		if err != nil {
			return fmt.Errorf("timers[%d]: %w", i, err)
		}
		if !tc.Polled {
			cfg.Handler = s.handler(id.String())
		}
		t := s.MCU.Timer(id)
		if err := t.Init(&cfg); err != nil {
			return fmt.Errorf("timers[%d]: %w", i, err)
		}
		if cfg.Mode == core.ModeCounter {
			err = t.StartCounter()
		} else {
			err = t.StartTimer(tc.DelayMs)
		}
		if err != nil {
			return fmt.Errorf("timers[%d]: %w", i, err)
		}
	}

	for i, cc := range s.cfg.CCP {
		if err := s.armCCP(cc); err != nil {
			return fmt.Errorf("ccp[%d]: %w", i, err)
		}
	}

	for i, ec := range s.cfg.External {
		cfg, err := ec.Core()
		if err != nil {
			return fmt.Errorf("external[%d]: %w", i, err)
		}
		cfg.Handler = s.handler(cfg.Line.Peripheral().String())
		if err := s.MCU.InitExternal(&cfg); err != nil {
			return fmt.Errorf("external[%d]: %w", i, err)
		}
	}

	for i, oc := range s.cfg.OnChange {
		cfg, err := oc.Core()
		if err != nil {
			return fmt.Errorf("on_change[%d]: %w", i, err)
		}
		cfg.Rising = s.handler(cfg.Pin.Rising().String())
		cfg.Falling = s.handler(cfg.Pin.Falling().String())
		if err := s.MCU.InitOnChange(&cfg); err != nil {
			return fmt.Errorf("on_change[%d]: %w", i, err)
		}
	}

	prio, err := config.ParsePriority(s.cfg.Serial.Priority)
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if s.cfg.Serial.Rx {
		err := s.MCU.InitPeripheral(&core.HandlerConfig{Source: core.SourceSerialRx, Handler: s.receive, Priority: prio})
		if err != nil {
			return fmt.Errorf("serial rx: %w", err)
		}
	}
	if s.cfg.Serial.Tx {
		err := s.MCU.InitPeripheral(&core.HandlerConfig{Source: core.SourceSerialTx, Handler: s.handler("serial_tx"), Priority: prio})
		if err != nil {
			return fmt.Errorf("serial tx: %w", err)
		}
	}
	return nil
}

// armCCP initializes one module. PWM sets up timer2 as its time base and
// starts the output.
func (s *Session) armCCP(cc config.CCPConfig) error {
	id, cfg, err := cc.Core()
	if err != nil {
		return err
	}
	c := s.MCU.CCP(id)
	if cfg.Mode != core.CCPPWM {
		if !cc.Polled {
			cfg.Handler = s.handler(id.String())
		}
		if err := c.Init(&cfg); err != nil {
			return err
		}
		if cfg.Mode == core.CCPCompare {
			return c.WriteCompare(cc.Compare)
		}
		return nil
	}

	pre, err := config.ParsePrescaler(cc.Prescaler)
	if err != nil {
		return err
	}
	t2 := s.MCU.Timer(core.Timer2)
	if err := t2.Init(&core.TimerConfig{Mode: core.ModeTimer, Prescaler: pre}); err != nil {
		return err
	}
	if err := c.Init(&cfg); err != nil {
		return err
	}
	if err := c.SetFrequency(cc.FrequencyHz); err != nil {
		return err
	}
	if err := c.SetDutyCycle(cc.DutyPct); err != nil {
		return err
	}
	return c.Start()
}

func (s *Session) receive() {
	u := s.Board.UART()
	data := make([]byte, u.Buffered())
	n, _ := u.Read(data)
	s.emit(Event{Name: core.SourceSerialRx.String(), Data: data[:n]})
}

// Run simulates the configured duration in one millisecond slices,
// applying each stimulus at the start of its slice. poll, if not nil, runs
// after every slice.
func (s *Session) Run(ctx context.Context, poll func() error) error {
	perMs := s.Board.Cycles(time.Millisecond)
	stim := s.cfg.Stimulus
	for ms := uint32(0); ms < s.cfg.DurationMs; ms++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for len(stim) > 0 && stim[0].AtMs <= ms {
			if err := s.apply(stim[0]); err != nil {
				return fmt.Errorf("stimulus at %d ms: %w", stim[0].AtMs, err)
			}
			stim = stim[1:]
		}
		s.Board.Step(perMs)
		if err := s.flushTrace(); err != nil {
			return err
		}
		if poll != nil {
			if err := poll(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) apply(st config.Stimulus) error {
	if st.Serial != "" {
		s.Board.UART().Receive([]byte(st.Serial))
		return nil
	}
	pin, err := config.ParsePin(st.Pin)
	if err != nil {
		return err
	}
	if st.Pulses > 0 {
		for i := 0; i < st.Pulses; i++ {
			if err := s.Board.Pulse(pin); err != nil {
				return err
			}
		}
		return nil
	}
	level, err := config.ParseLevel(st.Level)
	if err != nil {
		return err
	}
	return s.Board.SetPin(pin, level)
}

func (s *Session) flushTrace() error {
	if s.TraceOut == nil {
		return nil
	}
	if s.sink == nil {
		s.sink = core.NewTraceSink(s.Board.UART())
	}
	if _, err := s.MCU.Trace().Drain(s.sink); err != nil {
		return fmt.Errorf("drain trace: %w", err)
	}
	if _, err := s.TraceOut.Write(s.Board.UART().Transmitted()); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}
