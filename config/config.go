// Package config loads the JSON description of a simulated board: clock,
// interrupt features, the timers, pins and CCP modules to arm and the
// stimulus to drive the inputs with.
package config

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"os"
	"sort"

	"picmcal/core"

	"periph.io/x/conn/v3/gpio"
)

// BoardConfig is the top-level board description.
type BoardConfig struct {
	ClockHz     uint32   `json:"clock_hz"`
	Priority    bool     `json:"priority"`
	Trace       *bool    `json:"trace,omitempty"`
	Peripherals []string `json:"peripherals,omitempty"` // empty = all

	Timers   []TimerConfig    `json:"timers,omitempty"`
	External []ExternalConfig `json:"external,omitempty"`
	OnChange []OnChangeConfig `json:"on_change,omitempty"`
	CCP      []CCPConfig      `json:"ccp,omitempty"`
	Serial   SerialConfig     `json:"serial"`

	Stimulus   []Stimulus `json:"stimulus,omitempty"`
	DurationMs uint32     `json:"duration_ms"`
}

// TimerConfig arms one timer channel.
type TimerConfig struct {
	Timer      string `json:"timer"`      // timer0..timer3
	Mode       string `json:"mode"`       // timer, counter, compare
	Resolution int    `json:"resolution"` // 0 (native), 8, 16
	Prescaler  uint32 `json:"prescaler"`  // multiplier 1..256
	Postscaler uint32 `json:"postscaler"` // multiplier 1..16, timer2 only
	Edge       string `json:"edge"`       // counter mode: rising, falling
	DelayMs    uint32 `json:"delay_ms"`   // timer and compare modes
	Priority   string `json:"priority"`
	Polled     bool   `json:"polled"` // no handler, interrupt left off
}

// ExternalConfig arms one of INT0..INT2.
type ExternalConfig struct {
	Line     string `json:"line"`    // int0..int2
	Trigger  string `json:"trigger"` // rising, falling
	Priority string `json:"priority"`
}

// OnChangeConfig watches one of RB4..RB7.
type OnChangeConfig struct {
	Pin      string `json:"pin"` // rb4..rb7
	Priority string `json:"priority"`
}

// CCPConfig arms one capture/compare/PWM module.
type CCPConfig struct {
	CCP         string `json:"ccp"`          // ccp1, ccp2
	Mode        string `json:"mode"`         // capture, compare, pwm
	Edge        string `json:"edge"`         // capture: rising, falling, rising4, rising16
	Action      string `json:"action"`       // compare: toggle, high, low, interrupt, special
	Timers      string `json:"timers"`       // capture and compare: timer1, timer1_3, timer3
	Compare     uint16 `json:"compare"`      // compare register
	Prescaler   uint32 `json:"prescaler"`    // pwm: timer2 multiplier 1, 4, 16
	FrequencyHz uint32 `json:"frequency_hz"` // pwm
	DutyPct     uint8  `json:"duty_pct"`     // pwm
	Priority    string `json:"priority"`
	Polled      bool   `json:"polled"`
}

// SerialConfig arms the EUSART handlers.
type SerialConfig struct {
	Rx       bool   `json:"rx"`
	Tx       bool   `json:"tx"`
	Priority string `json:"priority"`
}

// Stimulus drives an input at a point in simulated time.
type Stimulus struct {
	AtMs   uint32 `json:"at_ms"`
	Pin    string `json:"pin,omitempty"`    // pin name, see ParsePin
	Level  string `json:"level,omitempty"`  // high, low
	Pulses int    `json:"pulses,omitempty"` // rising+falling pairs instead of a level
	Serial string `json:"serial,omitempty"` // bytes received on the EUSART
}

// Load reads and parses a board file.
func Load(path string) (*BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses a JSON board description and applies defaults.
func Parse(jsonData []byte) (*BoardConfig, error) {
	var config BoardConfig
	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing values.
func applyDefaults(config *BoardConfig) {
	if config.ClockHz == 0 {
		config.ClockHz = core.DefaultClock.Hz
	}
	if config.Trace == nil {
		on := true
		config.Trace = &on
	}
	if config.DurationMs == 0 {
		config.DurationMs = 1000
	}
	for i := range config.Timers {
		t := &config.Timers[i]
		if t.Mode == "" {
			t.Mode = "timer"
		}
		if t.Prescaler == 0 {
			t.Prescaler = 1
		}
		if t.Postscaler == 0 {
			t.Postscaler = 1
		}
		if t.Mode == "counter" && t.Edge == "" {
			t.Edge = "rising"
		}
	}
	for i := range config.CCP {
		c := &config.CCP[i]
		if c.Mode == "capture" && c.Edge == "" {
			c.Edge = "rising"
		}
		if c.Mode == "compare" && c.Action == "" {
			c.Action = "interrupt"
		}
		if c.Timers == "" {
			c.Timers = "timer1"
		}
		if c.Prescaler == 0 {
			c.Prescaler = 1
		}
	}
	for i := range config.External {
		if config.External[i].Trigger == "" {
			config.External[i].Trigger = "falling"
		}
	}
	// Stimulus is applied in time order.
	sort.SliceStable(config.Stimulus, func(i, j int) bool {
		return config.Stimulus[i].AtMs < config.Stimulus[j].AtMs
	})
}

// Validate checks every name and enum value. Hardware support for the
// combination is checked later by the core.
func (c *BoardConfig) Validate() error {
	if _, err := c.Features(); err != nil {
		return err
	}
	for i, t := range c.Timers {
		if _, _, err := t.Core(); err != nil {
			return fmt.Errorf("timers[%d]: %w", i, err)
		}
		if t.Mode != "counter" && t.DelayMs == 0 {
			return fmt.Errorf("timers[%d]: delay_ms is required in %s mode", i, t.Mode)
		}
	}
	for i, e := range c.External {
		if _, err := e.Core(); err != nil {
			return fmt.Errorf("external[%d]: %w", i, err)
		}
	}
	for i, o := range c.OnChange {
		if _, err := o.Core(); err != nil {
			return fmt.Errorf("on_change[%d]: %w", i, err)
		}
	}
	if err := c.validateCCP(); err != nil {
		return err
	}
	if _, err := ParsePriority(c.Serial.Priority); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	for i, s := range c.Stimulus {
		if err := s.validate(); err != nil {
			return fmt.Errorf("stimulus[%d]: %w", i, err)
		}
	}
	return nil
}

// Features converts the board-wide settings.
func (c *BoardConfig) Features() (core.Features, error) {
	f := core.Features{
		Clock:       core.Clock{Hz: c.ClockHz},
		Priority:    c.Priority,
		Peripherals: core.AllPeripherals,
		Trace:       c.Trace == nil || *c.Trace,
	}
	if len(c.Peripherals) > 0 {
		f.Peripherals = 0
		for _, name := range c.Peripherals {
			p, err := ParsePeripheral(name)
			if err != nil {
				return f, err
			}
			f.Peripherals = f.Peripherals.With(p)
		}
	}
	if f.Clock.Hz > core.MaxClockHz {
		return f, fmt.Errorf("clock_hz %d above %d", c.ClockHz, core.MaxClockHz)
	}
	return f, nil
}

// Core converts the timer entry. The returned config carries no handler.
func (t TimerConfig) Core() (core.TimerID, core.TimerConfig, error) {
	var cfg core.TimerConfig
	id, err := ParseTimer(t.Timer)
	if err != nil {
		return id, cfg, err
	}
	switch t.Mode {
	case "timer":
		cfg.Mode = core.ModeTimer
	case "counter":
		cfg.Mode = core.ModeCounter
	case "compare":
		cfg.Mode = core.ModeCompareMatch
	default:
		return id, cfg, fmt.Errorf("unknown mode %q", t.Mode)
	}
	switch t.Resolution {
	case 0:
		cfg.Resolution = core.ResolutionNative
	case 8:
		cfg.Resolution = core.Resolution8Bit
	case 16:
		cfg.Resolution = core.Resolution16Bit
	default:
		return id, cfg, fmt.Errorf("unsupported resolution %d", t.Resolution)
	}
	if cfg.Prescaler, err = ParsePrescaler(t.Prescaler); err != nil {
		return id, cfg, err
	}
	if t.Postscaler < 1 || t.Postscaler > 16 {
		return id, cfg, fmt.Errorf("postscaler %d out of range 1..16", t.Postscaler)
	}
	cfg.Postscaler = core.Postscaler(t.Postscaler - 1)
	if cfg.Mode == core.ModeCounter {
		if cfg.SourceEdge, err = ParseEdge(t.Edge); err != nil {
			return id, cfg, err
		}
	}
	if cfg.Priority, err = ParsePriority(t.Priority); err != nil {
		return id, cfg, err
	}
	return id, cfg, nil
}

// Core converts the external interrupt entry. The returned config carries
// no handler.
func (e ExternalConfig) Core() (core.ExternalConfig, error) {
	var cfg core.ExternalConfig
	p, err := ParsePeripheral(e.Line)
	if err != nil {
		return cfg, err
	}
	if p < core.PeriphINT0 || p > core.PeriphINT2 {
		return cfg, fmt.Errorf("%q is not an external interrupt line", e.Line)
	}
	cfg.Line = core.INT0 + core.ExternalLine(p-core.PeriphINT0)
	if cfg.Trigger, err = ParseEdge(e.Trigger); err != nil {
		return cfg, err
	}
	cfg.Priority, err = ParsePriority(e.Priority)
	return cfg, err
}

// Core converts the on-change entry. The returned config carries no
// handlers.
func (o OnChangeConfig) Core() (core.OnChangeConfig, error) {
	var cfg core.OnChangeConfig
	for pin := core.OnChangePin(0); pin < core.OnChangePinLimit; pin++ {
		if pin.String() == o.Pin {
			cfg.Pin = pin
			var err error
			cfg.Priority, err = ParsePriority(o.Priority)
			return cfg, err
		}
	}
	return cfg, fmt.Errorf("unknown on-change pin %q", o.Pin)
}

// validateCCP checks the module entries against each other: the timer
// selection is shared by both modules and PWM owns timer2.
func (c *BoardConfig) validateCCP() error {
	timers := ""
	seen := map[core.CCPID]bool{}
	pwm := false
	for i, cc := range c.CCP {
		id, cfg, err := cc.Core()
		if err != nil {
			return fmt.Errorf("ccp[%d]: %w", i, err)
		}
		if seen[id] {
			return fmt.Errorf("ccp[%d]: %s configured twice", i, id)
		}
		seen[id] = true
		if cfg.Mode == core.CCPPWM {
			if cc.FrequencyHz == 0 {
				return fmt.Errorf("ccp[%d]: frequency_hz is required in pwm mode", i)
			}
			if cc.DutyPct > 100 {
				return fmt.Errorf("ccp[%d]: duty_pct %d above 100", i, cc.DutyPct)
			}
			pwm = true
			continue
		}
		if timers != "" && timers != cc.Timers {
			return fmt.Errorf("ccp[%d]: timers %q conflicts with %q", i, cc.Timers, timers)
		}
		timers = cc.Timers
	}
	if pwm {
		for i, t := range c.Timers {
			if t.Timer == core.Timer2.String() {
				return fmt.Errorf("timers[%d]: timer2 is the pwm time base", i)
			}
		}
	}
	return nil
}

// Core converts the module entry. The returned config carries no handler.
func (c CCPConfig) Core() (core.CCPID, core.CCPConfig, error) {
	var cfg core.CCPConfig
	id, err := ParseCCP(c.CCP)
	if err != nil {
		return id, cfg, err
	}
	switch c.Mode {
	case "capture":
		cfg.Mode = core.CCPCapture
		switch c.Edge {
		case "falling":
			cfg.Capture = core.CaptureFalling
		case "rising":
			cfg.Capture = core.CaptureRising
		case "rising4":
			cfg.Capture = core.CaptureRising4
		case "rising16":
			cfg.Capture = core.CaptureRising16
		default:
			return id, cfg, fmt.Errorf("unknown capture edge %q", c.Edge)
		}
	case "compare":
		cfg.Mode = core.CCPCompare
		switch c.Action {
		case "toggle":
			cfg.Compare = core.CompareToggle
		case "high":
			cfg.Compare = core.CompareSetHigh
		case "low":
			cfg.Compare = core.CompareSetLow
		case "interrupt":
			cfg.Compare = core.CompareInterrupt
		case "special":
			cfg.Compare = core.CompareSpecialEvent
		default:
			return id, cfg, fmt.Errorf("unknown compare action %q", c.Action)
		}
	case "pwm":
		cfg.Mode = core.CCPPWM
	default:
		return id, cfg, fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch c.Timers {
	case "timer1":
		cfg.TimerSource = core.CCPTimer1
	case "timer1_3":
		cfg.TimerSource = core.CCPTimer1And3
	case "timer3":
		cfg.TimerSource = core.CCPTimer3
	default:
		return id, cfg, fmt.Errorf("unknown timer selection %q", c.Timers)
	}
	if cfg.Mode == core.CCPPWM {
		switch c.Prescaler {
		case 1, 4, 16:
		default:
			return id, cfg, fmt.Errorf("pwm prescaler %d is not 1, 4 or 16", c.Prescaler)
		}
	}
	cfg.Priority, err = ParsePriority(c.Priority)
	return id, cfg, err
}

func (s Stimulus) validate() error {
	if s.Serial != "" {
		if s.Pin != "" {
			return fmt.Errorf("pin and serial are exclusive")
		}
		return nil
	}
	if _, err := ParsePin(s.Pin); err != nil {
		return err
	}
	if s.Pulses < 0 {
		return fmt.Errorf("negative pulse count %d", s.Pulses)
	}
	if s.Pulses == 0 {
		if _, err := ParseLevel(s.Level); err != nil {
			return err
		}
	}
	return nil
}

// ParseTimer maps timer0..timer3 to a channel.
func ParseTimer(name string) (core.TimerID, error) {
	for id := core.TimerID(0); id < core.TimerLimit; id++ {
		if id.String() == name {
			return id, nil
		}
	}
	return core.TimerLimit, fmt.Errorf("unknown timer %q", name)
}

// ParseCCP maps ccp1 and ccp2 to a module.
func ParseCCP(name string) (core.CCPID, error) {
	for id := core.CCPID(0); id < core.CCPLimit; id++ {
		if id.String() == name {
			return id, nil
		}
	}
	return core.CCPLimit, fmt.Errorf("unknown ccp module %q", name)
}

// ParsePeripheral maps a peripheral name such as serial_rx or int1.
func ParsePeripheral(name string) (core.Peripheral, error) {
	for p := core.Peripheral(0); p < core.PeripheralLimit; p++ {
		if p.String() == name {
			return p, nil
		}
	}
	return core.PeripheralLimit, fmt.Errorf("unknown peripheral %q", name)
}

// ParsePrescaler maps a power-of-two multiplier to its prescaler value.
func ParsePrescaler(mult uint32) (core.Prescaler, error) {
	if mult == 0 || mult&(mult-1) != 0 || mult > 256 {
		return core.PrescalerLimit, fmt.Errorf("prescaler %d is not a power of two up to 256", mult)
	}
	return core.Prescaler(bits.TrailingZeros32(mult)), nil
}

// ParsePriority maps "", low and high. An empty string is low.
func ParsePriority(name string) (core.Priority, error) {
	switch name {
	case "", "low":
		return core.PriorityLow, nil
	case "high":
		return core.PriorityHigh, nil
	}
	return core.PriorityLimit, fmt.Errorf("unknown priority %q", name)
}

// ParseEdge maps rising and falling.
func ParseEdge(name string) (gpio.Edge, error) {
	switch name {
	case "rising":
		return gpio.RisingEdge, nil
	case "falling":
		return gpio.FallingEdge, nil
	}
	return gpio.NoEdge, fmt.Errorf("unknown edge %q", name)
}

// ParseLevel maps high and low.
func ParseLevel(name string) (gpio.Level, error) {
	switch name {
	case "high", "1":
		return gpio.High, nil
	case "low", "0":
		return gpio.Low, nil
	}
	return gpio.Low, fmt.Errorf("unknown level %q", name)
}

var namedPins = map[string]core.Pin{
	"t0cki":  core.PinT0CKI,
	"t13cki": core.PinT13CKI,
	"ccp1":   core.PinCCP1,
	"ccp2":   core.PinCCP2,
	"int0":   core.PinINT0,
	"int1":   core.PinINT1,
	"int2":   core.PinINT2,
	"rb4":    core.PinRB4,
	"rb5":    core.PinRB5,
	"rb6":    core.PinRB6,
	"rb7":    core.PinRB7,
}

// ParsePin accepts a function name (t0cki, int1, rb4) or a port bit such as
// ra4 or rc0.
func ParsePin(name string) (core.Pin, error) {
	if pin, ok := namedPins[name]; ok {
		return pin, nil
	}
	if len(name) == 3 && name[0] == 'r' && name[1] >= 'a' && name[1] <= 'e' && name[2] >= '0' && name[2] <= '7' {
		return core.Pin{Port: core.Port(name[1] - 'a'), Bit: name[2] - '0'}, nil
	}
	return core.Pin{Port: core.PortLimit}, fmt.Errorf("unknown pin %q", name)
}
