package core

// CCPConfig is the configuration of one capture/compare/PWM module.
type CCPConfig struct {
	Mode        CCPMode
	Capture     CaptureEdge    // CCPCapture only
	Compare     CompareAction  // CCPCompare only
	TimerSource CCPTimerSource // capture and compare; shared by both modules
	Handler     Handler        // optional; capture and compare events
	Priority    Priority
}

// CCP drives one capture/compare/PWM module. Capture and compare run off
// Timer1 or Timer3, PWM off Timer2's period register.
type CCP struct {
	mcu *MCU
	id  CCPID
	hw  CCPHardware

	cfg        CCPConfig
	configured bool
	running    bool
}

func (c *CCP) op(name string) string {
	return c.id.String() + "." + name
}

// ID returns the module identifier.
func (c *CCP) ID() CCPID {
	return c.id
}

// Config returns the active configuration.
func (c *CCP) Config() CCPConfig {
	return c.cfg
}

// Timer returns the timer the module runs on.
func (c *CCP) Timer() TimerID {
	if c.cfg.Mode == CCPPWM {
		return Timer2
	}
	return c.cfg.TimerSource.Timer(c.id)
}

// Running reports whether PWM output is on.
func (c *CCP) Running() bool {
	return c.running
}

// Init validates cfg and programs the module: pin direction, timer
// selection, handler and priority. Capture and compare start at once; PWM
// waits for Start. On error no register is touched.
func (c *CCP) Init(cfg *CCPConfig) error {
	op := c.op("init")
	if cfg == nil {
		return c.reject(causeError(op, ErrNilConfig))
	}
	if err := cfg.validate(op); err != nil {
		return c.reject(err)
	}
	p := c.id.Peripheral()
	if cfg.Handler != nil && !c.mcu.features.Has(p) {
		return c.reject(causeError(op, ErrFeatureDisabled))
	}

	dir := Output
	if cfg.Mode == CCPCapture {
		dir = Input
	}
	if err := c.mcu.pins.SetDirection(c.id.Pin(), dir); err != nil {
		return c.reject(causeError(op, err))
	}

	state := disableInterrupts()
	c.stop()
	if cfg.Mode != CCPPWM {
		c.hw.SetTimerSource(uint8(cfg.TimerSource))
	}
	c.cfg = *cfg
	c.configured = true
	c.mcu.registry.bind(c.id.Source(), cfg.Handler, cfg.Priority)
	if cfg.Mode != CCPPWM {
		if cfg.Handler != nil {
			c.mcu.ic.Enable(p)
		}
		c.hw.SetMode(cfg.modeCode())
	}
	restoreInterrupts(state)

	debugLog(op + " mode=" + cfg.Mode.String() + " timer=" + c.Timer().String())
	return nil
}

// DeInit turns the module off, returns its pin to input and clears its
// handler and priority.
func (c *CCP) DeInit() error {
	state := disableInterrupts()
	c.stop()
	c.mcu.registry.unbind(c.id.Source())
	c.cfg = CCPConfig{}
	c.configured = false
	restoreInterrupts(state)
	return c.mcu.pins.SetDirection(c.id.Pin(), Input)
}

// ReadCapture returns the timer value latched by the last capture event.
func (c *CCP) ReadCapture() (uint16, error) {
	if err := c.need(c.op("read_capture"), CCPCapture); err != nil {
		return 0, err
	}
	state := disableInterrupts()
	v := c.hw.ReadRegister()
	restoreInterrupts(state)
	return v, nil
}

// WriteCompare loads the value the timer is matched against.
func (c *CCP) WriteCompare(v uint16) error {
	if err := c.need(c.op("write_compare"), CCPCompare); err != nil {
		return err
	}
	state := disableInterrupts()
	c.hw.WriteRegister(v)
	restoreInterrupts(state)
	return nil
}

// SetFrequency programs Timer2's period register for a PWM frequency of hz,
// using Timer2's configured prescaler. Both modules share the period.
func (c *CCP) SetFrequency(hz uint32) error {
	op := c.op("set_frequency")
	if err := c.need(op, CCPPWM); err != nil {
		return err
	}
	t2 := &c.mcu.timers[Timer2]
	if !t2.configured {
		return c.reject(causeError(op, ErrNotConfigured))
	}
	if hz == 0 {
		return c.reject(rangeError(op, "frequency", 0))
	}
	div := uint64(BaseClockDivisor) * uint64(hz) * uint64(t2.cfg.Prescaler.Factor())
	period := uint64(c.mcu.features.Clock.Hz) / div
	if period == 0 || period > 1<<8 {
		return c.reject(rangeError(op, "frequency", int(hz)))
	}
	t2.hw.WriteCompare(uint8(period - 1))
	debugLog(op + " pr2=" + utoa(uint32(period-1)))
	return nil
}

// SetDutyCycle sets the PWM high time to percent of the current period.
func (c *CCP) SetDutyCycle(percent uint8) error {
	op := c.op("set_duty")
	if err := c.need(op, CCPPWM); err != nil {
		return err
	}
	if percent > 100 {
		return c.reject(rangeError(op, "duty", int(percent)))
	}
	pr2 := uint32(c.mcu.timers[Timer2].hw.ReadCompare())
	duty := 4 * (pr2 + 1) * uint32(percent) / 100
	state := disableInterrupts()
	c.hw.SetDuty(uint16(duty))
	restoreInterrupts(state)
	return nil
}

// Start switches the module to PWM output and starts Timer2.
func (c *CCP) Start() error {
	if err := c.need(c.op("start"), CCPPWM); err != nil {
		return err
	}
	state := disableInterrupts()
	c.hw.SetMode(CCPModePWM)
	c.mcu.timers[Timer2].hw.SetRunning(true)
	c.running = true
	restoreInterrupts(state)
	return nil
}

// Stop turns PWM output off. Timer2 keeps running.
func (c *CCP) Stop() error {
	if err := c.need(c.op("stop"), CCPPWM); err != nil {
		return err
	}
	state := disableInterrupts()
	c.hw.SetMode(CCPModeOff)
	c.running = false
	restoreInterrupts(state)
	return nil
}

// need checks that the module is configured in mode.
func (c *CCP) need(op string, mode CCPMode) error {
	if !c.configured {
		return c.reject(causeError(op, ErrNotConfigured))
	}
	if c.cfg.Mode != mode {
		return c.reject(causeError(op, ErrWrongMode))
	}
	return nil
}

// stop must run with interrupts masked.
func (c *CCP) stop() {
	p := c.id.Peripheral()
	c.hw.SetMode(CCPModeOff)
	c.mcu.ic.Disable(p)
	c.mcu.ic.ClearFlag(p)
	c.running = false
}

func (c *CCP) reject(err error) error {
	debugLog(err.Error())
	return err
}
