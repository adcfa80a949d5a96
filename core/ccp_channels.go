package core

// CCPID identifies a capture/compare/PWM module.
type CCPID uint8

const (
	CCP1 CCPID = iota
	CCP2
	CCPLimit
)

func (id CCPID) String() string {
	if id < CCPLimit {
		return "ccp" + itoa(int(id)+1)
	}
	return "ccp(" + itoa(int(id)) + ")"
}

// Peripheral returns the interrupt flag of the module.
func (id CCPID) Peripheral() Peripheral {
	return PeriphCCP1 + Peripheral(id)
}

// Source returns the handler slot of the module.
func (id CCPID) Source() Source {
	return SourceCCP1 + Source(id)
}

// Pin returns the capture input / compare and PWM output pin.
func (id CCPID) Pin() Pin {
	if id == CCP2 {
		return PinCCP2
	}
	return PinCCP1
}

// CCPMode selects what the module does with its timer.
type CCPMode uint8

const (
	CCPCapture CCPMode = iota // latch the timer on an input edge
	CCPCompare                // act when the timer matches the register
	CCPPWM                    // drive a PWM output clocked by Timer2
	CCPModeLimit
)

func (m CCPMode) String() string {
	switch m {
	case CCPCapture:
		return "capture"
	case CCPCompare:
		return "compare"
	case CCPPWM:
		return "pwm"
	}
	return "ccp_mode(" + itoa(int(m)) + ")"
}

// CaptureEdge selects the input events that latch a capture.
type CaptureEdge uint8

const (
	CaptureFalling CaptureEdge = iota
	CaptureRising
	CaptureRising4  // every 4th rising edge
	CaptureRising16 // every 16th rising edge
	CaptureEdgeLimit
)

// Every returns the number of qualifying edges per capture.
func (e CaptureEdge) Every() uint32 {
	switch e {
	case CaptureRising4:
		return 4
	case CaptureRising16:
		return 16
	}
	return 1
}

// CompareAction selects what a compare match does besides raising the flag.
type CompareAction uint8

const (
	CompareToggle       CompareAction = iota // toggle the output pin
	CompareSetHigh                           // drive the output pin high
	CompareSetLow                            // drive the output pin low
	CompareInterrupt                         // flag only, pin untouched
	CompareSpecialEvent                      // reset the timer
	CompareActionLimit
)

// CCPTimerSource selects the 16-bit timer behind capture and compare. The
// selection is shared by both modules.
type CCPTimerSource uint8

const (
	CCPTimer1     CCPTimerSource = iota // Timer1 for both modules
	CCPTimer1And3                       // Timer1 for CCP1, Timer3 for CCP2
	CCPTimer3                           // Timer3 for both modules
	CCPTimerSourceLimit
)

// Timer returns the timer the selection routes to module id.
func (s CCPTimerSource) Timer(id CCPID) TimerID {
	switch {
	case s == CCPTimer3, s == CCPTimer1And3 && id == CCP2:
		return Timer3
	}
	return Timer1
}

// Mode field encodings of the control register. Compare actions after
// toggle occupy 0x8..0xB in CompareAction order.
const (
	CCPModeOff       = 0x0
	CCPModeToggle    = 0x2
	CCPModeCapture   = 0x4 // + CaptureEdge
	CCPModeCompare   = 0x8 // + CompareAction - CompareSetHigh
	CCPModePWM       = 0xC
	CCPModeFieldMask = 0xF
)

// modeCode returns the mode field for cfg.
func (c *CCPConfig) modeCode() uint8 {
	switch c.Mode {
	case CCPCapture:
		return CCPModeCapture + uint8(c.Capture)
	case CCPCompare:
		if c.Compare == CompareToggle {
			return CCPModeToggle
		}
		return CCPModeCompare + uint8(c.Compare-CompareSetHigh)
	}
	return CCPModePWM
}

func (c *CCPConfig) validate(op string) error {
	if c.Mode >= CCPModeLimit {
		return rangeError(op, "mode", int(c.Mode))
	}
	if c.Mode == CCPCapture && c.Capture >= CaptureEdgeLimit {
		return rangeError(op, "capture", int(c.Capture))
	}
	if c.Mode == CCPCompare && c.Compare >= CompareActionLimit {
		return rangeError(op, "compare", int(c.Compare))
	}
	if c.Mode != CCPPWM && c.TimerSource >= CCPTimerSourceLimit {
		return rangeError(op, "timer_source", int(c.TimerSource))
	}
	if c.Priority >= PriorityLimit {
		return rangeError(op, "priority", int(c.Priority))
	}
	return nil
}
