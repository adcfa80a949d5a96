package core

import "periph.io/x/conn/v3/gpio"

// TimerHardware is the register primitive set of one timer channel.
// Arguments are the raw field encodings of the channel's control register.
type TimerHardware interface {
	// SetRunning starts or stops the counter.
	SetRunning(on bool)

	// SetClockSource selects the internal instruction clock (false) or the
	// external count pin (true).
	SetClockSource(external bool)

	// SetSourceEdge selects the counted edge of the external clock.
	SetSourceEdge(edge gpio.Edge)

	// SetWidth selects an 8- or 16-bit counter where the channel supports both.
	SetWidth(bits uint8)

	// SetPrescaler programs the prescaler field; code < 0 bypasses the prescaler.
	SetPrescaler(code int)

	// SetPostscaler programs the output postscaler field.
	SetPostscaler(code uint8)

	// WriteCounter loads the counter register. Writing the counter inhibits
	// counting for two instruction cycles.
	WriteCounter(v uint16)

	// ReadCounter returns the counter register.
	ReadCounter() uint16

	// WriteCompare loads the period/compare register.
	WriteCompare(v uint8)

	// ReadCompare returns the period/compare register.
	ReadCompare() uint8
}

// CCPHardware is the register primitive set of one capture/compare/PWM
// module.
type CCPHardware interface {
	// SetMode programs the mode field; 0 turns the module off.
	SetMode(code uint8)

	// SetTimerSource programs the timer selection field shared by both
	// modules.
	SetTimerSource(code uint8)

	// WriteRegister loads the 16-bit compare register.
	WriteRegister(v uint16)

	// ReadRegister returns the 16-bit capture/compare register.
	ReadRegister() uint16

	// SetDuty loads a 10-bit PWM duty value: bits 9:2 into the register
	// low byte, bits 1:0 into the duty field of the control register.
	SetDuty(v uint16)
}

// Hardware bundles the collaborators an MCU context drives.
type Hardware interface {
	Pins() PinDriver
	Interrupts() InterruptController
	Timer(id TimerID) TimerHardware
	CCP(id CCPID) CCPHardware
}
