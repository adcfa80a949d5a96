// Package serial opens the host side of the device's EUSART, over which the
// dispatch trace is streamed.
package serial

import (
	"io"
)

// Port is a serial port as the monitor uses it.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the device EUSART
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultBaud is the EUSART rate of the reference board: 16 MHz, BRGH=1,
// BRG16=1, SPBRG=34.
const DefaultBaud = 115200

// DefaultConfig returns the trace port configuration for device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}
