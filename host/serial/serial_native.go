//go:build !wasm

package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// tarmPort is a Port backed by github.com/tarm/serial.
type tarmPort struct {
	*serial.Port
	device string
}

// Open opens the trace port with the device EUSART framing: 8 data bits,
// no parity, one stop bit. With a read timeout set, a read that times out
// returns io.EOF on Linux; callers treat that as "no data yet".
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Baud <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", cfg.Baud)
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return &tarmPort{Port: port, device: cfg.Device}, nil
}

// Flush discards data received but not yet read, so a monitor attached
// mid-stream starts at fresh frames.
func (p *tarmPort) Flush() error {
	if err := p.Port.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", p.device, err)
	}
	return nil
}
