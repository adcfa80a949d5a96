// Package linuxgpio feeds real input lines of a Linux host into the pins of
// a simulated board, so the edge synthesizer and external interrupts can be
// driven by switches wired to a Raspberry Pi header.
package linuxgpio

import (
	"fmt"
	"strconv"
	"strings"

	"picmcal/config"
	"picmcal/core"

	"periph.io/x/conn/v3/gpio"
)

// LineReader samples a fixed set of input lines.
type LineReader interface {
	// Read returns the raw value (0 or 1) of every line, in request order.
	Read() ([]int, error)

	// Close releases the lines.
	Close() error
}

// PinSetter drives a board input from outside the device.
type PinSetter interface {
	SetPin(pin core.Pin, level gpio.Level) error
}

// Mapping routes one host line to one board pin.
type Mapping struct {
	Line      int // host line offset (BCM numbering on a Pi)
	Pin       core.Pin
	ActiveLow bool
}

// Bridge copies line levels onto board pins. Only changes are forwarded.
type Bridge struct {
	reader   LineReader
	target   PinSetter
	mappings []Mapping
	last     []gpio.Level
	primed   bool
}

// NewBridge returns a bridge forwarding the lines of reader, which must
// have been requested in mappings order.
func NewBridge(reader LineReader, target PinSetter, mappings []Mapping) *Bridge {
	return &Bridge{
		reader:   reader,
		target:   target,
		mappings: mappings,
		last:     make([]gpio.Level, len(mappings)),
	}
}

// Lines returns the host line offsets of mappings, for requesting them.
func Lines(mappings []Mapping) []int {
	lines := make([]int, len(mappings))
	for i, m := range mappings {
		lines[i] = m.Line
	}
	return lines
}

// Poll samples every line once and forwards the levels that changed since
// the previous poll. The first poll forwards every level. It returns the
// number of pins driven.
func (b *Bridge) Poll() (int, error) {
	values, err := b.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read lines: %w", err)
	}
	if len(values) != len(b.mappings) {
		return 0, fmt.Errorf("read %d lines, want %d", len(values), len(b.mappings))
	}

	driven := 0
	for i, m := range b.mappings {
		level := gpio.Level(values[i] != 0)
		if m.ActiveLow {
			level = !level
		}
		if b.primed && level == b.last[i] {
			continue
		}
		if err := b.target.SetPin(m.Pin, level); err != nil {
			return driven, fmt.Errorf("line %d -> %v: %w", m.Line, m.Pin, err)
		}
		b.last[i] = level
		driven++
	}
	b.primed = true
	return driven, nil
}

// Close releases the host lines.
func (b *Bridge) Close() error {
	return b.reader.Close()
}

// ParseMappings parses a comma separated list of line:pin[:low] entries,
// for example "17:rb4:low,27:int0".
func ParseMappings(spec string) ([]Mapping, error) {
	var out []Mapping
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("mapping %q: want line:pin[:low]", entry)
		}
		line, err := strconv.Atoi(parts[0])
		if err != nil || line < 0 {
			return nil, fmt.Errorf("mapping %q: bad line offset", entry)
		}
		pin, err := config.ParsePin(parts[1])
		if err != nil {
			return nil, fmt.Errorf("mapping %q: %w", entry, err)
		}
		m := Mapping{Line: line, Pin: pin}
		if len(parts) == 3 {
			if parts[2] != "low" {
				return nil, fmt.Errorf("mapping %q: unknown flag %q", entry, parts[2])
			}
			m.ActiveLow = true
		}
		out = append(out, m)
	}
	return out, nil
}
