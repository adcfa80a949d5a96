//go:build linux

package linuxgpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// ChipReader reads input lines through the Linux GPIO character device.
type ChipReader struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// NewChipReader requests lines on chip (e.g. "gpiochip0") as inputs with
// pull-ups, so an open switch reads high.
func NewChipReader(chip string, lines []int) (*ChipReader, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &ChipReader{chip: c}
	for _, offset := range lines {
		l, err := c.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request line %d: %w", offset, err)
		}
		r.lines = append(r.lines, l)
	}
	return r, nil
}

// Read returns the raw value of every requested line.
func (r *ChipReader) Read() ([]int, error) {
	values := make([]int, len(r.lines))
	for i, l := range r.lines {
		v, err := l.Value()
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", l.Offset(), err)
		}
		values[i] = v
	}
	return values, nil
}

// Close returns the lines to plain inputs and releases them.
func (r *ChipReader) Close() error {
	var errs []error
	for _, l := range r.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", l.Offset(), err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
