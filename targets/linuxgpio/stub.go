//go:build !linux

package linuxgpio

import "errors"

// ChipReader is not available on non-Linux platforms.
type ChipReader struct{}

// NewChipReader returns an error on non-Linux platforms.
func NewChipReader(chip string, lines []int) (*ChipReader, error) {
	return nil, errors.New("linuxgpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *ChipReader) Read() ([]int, error) {
	return nil, errors.New("linuxgpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *ChipReader) Close() error {
	return nil
}
