package linuxgpio

import "errors"

// FakeReader returns scripted line values.
type FakeReader struct {
	// Samples holds one set of line values per Read. The last sample repeats.
	Samples [][]int

	// ReadError, if set, is returned by Read.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() ([]int, error) {
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if len(f.Samples) == 0 {
		return nil, errors.New("no samples configured")
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
