// Package monitor decodes the dispatch trace stream a device writes to its
// UART and forwards the events.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"picmcal/core"
	"picmcal/protocol"
)

// Event is a decoded trace record with its names resolved.
type Event struct {
	Seq    uint32 `json:"seq"`
	Kind   string `json:"kind"`
	Source string `json:"source"`
	Value  uint32 `json:"value"`
}

func (e Event) String() string {
	return fmt.Sprintf("#%d %s %s v=%d", e.Seq, e.Kind, e.Source, e.Value)
}

// EventFromRecord resolves the kind and source names of rec.
func EventFromRecord(rec protocol.TraceRecord) Event {
	evt := core.TraceEvent{
		Kind:   core.TraceKind(rec.Kind),
		Source: rec.Source,
		Seq:    rec.Seq,
		Value:  rec.Value,
	}
	return Event{
		Seq:    rec.Seq,
		Kind:   evt.Kind.String(),
		Source: evt.SourceName(),
		Value:  rec.Value,
	}
}

const (
	readChunk   = protocol.MessageMax
	bufferBytes = 4 * protocol.MessageMax
)

// Reader decodes trace frames from a byte stream.
type Reader struct {
	r   io.Reader
	buf *protocol.FifoBuffer
	dec protocol.Decoder

	// Follow keeps reading after io.EOF, as needed for serial ports whose
	// read timeout surfaces as an empty read.
	Follow bool

	// PollInterval is the pause after an empty read in follow mode.
	PollInterval time.Duration

	badPayloads uint32
	overflow    uint32
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:            r,
		buf:          protocol.NewFifoBuffer(bufferBytes),
		PollInterval: 10 * time.Millisecond,
	}
}

// Stats reports decoder counters.
type Stats struct {
	Frames      uint32
	Errors      uint32
	Skipped     uint32
	BadPayloads uint32
	Overflow    uint32 // bytes dropped because the decoder could not make room
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() Stats {
	return Stats{
		Frames:      r.dec.Frames,
		Errors:      r.dec.Errors,
		Skipped:     r.dec.Skipped,
		BadPayloads: r.badPayloads,
		Overflow:    r.overflow,
	}
}

// feed queues data and decodes as it goes, so a chunk larger than the free
// space is consumed in parts. Bytes are dropped and counted only when the
// decoder leaves the queue full.
func (r *Reader) feed(data []byte, deliver func(protocol.Frame)) {
	for len(data) > 0 {
		w := r.buf.Write(data)
		data = data[w:]
		r.dec.Receive(r.buf, deliver)
		if w == 0 && r.buf.Free() == 0 {
			r.overflow += uint32(r.buf.Available() + len(data))
			r.buf.Reset()
			return
		}
	}
}

// Run decodes frames until the stream ends, ctx is done or fn fails. It
// returns nil at end of stream.
func (r *Reader) Run(ctx context.Context, fn func(Event) error) error {
	chunk := make([]byte, readChunk)
	var fnErr error
	deliver := func(f protocol.Frame) {
		if fnErr != nil {
			return
		}
		payload := f.Payload
		for len(payload) > 0 {
			rec, err := protocol.DecodeTrace(&payload)
			if err != nil {
				r.badPayloads++
				return
			}
			if fnErr = fn(EventFromRecord(rec)); fnErr != nil {
				return
			}
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.r.Read(chunk)
		r.feed(chunk[:n], deliver)
		if fnErr != nil {
			return fnErr
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF) && r.Follow:
			if n == 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(r.PollInterval):
				}
			}
		case errors.Is(err, io.EOF):
			return nil
		default:
			return fmt.Errorf("read trace stream: %w", err)
		}
	}
}
