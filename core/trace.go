package core

import (
	"picmcal/protocol"

	"tinygo.org/x/drivers"
)

// TraceKind classifies a dispatch trace event.
type TraceKind uint8

const (
	TraceEnter    TraceKind = iota + 1 // dispatch entry; Source is the tier
	TraceService                       // handler of a single-slot peripheral ran
	TraceDrop                          // flag serviced without a handler; Source is the peripheral
	TraceFire                          // timer period completed; Value is the fire count
	TraceEdgeRise                      // on-change rising edge
	TraceEdgeFall                      // on-change falling edge
)

var traceKindNames = [...]string{
	TraceEnter:    "ENTER",
	TraceService:  "SERVICE",
	TraceDrop:     "DROP",
	TraceFire:     "FIRE",
	TraceEdgeRise: "RISE",
	TraceEdgeFall: "FALL",
}

func (k TraceKind) String() string {
	if k > 0 && int(k) < len(traceKindNames) {
		return traceKindNames[k]
	}
	return "UNKNOWN"
}

// TraceEvent is one entry of the trace ring.
type TraceEvent struct {
	Kind   TraceKind
	Source uint8
	Seq    uint32
	Value  uint32
}

var tierNames = [...]string{tierAll: "all", tierHigh: "high", tierLow: "low"}

// SourceName names the event source: the vector tier for TraceEnter, the
// peripheral for TraceDrop, the handler slot otherwise.
func (e TraceEvent) SourceName() string {
	switch e.Kind {
	case TraceEnter:
		if int(e.Source) < len(tierNames) {
			return tierNames[e.Source]
		}
		return "tier(" + itoa(int(e.Source)) + ")"
	case TraceDrop:
		return Peripheral(e.Source).String()
	}
	return Source(e.Source).String()
}

// TraceRingSize is the number of events kept for post-mortem.
const TraceRingSize = 32

// Trace is a fixed ring of dispatch events. record runs in interrupt
// context and never allocates.
type Trace struct {
	enabled bool
	ring    [TraceRingSize]TraceEvent
	head    uint8
	seq     uint32
	drained uint32
}

// SetEnabled turns recording on or off.
func (t *Trace) SetEnabled(on bool) {
	t.enabled = on
}

func (t *Trace) record(kind TraceKind, source uint8, value uint32) {
	if !t.enabled {
		return
	}
	t.seq++
	t.ring[t.head] = TraceEvent{Kind: kind, Source: source, Seq: t.seq, Value: value}
	t.head = (t.head + 1) % TraceRingSize
}

// Seq returns the sequence number of the newest event.
func (t *Trace) Seq() uint32 {
	return t.seq
}

// Events returns the retained events from oldest to newest.
func (t *Trace) Events() []TraceEvent {
	return t.since(0)
}

func (t *Trace) since(seq uint32) []TraceEvent {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	out := make([]TraceEvent, 0, TraceRingSize)
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := t.ring[(t.head+i)%TraceRingSize]
		if evt.Kind == 0 || evt.Seq <= seq {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// Clear empties the ring.
func (t *Trace) Clear() {
	state := disableInterrupts()
	t.ring = [TraceRingSize]TraceEvent{}
	t.head = 0
	t.drained = t.seq
	restoreInterrupts(state)
}

// Dump writes the retained events through the debug writer.
func (t *Trace) Dump() {
	debugPrintln("[TRACE] === Trace Ring Dump ===")
	for _, evt := range t.Events() {
		debugPrintln("[TRACE] " + itoa(int(evt.Seq)) + " " + evt.Kind.String() +
			" " + evt.SourceName() + " v=" + utoa(evt.Value))
	}
	debugPrintln("[TRACE] === End Dump ===")
}

// Drain writes the events recorded since the previous Drain to sink and
// returns how many were written. Events overwritten before a drain are
// lost; the gap is visible in the sequence numbers.
func (t *Trace) Drain(sink *TraceSink) (int, error) {
	events := t.since(t.drained)
	for i, evt := range events {
		if err := sink.Write(evt); err != nil {
			return i, err
		}
		t.drained = evt.Seq
	}
	return len(events), nil
}

// TraceSink frames trace events onto a UART.
type TraceSink struct {
	uart drivers.UART
	seq  uint8
	out  protocol.ScratchOutput
}

// NewTraceSink returns a sink writing to uart.
func NewTraceSink(uart drivers.UART) *TraceSink {
	return &TraceSink{uart: uart, seq: protocol.MessageDest}
}

// Write sends one event as a single frame.
func (s *TraceSink) Write(evt TraceEvent) error {
	s.out.Reset()
	protocol.EncodeFrame(&s.out, s.seq, func(out protocol.OutputBuffer) {
		protocol.EncodeTrace(out, protocol.TraceRecord{
			Kind:   uint8(evt.Kind),
			Source: evt.Source,
			Seq:    evt.Seq,
			Value:  evt.Value,
		})
	})
	s.seq = protocol.NextSeq(s.seq)
	_, err := s.uart.Write(s.out.Result())
	return err
}
