package protocol

import "errors"

// MsgTraceEvent is the message ID of a dispatch trace record.
const MsgTraceEvent = 1

var ErrUnknownMessage = errors.New("unknown message id")

// TraceRecord is the wire form of one dispatch trace event.
type TraceRecord struct {
	Kind   uint8
	Source uint8
	Seq    uint32
	Value  uint32
}

// EncodeTrace writes rec as a message: id, kind, source, seq, value.
func EncodeTrace(output OutputBuffer, rec TraceRecord) {
	EncodeVLQUint(output, MsgTraceEvent)
	EncodeVLQUint(output, uint32(rec.Kind))
	EncodeVLQUint(output, uint32(rec.Source))
	EncodeVLQUint(output, rec.Seq)
	EncodeVLQUint(output, rec.Value)
}

// DecodeTrace reads one trace message from payload and advances it.
func DecodeTrace(payload *[]byte) (TraceRecord, error) {
	id, err := DecodeVLQUint(payload)
	if err != nil {
		return TraceRecord{}, err
	}
	if id != MsgTraceEvent {
		return TraceRecord{}, ErrUnknownMessage
	}
	var fields [4]uint32
	for i := range fields {
		if fields[i], err = DecodeVLQUint(payload); err != nil {
			return TraceRecord{}, err
		}
	}
	return TraceRecord{
		Kind:   uint8(fields[0]),
		Source: uint8(fields[1]),
		Seq:    fields[2],
		Value:  fields[3],
	}, nil
}
