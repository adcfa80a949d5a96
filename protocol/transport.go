package protocol

const (
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
)

// NextSeq returns the sequence byte following seq.
func NextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

// EncodeFrame writes one message block to output: a length placeholder and
// seq, the payload written by frameData, then CRC16 and the sync byte.
func EncodeFrame(output OutputBuffer, seq uint8, frameData func(output OutputBuffer)) {
	cursor := output.CurPosition()
	output.Output([]byte{0, seq})

	frameData(output)

	changed := len(output.DataSince(cursor))
	output.Update(cursor, uint8(changed+MessageTrailer))

	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
}

// Decoder splits a byte stream into frames. After a framing or CRC error
// it discards input up to the next sync byte.
type Decoder struct {
	desync  bool
	lastSeq uint8
	started bool

	Frames  uint32 // frames accepted
	Errors  uint32 // framing and CRC errors
	Skipped uint32 // frames lost according to the sequence numbers
}

// Receive consumes complete frames from input and passes each to fn. A
// trailing partial frame stays in input for the next call. The payload
// passed to fn is only valid during the call.
func (d *Decoder) Receive(input InputBuffer, fn func(Frame)) {
	data := input.Data()
	total := len(data)

	for len(data) > 0 {
		if d.desync {
			pos := -1
			for i, b := range data {
				if b == MessageValueSync {
					pos = i
					break
				}
			}
			if pos < 0 {
				data = nil
				break
			}
			data = data[pos+1:]
			d.desync = false
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageMin || msgLen > MessageMax {
			d.fail()
			continue
		}
		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			d.fail()
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.fail()
			continue
		}
		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailer]) {
			d.fail()
			continue
		}

		if d.started && seq != NextSeq(d.lastSeq) {
			d.Skipped += uint32((seq - NextSeq(d.lastSeq)) & MessageSeqMask)
		}
		d.started = true
		d.lastSeq = seq
		d.Frames++

		fn(Frame{
			Length:   uint8(msgLen),
			Sequence: seq,
			Payload:  data[MessageHeader : msgLen-MessageTrailer],
			CRC:      frameCRC,
		})
		data = data[msgLen:]
	}

	if consumed := total - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

func (d *Decoder) fail() {
	d.Errors++
	d.desync = true
}
