// Package protocol implements the framing used to stream dispatch trace
// events off the MCU. Frames follow the Klipper message block layout:
// length, sequence, VLQ payload, CRC16, sync byte.
package protocol

// Version of the trace wire format
const Version = "1"

// Protocol constants
const (
	MessageMax     = 64 // Maximum frame size
	MessageMin     = 5  // Minimum frame size (header + trailer)
	MessageHeader  = 2  // Length and sequence bytes
	MessageTrailer = 3  // CRC16 and sync byte

	// Message sequence masks
	MessageSeqMask  = 0x0F
	MessageSeqShift = 4
)

// Frame is one decoded message block
type Frame struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // frame data without header/trailer
	CRC      uint16
}
