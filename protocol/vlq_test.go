package protocol

import (
	"testing"
)

func TestVLQEncodeDecodeInt(t *testing.T) {
	testCases := []int32{
		0, 1, -1, 31, -32, 95, 96, 127, -127, 128, -128,
		1000, -1000, 65535, -65535, 1000000, -1000000,
		1 << 30, -(1 << 30),
	}

	for _, expected := range testCases {
		output := NewScratchOutput()
		EncodeVLQInt(output, expected)
		encoded := output.Result()

		data := encoded
		decoded, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}
		if len(data) != 0 {
			t.Errorf("VLQ decode didn't consume all bytes for value %d: %d bytes remaining", expected, len(data))
		}
	}
}

func TestVLQEncodeDecodeUint(t *testing.T) {
	testCases := []uint32{0, 1, 127, 128, 255, 51722, 65535, 625000, 0xFFFFFFFF}

	for _, expected := range testCases {
		output := NewScratchOutput()
		EncodeVLQUint(output, expected)

		data := output.Result()
		decoded, err := DecodeVLQUint(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d", expected, decoded)
		}
	}
}

func TestVLQSmallValuesOneByte(t *testing.T) {
	for _, v := range []int32{0, 1, 95, -32} {
		output := NewScratchOutput()
		EncodeVLQInt(output, v)
		if n := len(output.Result()); n != 1 {
			t.Errorf("value %d encoded in %d bytes, want 1", v, n)
		}
	}
}

func TestVLQBufferTooSmall(t *testing.T) {
	data := []byte{0x80} // Continuation byte but no following byte
	_, err := DecodeVLQInt(&data)
	if err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}

	data = nil
	if _, err := DecodeVLQUint(&data); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall on empty input, got %v", err)
	}
}

func TestVLQTooLong(t *testing.T) {
	data := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQInt(&data); err != ErrInvalidVLQ {
		t.Errorf("Expected ErrInvalidVLQ, got %v", err)
	}
}
