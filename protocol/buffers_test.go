package protocol

import "testing"

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()

	scratch.Output([]byte{1, 2, 3})
	if scratch.CurPosition() != 3 {
		t.Errorf("Expected position 3, got %d", scratch.CurPosition())
	}

	scratch.Output([]byte{4, 5})
	if scratch.CurPosition() != 5 {
		t.Errorf("Expected position 5, got %d", scratch.CurPosition())
	}

	scratch.Update(0, 99)
	if result := scratch.Result(); result[0] != 99 {
		t.Errorf("Expected first byte to be 99, got %d", result[0])
	}

	since := scratch.DataSince(2)
	if len(since) != 3 || since[0] != 3 {
		t.Errorf("DataSince(2) failed: expected [3 4 5], got %v", since)
	}
	if scratch.DataSince(10) != nil {
		t.Error("DataSince past the end should be nil")
	}

	scratch.Reset()
	if scratch.CurPosition() != 0 {
		t.Errorf("After reset, expected position 0, got %d", scratch.CurPosition())
	}
}

func TestScratchOutputTruncates(t *testing.T) {
	var scratch ScratchOutput
	scratch.Output(make([]byte, MessageMax+10))
	if scratch.CurPosition() != MessageMax {
		t.Errorf("Expected position %d, got %d", MessageMax, scratch.CurPosition())
	}
}

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)

	if !fifo.IsEmpty() {
		t.Error("New FIFO should be empty")
	}
	if fifo.Free() != 9 {
		t.Errorf("Expected 9 free bytes, got %d", fifo.Free())
	}

	if n := fifo.Write([]byte{1, 2, 3, 4, 5}); n != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", n)
	}
	if fifo.Available() != 5 {
		t.Errorf("Expected 5 available, got %d", fifo.Available())
	}

	out := make([]byte, 3)
	if n := fifo.Read(out); n != 3 || out[0] != 1 || out[2] != 3 {
		t.Errorf("Read returned %d bytes %v", n, out)
	}

	// Wrap around the end of the backing array.
	if n := fifo.Write([]byte{6, 7, 8, 9, 10, 11, 12}); n != 7 {
		t.Errorf("Expected to write 7 bytes, wrote %d", n)
	}
	if fifo.Free() != 0 {
		t.Errorf("Expected full FIFO, %d free", fifo.Free())
	}
	if n := fifo.Write([]byte{13}); n != 0 {
		t.Errorf("Write to full FIFO stored %d bytes", n)
	}

	data := fifo.Data()
	want := []byte{4, 5, 6, 7, 8, 9, 10, 11, 12}
	if len(data) != len(want) {
		t.Fatalf("Data() = %v, want %v", data, want)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("Data()[%d] = %d, want %d", i, data[i], want[i])
		}
	}

	fifo.Pop(2)
	if b, ok := fifo.ReadByte(); !ok || b != 6 {
		t.Errorf("ReadByte() = %d, %v, want 6, true", b, ok)
	}

	fifo.Reset()
	if !fifo.IsEmpty() {
		t.Error("FIFO should be empty after reset")
	}
	if _, ok := fifo.ReadByte(); ok {
		t.Error("ReadByte on empty FIFO should fail")
	}
}
