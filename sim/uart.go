package sim

import (
	"picmcal/core"
	"picmcal/protocol"

	"tinygo.org/x/drivers"
)

const uartFifoSize = 256

var _ drivers.UART = (*UART)(nil)

// UART models the EUSART as a drivers.UART. Bytes pushed with Receive
// raise the receive flag; every Write leaves the transmit buffer empty and
// raises the transmit flag.
type UART struct {
	b  *Board
	rx *protocol.FifoBuffer
	tx *protocol.FifoBuffer

	Overruns int
}

func newUART(b *Board) *UART {
	return &UART{
		b:  b,
		rx: protocol.NewFifoBuffer(uartFifoSize),
		tx: protocol.NewFifoBuffer(uartFifoSize * 16),
	}
}

// Receive queues bytes arriving on the RX pin.
func (u *UART) Receive(data []byte) {
	n := u.rx.Write(data)
	u.Overruns += len(data) - n
	if n > 0 {
		u.b.Raise(core.PeriphSerialRx)
	}
}

// Read implements drivers.UART. Reading the last queued byte clears the
// receive flag.
func (u *UART) Read(p []byte) (int, error) {
	n := u.rx.Read(p)
	if u.rx.IsEmpty() {
		u.b.ClearFlag(core.PeriphSerialRx)
	}
	return n, nil
}

// Buffered implements drivers.UART.
func (u *UART) Buffered() int {
	return u.rx.Available()
}

// Write implements drivers.UART. Bytes that do not fit in the transmit
// log are dropped.
func (u *UART) Write(p []byte) (int, error) {
	u.tx.Write(p)
	u.b.Raise(core.PeriphSerialTx)
	return len(p), nil
}

// Transmitted drains and returns the bytes written so far.
func (u *UART) Transmitted() []byte {
	out := make([]byte, u.tx.Available())
	u.tx.Read(out)
	return out
}

// TxBuffer exposes the transmit log as a protocol input.
func (u *UART) TxBuffer() *protocol.FifoBuffer {
	return u.tx
}
