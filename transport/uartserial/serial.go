// Package uartserial implements onewire.Transport on top of go.bug.st/serial,
// reconfiguring the port's baud rate in place for every Reset. It is the
// recommended transport: most USB-UART adapters accept a mode change without
// closing the handle, so SetBaudRate here is just a register write.
package uartserial

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// Port is the subset of go.bug.st/serial's Port this package depends on,
// narrowed so tests can substitute a fake without opening a real device.
type Port interface {
	SetMode(mode *serial.Mode) error
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetDTR(dtr bool) error
	Close() error
}

// Transport adapts a go.bug.st/serial Port to onewire.Transport.
type Transport struct {
	device string
	mode   serial.Mode
	mu     sync.Mutex
	port   Port
	opener func(device string, mode *serial.Mode) (Port, error)
}

// New returns a Transport bound to device, not yet opened. onewire.Open
// calls Init to open it.
func New(device string) *Transport {
	return &Transport{
		device: device,
		mode: serial.Mode{
			BaudRate: 115200,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		opener: func(device string, mode *serial.Mode) (Port, error) {
			return serial.Open(device, mode)
		},
	}
}

// Init opens the serial port and asserts DTR, which powers the DS9097-style
// UART-to-1-Wire adapters this package is typically paired with.
func (t *Transport) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.opener(t.device, &t.mode)
	if err != nil {
		return fmt.Errorf("uartserial: open %s: %w", t.device, err)
	}
	if err := p.SetDTR(true); err != nil {
		_ = p.Close()
		return fmt.Errorf("uartserial: set DTR: %w", err)
	}
	t.port = p
	return nil
}

// Deinit closes the port.
func (t *Transport) Deinit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("uartserial: close: %w", err)
	}
	return nil
}

// SetBaudRate reconfigures the open port's baud rate without closing it.
func (t *Transport) SetBaudRate(baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode.BaudRate = baud
	if err := t.port.SetMode(&t.mode); err != nil {
		return fmt.Errorf("uartserial: set baud %d: %w", baud, err)
	}
	return nil
}

// TxRx discards any stale buffered bytes, then writes tx and reads back
// len(rx) bytes, the way the UART-1-Wire trick requires every exchange to
// start from a clean line.
func (t *Transport) TxRx(tx, rx []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("uartserial: flush tx: %w", err)
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("uartserial: flush rx: %w", err)
	}

	n, err := t.port.Write(tx)
	if err != nil {
		return fmt.Errorf("uartserial: write: %w", err)
	}
	if n != len(tx) {
		return fmt.Errorf("uartserial: short write: wrote %d of %d bytes", n, len(tx))
	}

	read := 0
	for read < len(rx) {
		n, err := t.port.Read(rx[read:])
		if err != nil {
			return fmt.Errorf("uartserial: read: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("uartserial: read: no data (device disconnected?)")
		}
		read += n
	}
	return nil
}
