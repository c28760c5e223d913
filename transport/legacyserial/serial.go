// Package legacyserial implements onewire.Transport on top of
// github.com/tarm/serial, which (unlike go.bug.st/serial) exposes no way
// to change an open port's baud rate in place. Every SetBaudRate call here
// therefore closes the port and reopens it at the new rate, the technique to
// reach for when the serial library on hand doesn't support live
// reconfiguration.
package legacyserial

import (
	"fmt"
	"sync"
	"time"

	"github.com/tarm/serial"
)

const readTimeout = 3 * time.Second

// port is the subset of tarm/serial's *Port this package depends on,
// narrowed so tests can substitute a fake without opening a real device.
type port interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Flush() error
	Close() error
}

// Transport adapts a github.com/tarm/serial port to onewire.Transport.
type Transport struct {
	device string
	mu     sync.Mutex
	port   port
	opener func(cfg *serial.Config) (port, error)
}

// New returns a Transport bound to device, not yet opened.
func New(device string) *Transport {
	return &Transport{
		device: device,
		opener: func(cfg *serial.Config) (port, error) {
			return serial.OpenPort(cfg)
		},
	}
}

func (t *Transport) openAt(baud int) (port, error) {
	cfg := &serial.Config{
		Name:        t.device,
		Baud:        baud,
		ReadTimeout: readTimeout,
		Size:        serial.DefaultSize,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
	return t.opener(cfg)
}

// Init opens the port at the data baud rate.
func (t *Transport) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.openAt(115200)
	if err != nil {
		return fmt.Errorf("legacyserial: open %s: %w", t.device, err)
	}
	t.port = p
	return nil
}

// Deinit closes the port.
func (t *Transport) Deinit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *Transport) closeLocked() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("legacyserial: close: %w", err)
	}
	return nil
}

// SetBaudRate closes the port and reopens it at baud, since tarm/serial
// cannot reconfigure a live port.
func (t *Transport) SetBaudRate(baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.closeLocked(); err != nil {
		return err
	}
	p, err := t.openAt(baud)
	if err != nil {
		return fmt.Errorf("legacyserial: reopen at %d baud: %w", baud, err)
	}
	t.port = p
	return nil
}

// TxRx flushes the port, writes tx, and reads back len(rx) bytes.
func (t *Transport) TxRx(tx, rx []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.port.Flush(); err != nil {
		return fmt.Errorf("legacyserial: flush: %w", err)
	}

	n, err := t.port.Write(tx)
	if err != nil {
		return fmt.Errorf("legacyserial: write: %w", err)
	}
	if n != len(tx) {
		return fmt.Errorf("legacyserial: short write: wrote %d of %d bytes", n, len(tx))
	}

	read := 0
	for read < len(rx) {
		n, err := t.port.Read(rx[read:])
		if err != nil {
			return fmt.Errorf("legacyserial: read: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("legacyserial: read: no data (timeout or device disconnected)")
		}
		read += n
	}
	return nil
}
