package onewire

import (
	"fmt"
	"sync"
)

// Search state sentinels. Any other byte value 1..64 names the bit
// position of the discrepancy the next pass must flip.
const (
	stateFirstDevice byte = 0xFF // no search yet; start fresh
	stateLastDevice  byte = 0x00 // enumeration complete
)

// Handle is one open 1-Wire bus. It borrows a Transport for its lifetime
// (the transport is never closed by anything but Close) and owns a mutex
// guarding every exported entry point, plus the scratch state a ROM search
// carries between calls.
//
// Create one with Open, release it with Close. Do not copy a Handle.
type Handle struct {
	transport Transport

	mu sync.Mutex

	// scratch ROM from the last successfully completed search pass, and
	// the single-byte search state machine carried between calls.
	rom             [8]byte
	lastDiscrepancy byte
}

// Open initializes the transport and returns a ready Handle.
func Open(transport Transport) (*Handle, error) {
	if err := transport.Init(); err != nil {
		return nil, fmt.Errorf("%w: transport init: %v", ErrGeneric, err)
	}
	return &Handle{
		transport:       transport,
		lastDiscrepancy: stateFirstDevice,
	}, nil
}

// Close releases the transport. The Handle must not be used afterwards.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.transport.Deinit(); err != nil {
		return fmt.Errorf("%w: transport deinit: %v", ErrGeneric, err)
	}
	return nil
}

// Txn is a held-lock scope over a Handle's raw, non-locking primitives. It
// lets a caller batch several bus operations (e.g. reset, match ROM, write a
// scratchpad, read it back) under a single mutex acquisition instead of
// paying one lock/unlock per primitive. It collapses the raw/guarded API
// doubling of the original C library into a single pair of types.
//
// Obtain one with Handle.Begin and release it with Txn.End. A Txn must not
// outlive the call that obtained it, and must not be used from more than one
// goroutine at a time.
type Txn struct {
	h *Handle
}

// Begin locks the handle and returns a Txn for driving raw primitives.
func (h *Handle) Begin() *Txn {
	h.mu.Lock()
	return &Txn{h: h}
}

// End releases the lock acquired by Begin.
func (t *Txn) End() {
	t.h.mu.Unlock()
}

// Reset issues a 1-Wire reset pulse and checks for a presence pulse. It
// always restores 115200 baud before returning, even on error.
func (t *Txn) Reset() error {
	h := t.h
	if err := h.transport.SetBaudRate(BaudReset); err != nil {
		return fmt.Errorf("%w: switch to reset baud: %v", ErrBaud, err)
	}

	tx := [1]byte{wireResetByte}
	var rx [1]byte
	txErr := h.transport.TxRx(tx[:], rx[:])

	if err := h.transport.SetBaudRate(BaudData); err != nil {
		return fmt.Errorf("%w: restore data baud: %v", ErrBaud, err)
	}
	if txErr != nil {
		return fmt.Errorf("%w: reset pulse: %v", ErrTxRx, txErr)
	}

	switch rx[0] {
	case 0x00:
		return fmt.Errorf("%w: bus shorted", ErrPresence)
	case wireResetByte:
		return fmt.Errorf("%w: no device on bus", ErrPresence)
	default:
		return nil
	}
}

// WriteBit writes one 1-Wire bit (0 or nonzero), ignoring the echo.
func (t *Txn) WriteBit(bit byte) error {
	tx := [1]byte{encodeBit(bit)}
	var rx [1]byte
	if err := t.h.transport.TxRx(tx[:], rx[:]); err != nil {
		return fmt.Errorf("%w: write bit: %v", ErrTxRx, err)
	}
	return nil
}

// ReadBit starts a read time slot and returns the bit a slave drove, or 1
// if nothing pulled the line low.
func (t *Txn) ReadBit() (byte, error) {
	tx := [1]byte{wireOneByte}
	var rx [1]byte
	if err := t.h.transport.TxRx(tx[:], rx[:]); err != nil {
		return 0, fmt.Errorf("%w: read bit: %v", ErrTxRx, err)
	}
	return decodeBit(rx[0]), nil
}

// WriteByte writes one 1-Wire byte LSB-first.
func (t *Txn) WriteByte(b byte) error {
	tx := encodeByte(b)
	var rx [8]byte
	if err := t.h.transport.TxRx(tx[:], rx[:]); err != nil {
		return fmt.Errorf("%w: write byte: %v", ErrTxRx, err)
	}
	return nil
}

// ReadByte reads one 1-Wire byte LSB-first: writing 0xFF is exactly a read.
func (t *Txn) ReadByte() (byte, error) {
	tx := encodeByte(wireOneByte)
	var rx [8]byte
	if err := t.h.transport.TxRx(tx[:], rx[:]); err != nil {
		return 0, fmt.Errorf("%w: read byte: %v", ErrTxRx, err)
	}
	return decodeByte(rx), nil
}

// ReadBytes fills buf one 1-Wire byte at a time.
func (t *Txn) ReadBytes(buf []byte) error {
	for i := range buf {
		b, err := t.ReadByte()
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}

// WriteBytes writes buf one 1-Wire byte at a time.
func (t *Txn) WriteBytes(buf []byte) error {
	for _, b := range buf {
		if err := t.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

//
// Guarded entry points: each acquires the lock for exactly one operation.
// Batch multiple primitives with Begin/Txn/End instead when the sequence
// must run under one lock.
//

// Reset issues a 1-Wire reset pulse and checks for presence.
func (h *Handle) Reset() error {
	t := h.Begin()
	defer t.End()
	return t.Reset()
}

// WriteBit writes one 1-Wire bit.
func (h *Handle) WriteBit(bit byte) error {
	t := h.Begin()
	defer t.End()
	return t.WriteBit(bit)
}

// ReadBit reads one 1-Wire bit.
func (h *Handle) ReadBit() (byte, error) {
	t := h.Begin()
	defer t.End()
	return t.ReadBit()
}

// WriteByte writes one 1-Wire byte.
func (h *Handle) WriteByte(b byte) error {
	t := h.Begin()
	defer t.End()
	return t.WriteByte(b)
}

// ReadByte reads one 1-Wire byte.
func (h *Handle) ReadByte() (byte, error) {
	t := h.Begin()
	defer t.End()
	return t.ReadByte()
}
