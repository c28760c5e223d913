// Package periphbridge adapts a onewire.Handle to periph.io/x/periph's
// conn/onewire.Bus and BusSearcher interfaces, so code written against the
// wider periph.io ecosystem (its generic onewire.Search driver, its
// onewire.Dev conn.Conn adapter) can run against this module's core.
//
// periph's Bus.Tx dispatches on the ROM command byte embedded in w[0], the
// same way the firmata-onewire driver in the example pack does; Bridge.Tx
// mirrors that switch, translating each case to calls on a onewire.Txn.
package periphbridge

import (
	"encoding/binary"
	"fmt"

	periphonewire "periph.io/x/periph/conn/onewire"

	"github.com/mcsakoff/go-onewire-uart/onewire"
)

// Bridge implements periph's onewire.BusCloser on top of a core Handle.
type Bridge struct {
	h    *onewire.Handle
	name string
}

// New wraps h as a periph onewire.Bus named name (used only by String).
func New(h *onewire.Handle, name string) *Bridge {
	return &Bridge{h: h, name: name}
}

func (b *Bridge) String() string { return b.name }

// Close releases the underlying Handle.
func (b *Bridge) Close() error { return b.h.Close() }

// Tx dispatches on w[0], the ROM command byte, translating periph's
// single-call Tx shape into the core's Reset/command/payload sequence.
// Power is accepted but ignored: this core has no strong-pullup support
// (no parasitic-power management beyond read-only detection), so a
// StrongPullup request degrades silently to a plain exchange rather than
// failing outright.
func (b *Bridge) Tx(w, r []byte, _ periphonewire.Pullup) error {
	if len(w) == 0 {
		return nil
	}

	t := b.h.Begin()
	defer t.End()

	switch w[0] {
	case onewire.CmdSkipROM:
		if err := t.SkipROM(); err != nil {
			return err
		}
		if err := t.WriteBytes(w[1:]); err != nil {
			return err
		}
		return readRest(t, r)

	case onewire.CmdReadROM:
		rom, err := t.ReadROM()
		if err != nil {
			return err
		}
		if len(r) > 0 {
			copy(r, rom[:])
		}
		return nil

	case onewire.CmdMatchROM:
		if len(w) < 9 {
			return fmt.Errorf("periphbridge: match rom: need 8 address bytes, got %d", len(w)-1)
		}
		var rom onewire.ROMAddress
		copy(rom[:], w[1:9])
		if err := t.MatchROM(rom); err != nil {
			return fmt.Errorf("periphbridge: match rom %s (periph address %s): %w", rom, b.AddressOf(rom), err)
		}
		if err := t.WriteBytes(w[9:]); err != nil {
			return err
		}
		return readRest(t, r)

	case onewire.CmdSearchROM, onewire.CmdAlarmSearch:
		return fmt.Errorf("periphbridge: search commands must go through SearchTriplet, not Tx")

	default:
		return fmt.Errorf("periphbridge: unsupported rom command 0x%02X", w[0])
	}
}

func readRest(t *onewire.Txn, r []byte) error {
	if len(r) == 0 {
		return nil
	}
	return t.ReadBytes(r)
}

// Search enumerates devices using periph's generic Search algorithm driven
// by our SearchTriplet, as a cross-check against the core's own Search.
func (b *Bridge) Search(alarmOnly bool) ([]periphonewire.Address, error) {
	return periphonewire.Search(b, alarmOnly)
}

// SearchTriplet performs one bit of a search pass: read the true and
// complement bits, write the chosen direction, and report what the bus
// showed, per periph's BusSearcher contract.
//
// Each call acquires its own Txn rather than holding one lock for an
// entire search the way the core's own Handle.Search does. periph's
// generic Search algorithm calls SearchTriplet once per bit from outside
// this package, so there is no single call we could wrap in one Txn
// without periph's driver cooperating. A caller interleaving calls to
// this Bridge from another goroutine during a periph-driven search can
// observe it mid-pass. Use the core's own Handle.Search/SearchAll instead
// when that matters.
func (b *Bridge) SearchTriplet(direction byte) (periphonewire.TripletResult, error) {
	t := b.h.Begin()
	defer t.End()

	idBit, err := t.ReadBit()
	if err != nil {
		return periphonewire.TripletResult{}, err
	}
	cplBit, err := t.ReadBit()
	if err != nil {
		return periphonewire.TripletResult{}, err
	}

	result := periphonewire.TripletResult{
		GotZero: idBit == 0,
		GotOne:  cplBit == 0,
		Taken:   direction,
	}
	if err := t.WriteBit(direction); err != nil {
		return periphonewire.TripletResult{}, err
	}
	return result, nil
}

// Reset exposes the core's reset/presence check directly, for callers that
// want it without going through Tx.
func (b *Bridge) Reset() error {
	return b.h.Reset()
}

// AddressOf converts this core's big-endian-on-the-wire ROMAddress (byte 0
// transmitted first) into periph's little-endian Address representation
// (family code in the low byte of the uint64). Use it to cross-reference a
// ROM obtained from the core's own Handle.Search/SearchAll against
// addresses returned by Bridge.Search or reported by other periph.io code.
func (b *Bridge) AddressOf(rom onewire.ROMAddress) periphonewire.Address {
	return periphonewire.Address(binary.LittleEndian.Uint64(rom[:]))
}

var _ periphonewire.BusCloser = (*Bridge)(nil)
var _ periphonewire.BusSearcher = (*Bridge)(nil)
