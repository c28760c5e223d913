package onewire

import (
	"errors"
	"testing"
)

// simulatedBus is a fake Transport modeling the open-drain wired-AND bus
// itself: several ROM addresses, each able to pull the shared line low. It
// drives the SEARCH_ROM/ALARM_SEARCH triplet (id bit, complement bit,
// direction bit) the same way periph's onewiretest.Playback.SearchTriplet
// computes a wired-AND response over a device mask (google-periph example
// repo), rather than replaying a fixed script: a real search issues a
// different number of TxRx calls depending on how many devices collide.
type simulatedBus struct {
	t       *testing.T
	devices []ROMAddress
	baud    int

	inSearch   bool
	bitPos     int // 0..63, which ROM bit the next triplet addresses
	phase      int // 0: id-bit read, 1: complement-bit read, 2: direction write
	candidates []int

	calls        int
	failAtCall   int
	failErr      error
}

func (b *simulatedBus) Init() error   { return nil }
func (b *simulatedBus) Deinit() error { return nil }

func (b *simulatedBus) SetBaudRate(baud int) error {
	b.baud = baud
	return nil
}

func romBit(rom ROMAddress, byteIdx, bitIdx int) byte {
	return (rom[byteIdx] >> uint(bitIdx)) & 1
}

func (b *simulatedBus) TxRx(tx, rx []byte) error {
	b.t.Helper()
	b.calls++
	if b.failAtCall != 0 && b.calls == b.failAtCall {
		return b.failErr
	}

	switch {
	case len(tx) == 1 && b.baud == BaudReset:
		b.inSearch = false
		if len(b.devices) == 0 {
			rx[0] = wireResetByte
		} else {
			rx[0] = 0x90
		}
		return nil

	case len(tx) == 8:
		// WriteByte(command): begin a search pass if it's a search command.
		cmd := decodeByte([8]byte(tx))
		if cmd == CmdSearchROM || cmd == CmdAlarmSearch {
			b.inSearch = true
			b.bitPos = 0
			b.phase = 0
			b.candidates = b.candidates[:0]
			for i := range b.devices {
				b.candidates = append(b.candidates, i)
			}
		}
		return nil

	case len(tx) == 1 && b.baud == BaudData:
		if !b.inSearch {
			rx[0] = wireOneByte
			return nil
		}
		byteIdx, bitIdx := b.bitPos/8, b.bitPos%8
		switch b.phase {
		case 0: // id bit: wired-AND of the true bit across active candidates
			gotZero := false
			for _, idx := range b.candidates {
				if romBit(b.devices[idx], byteIdx, bitIdx) == 0 {
					gotZero = true
				}
			}
			if gotZero {
				rx[0] = wireZeroByte
			} else {
				rx[0] = wireOneByte
			}
			b.phase = 1
		case 1: // complement bit: wired-AND of the inverted bit
			gotZero := false
			for _, idx := range b.candidates {
				if romBit(b.devices[idx], byteIdx, bitIdx) == 1 {
					gotZero = true
				}
			}
			if gotZero {
				rx[0] = wireZeroByte
			} else {
				rx[0] = wireOneByte
			}
			b.phase = 2
		case 2: // direction bit: master picks a branch, we narrow candidates
			chosen := decodeBit(tx[0])
			kept := b.candidates[:0]
			for _, idx := range b.candidates {
				if romBit(b.devices[idx], byteIdx, bitIdx) == chosen {
					kept = append(kept, idx)
				}
			}
			b.candidates = kept
			b.bitPos++
			b.phase = 0
			if b.bitPos == 64 {
				b.inSearch = false
			}
		}
		return nil
	}

	b.t.Fatalf("simulatedBus: unhandled TxRx shape len(tx)=%d baud=%d", len(tx), b.baud)
	return errors.New("unreachable")
}
