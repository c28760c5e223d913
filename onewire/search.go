package onewire

import "fmt"

// SearchReset forgets any in-progress enumeration, so the next Search call
// starts a fresh pass over every device on the bus.
func (t *Txn) SearchReset() {
	t.h.lastDiscrepancy = stateFirstDevice
}

// Search runs one pass of the SEARCH_ROM (0xF0) binary-tree enumeration
// algorithm and returns the next device's ROM address. SearchWithCommand
// lets a caller substitute ALARM_SEARCH (0xEC) or any other command byte
// that follows the same bit protocol.
//
// Call Search repeatedly (or use SearchReset first to restart) to enumerate
// every device on the bus; ErrNoDevice signals the end of the enumeration
// and automatically resets the state so the next call starts over.
func (t *Txn) Search() (ROMAddress, error) {
	return t.SearchWithCommand(CmdSearchROM)
}

// SearchWithCommand is Search parameterized by the command byte. See the
// package doc on Maxim AN187 for the algorithm itself.
func (t *Txn) SearchWithCommand(command byte) (ROMAddress, error) {
	h := t.h

	if h.lastDiscrepancy == stateLastDevice {
		h.lastDiscrepancy = stateFirstDevice
		return ROMAddress{}, ErrNoDevice
	}

	if err := t.Reset(); err != nil {
		return ROMAddress{}, err
	}
	if err := t.WriteByte(command); err != nil {
		return ROMAddress{}, err
	}

	// The FIRST_DEV sentinel behaves as 0 for the tie-break comparisons
	// below: on a fresh pass there is no prior discrepancy to repeat or
	// flip, so every collision falls into the "unexplored branch" case,
	// exactly as if last_discrepancy were the integer 0.
	tieBreak := h.lastDiscrepancy
	if tieBreak == stateFirstDevice {
		tieBreak = 0
	}

	var nextDiscrepancy byte
	var rom [8]byte

	for idBitNumber := byte(1); idBitNumber <= 64; idBitNumber++ {
		byteIdx := (idBitNumber - 1) / 8
		bitIdx := (idBitNumber - 1) % 8

		bit, err := t.ReadBit()
		if err != nil {
			return ROMAddress{}, err
		}
		bitCpl, err := t.ReadBit()
		if err != nil {
			return ROMAddress{}, err
		}

		var chosen byte
		switch {
		case bit == 1 && bitCpl == 1:
			// No slave responded to either polarity: the bus went quiet
			// mid-search (or there was never a device to begin with).
			h.lastDiscrepancy = nextDiscrepancy
			return ROMAddress{}, ErrNoDevice

		case bit == 0 && bitCpl == 0:
			// Collision: some slaves have 0 here, others 1.
			switch {
			case idBitNumber < tieBreak:
				// Still replaying the branch chosen last pass.
				chosen = (h.rom[byteIdx] >> bitIdx) & 1
			case idBitNumber == tieBreak:
				// This is the position we promised to flip to 1.
				chosen = 1
			default:
				// Unexplored branch: take 0, remember it for next time.
				chosen = 0
				nextDiscrepancy = idBitNumber
			}

		default:
			// (1,0) -> all responders have 1; (0,1) -> all have 0.
			chosen = bit
		}

		if err := t.WriteBit(chosen); err != nil {
			return ROMAddress{}, fmt.Errorf("%w: search direction bit: %v", ErrTxRx, err)
		}

		if chosen != 0 {
			rom[byteIdx] |= 1 << bitIdx
		}
	}

	h.rom = rom
	h.lastDiscrepancy = nextDiscrepancy
	return ROMAddress(rom), nil
}

// SearchReset forgets any in-progress enumeration.
func (h *Handle) SearchReset() {
	t := h.Begin()
	defer t.End()
	t.SearchReset()
}

// Search runs one pass of the SEARCH_ROM enumeration.
func (h *Handle) Search() (ROMAddress, error) {
	t := h.Begin()
	defer t.End()
	return t.Search()
}

// SearchWithCommand runs one pass with an arbitrary command byte (e.g.
// CmdAlarmSearch).
func (h *Handle) SearchWithCommand(command byte) (ROMAddress, error) {
	t := h.Begin()
	defer t.End()
	return t.SearchWithCommand(command)
}
