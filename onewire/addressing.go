package onewire

import "fmt"

// MatchROM addresses exactly one device by its ROM address: all other
// slaves go silent until the next reset.
func (t *Txn) MatchROM(rom ROMAddress) error {
	if err := t.Reset(); err != nil {
		return err
	}
	if err := t.WriteByte(CmdMatchROM); err != nil {
		return err
	}
	return t.WriteBytes(rom[:])
}

// SkipROM addresses all devices on the bus simultaneously, without sending
// any ROM bytes. Valid when one slave is present, or for broadcast writes.
func (t *Txn) SkipROM() error {
	if err := t.Reset(); err != nil {
		return err
	}
	return t.WriteByte(CmdSkipROM)
}

// ReadROM reads the ROM of the single device on the bus without a search.
// If more than one device is present, a data collision makes the result
// meaningless, which is why Valid is checked here.
func (t *Txn) ReadROM() (ROMAddress, error) {
	if err := t.Reset(); err != nil {
		return ROMAddress{}, err
	}
	if err := t.WriteByte(CmdReadROM); err != nil {
		return ROMAddress{}, err
	}
	var rom ROMAddress
	if err := t.ReadBytes(rom[:]); err != nil {
		return ROMAddress{}, err
	}
	if !rom.Valid() {
		return ROMAddress{}, fmt.Errorf("%w: rom crc mismatch", ErrGeneric)
	}
	return rom, nil
}

// MatchROM addresses exactly one device by its ROM address.
func (h *Handle) MatchROM(rom ROMAddress) error {
	t := h.Begin()
	defer t.End()
	return t.MatchROM(rom)
}

// SkipROM addresses all devices on the bus simultaneously.
func (h *Handle) SkipROM() error {
	t := h.Begin()
	defer t.End()
	return t.SkipROM()
}

// ReadROM reads the ROM of the single device on the bus.
func (h *Handle) ReadROM() (ROMAddress, error) {
	t := h.Begin()
	defer t.End()
	return t.ReadROM()
}
