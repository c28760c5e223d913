package onewire

import "errors"

// SearchCallback is invoked once per device found by SearchEach, and once
// more after the scan ends with a zero-value rom and index -1 to signal
// "end of enumeration." Returning a non-nil error aborts the scan early.
type SearchCallback func(h *Handle, rom ROMAddress, index int) error

// SearchAll enumerates devices with command (CmdSearchROM or
// CmdAlarmSearch), filling out with however many ROMs are found (up to
// len(out)) and returning that count. The whole call runs under one lock.
//
// ErrNoDevice after at least one device was found is not an error: it just
// means the bus had fewer devices than len(out). It is only returned if no
// device was found at all.
func (h *Handle) SearchAll(command byte, out []ROMAddress) (int, error) {
	t := h.Begin()
	defer t.End()

	t.SearchReset()
	count := 0
	for count < len(out) {
		rom, err := t.SearchWithCommand(command)
		if err != nil {
			if errors.Is(err, ErrNoDevice) {
				if count > 0 {
					return count, nil
				}
			}
			return count, err
		}
		out[count] = rom
		count++
	}
	return count, nil
}

// SearchEach enumerates devices with command, invoking fn for each one in
// turn; a non-nil return from fn aborts the scan. fn is always invoked one
// final time with a zero-value ROMAddress and index -1 once the scan ends,
// whether it ran to completion or was aborted. The whole call, including
// every fn invocation, runs under one lock. SearchEach returns the number
// of devices found before it stopped.
func (h *Handle) SearchEach(command byte, fn SearchCallback) (int, error) {
	t := h.Begin()
	defer t.End()

	t.SearchReset()
	count := 0
	var scanErr error
	for {
		rom, err := t.SearchWithCommand(command)
		if err != nil {
			if errors.Is(err, ErrNoDevice) {
				err = nil
			}
			scanErr = err
			break
		}
		if cbErr := fn(h, rom, count); cbErr != nil {
			scanErr = cbErr
			break
		}
		count++
	}
	_ = fn(h, ROMAddress{}, -1)
	return count, scanErr
}
