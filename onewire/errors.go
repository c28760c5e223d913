package onewire

import "errors"

// Sentinel errors returned by bus operations. Composite operations wrap
// these with fmt.Errorf("%w: ...", ...) so callers can still compare with
// errors.Is after the message is made specific to the failing call.
var (
	// ErrGeneric covers failures that don't fit the more specific
	// categories below: transport init failure, ROM CRC mismatch, a
	// malformed response to a higher-level command.
	ErrGeneric = errors.New("onewire: operation failed")

	// ErrTxRx means the transport's TxRx call itself returned an error.
	ErrTxRx = errors.New("onewire: transport exchange failed")

	// ErrBaud means the transport's SetBaudRate call returned an error.
	ErrBaud = errors.New("onewire: baud rate switch failed")

	// ErrPresence means Reset completed its UART exchange but no slave
	// asserted a presence pulse (or the bus looks shorted).
	ErrPresence = errors.New("onewire: no presence pulse detected")

	// ErrNoDevice means a search pass found no (more) devices. Returned by
	// Search when last_discrepancy was already 0, or when the search
	// aborts on an "all slaves silent" bit pair.
	ErrNoDevice = errors.New("onewire: no device responded to search")
)
