// Package onewire implements a Dallas/Maxim 1-Wire bus master that tunnels
// the 1-Wire line protocol over a full-duplex UART, the way a single UART
// character can stand in for one 1-Wire time slot once the line is wired
// open-drain with TX looped back to RX.
//
// For background on the trick, see Maxim AN214 "Using a UART to Implement a
// 1-Wire Bus Master" and AN187 "1-Wire Search Algorithm", which this package
// follows closely for the reset/presence detection and ROM search state
// machine respectively.
package onewire

// Transport is the contract the core calls into for the physical UART. It
// knows nothing about 1-Wire; it just drives a serial line.
//
// Implementations live outside this package; see transport/uartserial and
// transport/legacyserial for two concrete ones backed by different
// third-party serial libraries.
type Transport interface {
	// Init prepares the transport for use (e.g. opens the serial port).
	Init() error

	// Deinit releases the transport. The transport must not be used again
	// afterwards.
	Deinit() error

	// SetBaudRate reconfigures the link speed. Only 9600 (for Reset) and
	// 115200 (for everything else) are ever requested by this package.
	SetBaudRate(baud int) error

	// TxRx drives len(tx) bytes out while simultaneously sampling the same
	// number of bytes in rx. tx and rx must be the same length; they are
	// never required to alias.
	TxRx(tx, rx []byte) error
}

// Baud rates the core switches between. 9600 is slow enough that one UART
// byte spans the ~480µs 1-Wire reset pulse; 115200 is fast enough that one
// UART byte spans a single 1-Wire time slot.
const (
	BaudReset = 9600
	BaudData  = 115200
)
