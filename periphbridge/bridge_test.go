package periphbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	periphonewire "periph.io/x/periph/conn/onewire"

	"github.com/mcsakoff/go-onewire-uart/onewire"
)

// fakeTransport always reports presence and otherwise echoes writes back
// verbatim on reads, enough to exercise Bridge.Tx's command dispatch
// without modeling real slave devices.
type fakeTransport struct {
	baud int
}

func (f *fakeTransport) Init() error   { return nil }
func (f *fakeTransport) Deinit() error { return nil }
func (f *fakeTransport) SetBaudRate(baud int) error {
	f.baud = baud
	return nil
}
func (f *fakeTransport) TxRx(tx, rx []byte) error {
	if len(tx) == 1 && f.baud == onewire.BaudReset {
		rx[0] = 0x90 // presence pulse
		return nil
	}
	copy(rx, tx)
	return nil
}

func TestTxSkipROMThenRead(t *testing.T) {
	h, err := onewire.Open(&fakeTransport{})
	if err != nil {
		t.Fatal(err)
	}
	b := New(h, "test-bus")

	r := make([]byte, 2)
	err = b.Tx([]byte{onewire.CmdSkipROM}, r, periphonewire.WeakPullup)
	assert.NoError(t, err)
}

func TestTxMatchROMRejectsShortAddress(t *testing.T) {
	h, err := onewire.Open(&fakeTransport{})
	if err != nil {
		t.Fatal(err)
	}
	b := New(h, "test-bus")

	err = b.Tx([]byte{onewire.CmdMatchROM, 0x01, 0x02}, nil, periphonewire.WeakPullup)
	assert.Error(t, err)
}

func TestTxRejectsSearchCommands(t *testing.T) {
	h, err := onewire.Open(&fakeTransport{})
	if err != nil {
		t.Fatal(err)
	}
	b := New(h, "test-bus")

	err = b.Tx([]byte{onewire.CmdSearchROM}, nil, periphonewire.WeakPullup)
	assert.Error(t, err)
}

func TestAddressOfIsLittleEndianFamilyCodeFirst(t *testing.T) {
	h, err := onewire.Open(&fakeTransport{})
	if err != nil {
		t.Fatal(err)
	}
	b := New(h, "test-bus")

	rom, err := onewire.ParseROMAddress("2825EA520510F3CE")
	if err != nil {
		t.Fatal(err)
	}
	addr := b.AddressOf(rom)
	assert.Equal(t, byte(0x28), byte(addr), "family code must land in the address's low byte")
}

// noPresenceTransport answers every reset with the reset byte echoed back
// unmolested, meaning no slave pulled the line low.
type noPresenceTransport struct {
	baud int
}

func (f *noPresenceTransport) Init() error   { return nil }
func (f *noPresenceTransport) Deinit() error { return nil }
func (f *noPresenceTransport) SetBaudRate(baud int) error {
	f.baud = baud
	return nil
}
func (f *noPresenceTransport) TxRx(tx, rx []byte) error {
	copy(rx, tx)
	return nil
}

func TestTxMatchROMFailureReportsPeriphAddress(t *testing.T) {
	h, err := onewire.Open(&noPresenceTransport{})
	if err != nil {
		t.Fatal(err)
	}
	b := New(h, "test-bus")

	rom, err := onewire.ParseROMAddress("2825EA520510F3CE")
	if err != nil {
		t.Fatal(err)
	}
	err = b.Tx(append([]byte{onewire.CmdMatchROM}, rom[:]...), nil, periphonewire.WeakPullup)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "periph address")
}

func TestSearchTripletReportsBothPolarities(t *testing.T) {
	h, err := onewire.Open(&fakeTransport{})
	if err != nil {
		t.Fatal(err)
	}
	b := New(h, "test-bus")

	// fakeTransport echoes whatever is sent: both the id and complement
	// reads send 0xFF and get 0xFF back, decoding to bit 1 both times.
	// That is the "no device responded" case.
	res, err := b.SearchTriplet(1)
	assert.NoError(t, err)
	assert.False(t, res.GotOne)
	assert.False(t, res.GotZero)
	assert.Equal(t, byte(1), res.Taken)
}
