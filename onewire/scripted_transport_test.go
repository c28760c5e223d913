package onewire

import (
	"fmt"
	"testing"
)

// scriptedExchange is one expected TxRx call: the bytes the code under test
// must send, and the bytes the fake bus hands back (or an error instead).
type scriptedExchange struct {
	wantTx []byte
	giveRx []byte
	err    error
}

// scriptedTransport replays a fixed sequence of exchanges and fails the test
// if the code under test sends anything else, the way periph's onewiretest
// Playback type replays recorded I/O (see the google-periph example repo).
type scriptedTransport struct {
	t       *testing.T
	baud    int
	ops     []scriptedExchange
	cursor  int
	initErr error
}

func (s *scriptedTransport) Init() error   { return s.initErr }
func (s *scriptedTransport) Deinit() error { return nil }

func (s *scriptedTransport) SetBaudRate(baud int) error {
	s.baud = baud
	return nil
}

func (s *scriptedTransport) TxRx(tx, rx []byte) error {
	s.t.Helper()
	if s.cursor >= len(s.ops) {
		s.t.Fatalf("unexpected TxRx call #%d: tx=%#v", s.cursor, tx)
	}
	op := s.ops[s.cursor]
	s.cursor++
	if fmt.Sprintf("%v", tx) != fmt.Sprintf("%v", op.wantTx) {
		s.t.Fatalf("TxRx call #%d: tx=%#v, want %#v", s.cursor-1, tx, op.wantTx)
	}
	if op.err != nil {
		return op.err
	}
	copy(rx, op.giveRx)
	return nil
}
