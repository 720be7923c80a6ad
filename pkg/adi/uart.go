package adi

// UART models the serial port's transmit/receive shift registers as seen
// through the ADI's TBE/RBF interrupt sources. Bit-level framing and
// baud generation live in the CIA (which clocks the shift register); this
// type only holds the byte-level latches.
type UART struct {
	txData  uint8
	txEmpty bool
	rxData  uint8
	rxFull  bool
	loopback bool
}

// NewUART creates a UART with an empty transmit buffer (TBE asserted).
func NewUART() UART {
	return UART{txEmpty: true}
}

// SetLoopback wires TxD directly back to RxD, used by diagnostics.
func (u *UART) SetLoopback(on bool) { u.loopback = on }

// WriteTx loads a byte into the transmit buffer. Returns true if the
// buffer was empty (so the caller should assert TBE-cleared and start a
// shift-out sequence).
func (u *UART) WriteTx(b uint8) bool {
	wasEmpty := u.txEmpty
	u.txData = b
	u.txEmpty = false
	if u.loopback {
		u.rxData = b
		u.rxFull = true
	}
	return wasEmpty
}

// CompleteTx is called when the CIA's shift register finishes clocking
// the byte out; it re-asserts TBE.
func (u *UART) CompleteTx() {
	u.txEmpty = true
}

// ReadRx reads and clears the receive buffer.
func (u *UART) ReadRx() uint8 {
	u.rxFull = false
	return u.rxData
}

// DeliverRx is called when the CIA's shift register finishes clocking in
// a byte from the SP pin.
func (u *UART) DeliverRx(b uint8) {
	u.rxData = b
	u.rxFull = true
}

// TxEmpty reports the TBE interrupt source's condition.
func (u *UART) TxEmpty() bool { return u.txEmpty }

// RxFull reports the RBF interrupt source's condition.
func (u *UART) RxFull() bool { return u.rxFull }
