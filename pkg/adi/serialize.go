package adi

import (
	"encoding/binary"
	"errors"
)

// adiSerializeVersion is incremented whenever the binary layout changes.
const adiSerializeVersion = 1

const audioChanSize = 4 + 2 + 1 + 2 + 2 + 2 + 4 + 4
const uartSize = 1 + 1 + 1 + 1 + 1
const potSize = 1 + 1 + 4 + 1

// adiSerializeSize is the number of bytes produced by Serialize. The
// deferred-trigger arrays are never populated by this core (see
// ErrNotImplemented) and are left out of the snapshot.
const adiSerializeSize = 1 + 2 + 2 + 4*audioChanSize + uartSize + 4*potSize

// SnapshotSize implements pkg/snapshot.Component.
func (u *Unit) SnapshotSize() int {
	return adiSerializeSize
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Serialize writes the interrupt latch/enable registers and every
// audio/UART/pot sub-state-machine into buf. The scheduler reference
// and onChange callback are not included; the owning core re-installs
// the callback after Deserialize.
func (u *Unit) Serialize(buf []byte) error {
	if len(buf) < adiSerializeSize {
		return errors.New("adi: serialize buffer too small")
	}
	be := binary.BigEndian
	buf[0] = adiSerializeVersion
	off := 1

	be.PutUint16(buf[off:], uint16(u.request))
	be.PutUint16(buf[off+2:], uint16(u.enable))
	off += 4

	for i := range u.audio {
		a := &u.audio[i]
		be.PutUint32(buf[off:], uint32(int32(a.state)))
		off += 4
		be.PutUint16(buf[off:], a.period)
		off += 2
		buf[off] = a.volume
		off++
		be.PutUint16(buf[off:], a.len)
		off += 2
		be.PutUint16(buf[off:], a.buf[0])
		be.PutUint16(buf[off+2:], a.buf[1])
		off += 4
		be.PutUint32(buf[off:], uint32(int32(a.bufCount)))
		off += 4
		be.PutUint32(buf[off:], uint32(int32(a.periodCt)))
		off += 4
	}

	u2 := &u.uart
	buf[off] = u2.txData
	buf[off+1] = b2u8(u2.txEmpty)
	buf[off+2] = u2.rxData
	buf[off+3] = b2u8(u2.rxFull)
	buf[off+4] = b2u8(u2.loopback)
	off += 5

	for i := range u.pots {
		p := &u.pots[i]
		buf[off] = p.value
		buf[off+1] = p.target
		off += 2
		be.PutUint32(buf[off:], uint32(int32(p.discharges)))
		off += 4
		buf[off] = b2u8(p.charging)
		off++
	}

	return nil
}

// Deserialize restores the interrupt latch/enable registers and every
// audio/UART/pot sub-state-machine from buf.
func (u *Unit) Deserialize(buf []byte) error {
	if len(buf) < adiSerializeSize {
		return errors.New("adi: deserialize buffer too small")
	}
	if buf[0] != adiSerializeVersion {
		return errors.New("adi: unsupported snapshot version")
	}
	be := binary.BigEndian
	off := 1

	u.request = Source(be.Uint16(buf[off:]))
	u.enable = Source(be.Uint16(buf[off+2:]))
	off += 4

	for i := range u.audio {
		a := &u.audio[i]
		a.state = AudioState(int32(be.Uint32(buf[off:])))
		off += 4
		a.period = be.Uint16(buf[off:])
		off += 2
		a.volume = buf[off]
		off++
		a.len = be.Uint16(buf[off:])
		off += 2
		a.buf[0] = be.Uint16(buf[off:])
		a.buf[1] = be.Uint16(buf[off+2:])
		off += 4
		a.bufCount = int(int32(be.Uint32(buf[off:])))
		off += 4
		a.periodCt = int(int32(be.Uint32(buf[off:])))
		off += 4
	}

	u2 := &u.uart
	u2.txData = buf[off]
	u2.txEmpty = buf[off+1] != 0
	u2.rxData = buf[off+2]
	u2.rxFull = buf[off+3] != 0
	u2.loopback = buf[off+4] != 0
	off += 5

	for i := range u.pots {
		p := &u.pots[i]
		p.value = buf[off]
		p.target = buf[off+1]
		off += 2
		p.discharges = int(int32(be.Uint32(buf[off:])))
		off += 4
		p.charging = buf[off] != 0
		off++
	}

	return nil
}
