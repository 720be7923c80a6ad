package disk

import (
	"encoding/binary"
	"errors"
)

// diskSerializeVersion is incremented whenever the binary layout changes.
const diskSerializeVersion = 2

// diskSerializeSize is the number of bytes produced by Serialize.
const diskSerializeSize = 1 + 4 + 2 + 2 + 4 + 1 + 1 + 2 + 4 + 4 + 1 + 1 + fifoMaxBytes + 4 + 4 + 4

// SnapshotSize implements pkg/snapshot.Component.
func (c *Controller) SnapshotSize() int {
	return diskSerializeSize
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Serialize writes the controller's FSM state, registers, shift
// register, and FIFO into buf. The scheduler slot, IRQRaiser, and
// attached Drive are not included; the owning core re-wires them after
// Deserialize.
func (c *Controller) Serialize(buf []byte) error {
	if len(buf) < diskSerializeSize {
		return errors.New("disk: serialize buffer too small")
	}
	be := binary.BigEndian
	buf[0] = diskSerializeVersion
	off := 1

	be.PutUint32(buf[off:], uint32(int32(c.state)))
	off += 4

	be.PutUint16(buf[off:], c.dsklen)
	be.PutUint16(buf[off+2:], c.dsksync)
	off += 4
	be.PutUint32(buf[off:], c.dskpt)
	off += 4

	buf[off] = c.prb
	buf[off+1] = b2u8(c.armedOnce)
	off += 2

	be.PutUint16(buf[off:], c.shiftReg)
	off += 2
	be.PutUint32(buf[off:], uint32(int32(c.shiftBits)))
	off += 4
	be.PutUint32(buf[off:], uint32(int32(c.syncCounter)))
	off += 4

	buf[off] = b2u8(c.autoSync)
	buf[off+1] = b2u8(c.wordSyncMode)
	off += 2

	copy(buf[off:], c.fifo[:])
	off += len(c.fifo)

	be.PutUint32(buf[off:], uint32(int32(c.fifoCount)))
	off += 4
	be.PutUint32(buf[off:], uint32(int32(c.fifoHead)))
	off += 4
	be.PutUint32(buf[off:], uint32(int32(c.speed)))
	off += 4

	return nil
}

// Deserialize restores the controller's FSM state, registers, shift
// register, and FIFO from buf.
func (c *Controller) Deserialize(buf []byte) error {
	if len(buf) < diskSerializeSize {
		return errors.New("disk: deserialize buffer too small")
	}
	if buf[0] != diskSerializeVersion {
		return errors.New("disk: unsupported snapshot version")
	}
	be := binary.BigEndian
	off := 1

	c.state = State(int32(be.Uint32(buf[off:])))
	off += 4

	c.dsklen = be.Uint16(buf[off:])
	c.dsksync = be.Uint16(buf[off+2:])
	off += 4
	c.dskpt = be.Uint32(buf[off:])
	off += 4

	c.prb = buf[off]
	c.armedOnce = buf[off+1] != 0
	off += 2

	c.shiftReg = be.Uint16(buf[off:])
	off += 2
	c.shiftBits = int(int32(be.Uint32(buf[off:])))
	off += 4
	c.syncCounter = int(int32(be.Uint32(buf[off:])))
	off += 4

	c.autoSync = buf[off] != 0
	c.wordSyncMode = buf[off+1] != 0
	off += 2

	copy(c.fifo[:], buf[off:off+len(c.fifo)])
	off += len(c.fifo)

	c.fifoCount = int(int32(be.Uint32(buf[off:])))
	off += 4
	c.fifoHead = int(int32(be.Uint32(buf[off:])))
	off += 4
	c.speed = int(int32(be.Uint32(buf[off:])))
	off += 4

	return nil
}
