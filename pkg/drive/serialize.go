package drive

import (
	"encoding/binary"
	"errors"
)

// driveSerializeVersion is incremented whenever the binary layout changes.
const driveSerializeVersion = 1

// driveSerializeSize is the number of bytes produced by Serialize. The
// inserted disk image itself is not part of the snapshot -- spec.md's
// round-trip law covers registers, RAM, and the scheduler queue, not
// media content, so the owning core re-inserts whatever disk image was
// attached before restoring the rest of the mechanism's state.
const driveSerializeSize = 1 + 4 + 4 + 4 + 1 + 8 + 8 + 8 + 1 + 1 + historyDepth*4 + 4 + 1 + 1 + 1 + 1

// SnapshotSize implements pkg/snapshot.Component.
func (m *Mechanism) SnapshotSize() int {
	return driveSerializeSize
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Serialize writes the head position, motor, timing, and disk-change
// state into buf. The attached Disk image and GPIO pin wiring are not
// included; the owning core re-attaches both after Deserialize.
func (m *Mechanism) Serialize(buf []byte) error {
	if len(buf) < driveSerializeSize {
		return errors.New("drive: serialize buffer too small")
	}
	be := binary.BigEndian
	buf[0] = driveSerializeVersion
	off := 1

	be.PutUint32(buf[off:], uint32(int32(m.cylinder)))
	be.PutUint32(buf[off+4:], uint32(int32(m.side)))
	be.PutUint32(buf[off+8:], uint32(int32(m.offset)))
	off += 12

	buf[off] = b2u8(m.motorOn)
	off++
	be.PutUint64(buf[off:], m.motorSwitchAt)
	off += 8

	be.PutUint64(buf[off:], m.lastStepUp)
	be.PutUint64(buf[off+8:], m.lastStepDown)
	off += 16
	buf[off] = b2u8(m.steppedUp)
	buf[off+1] = b2u8(m.steppedDown)
	off += 2

	for i := 0; i < historyDepth; i++ {
		be.PutUint32(buf[off:], uint32(int32(m.history[i])))
		off += 4
	}
	be.PutUint32(buf[off:], uint32(int32(m.historyLen)))
	off += 4
	buf[off] = b2u8(m.polling)
	off++

	buf[off] = b2u8(m.diskChange)
	buf[off+1] = b2u8(m.pendingChangeArm)
	buf[off+2] = b2u8(m.disk != nil)
	off += 3

	return nil
}

// Deserialize restores the head position, motor, timing, and
// disk-change state from buf.
func (m *Mechanism) Deserialize(buf []byte) error {
	if len(buf) < driveSerializeSize {
		return errors.New("drive: deserialize buffer too small")
	}
	if buf[0] != driveSerializeVersion {
		return errors.New("drive: unsupported snapshot version")
	}
	be := binary.BigEndian
	off := 1

	m.cylinder = int(int32(be.Uint32(buf[off:])))
	m.side = int(int32(be.Uint32(buf[off+4:])))
	m.offset = int(int32(be.Uint32(buf[off+8:])))
	off += 12

	m.motorOn = buf[off] != 0
	off++
	m.motorSwitchAt = be.Uint64(buf[off:])
	off += 8

	m.lastStepUp = be.Uint64(buf[off:])
	m.lastStepDown = be.Uint64(buf[off+8:])
	off += 16
	m.steppedUp = buf[off] != 0
	m.steppedDown = buf[off+1] != 0
	off += 2

	for i := 0; i < historyDepth; i++ {
		m.history[i] = int(int32(be.Uint32(buf[off:])))
		off += 4
	}
	m.historyLen = int(int32(be.Uint32(buf[off:])))
	off += 4
	m.polling = buf[off] != 0
	off++

	m.diskChange = buf[off] != 0
	m.pendingChangeArm = buf[off+1] != 0
	// buf[off+2] (disk-present flag) is informational only; the owning
	// core is responsible for having already re-inserted the same media.
	off += 3

	return nil
}
