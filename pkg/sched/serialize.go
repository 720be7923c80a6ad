package sched

import (
	"encoding/binary"
	"errors"
)

// schedSerializeVersion is incremented whenever the binary layout changes.
const schedSerializeVersion = 1

// schedSerializeSize is the number of bytes produced by Serialize,
// matching pkg/cia/serialize.go's convention. Handlers are function
// values and are not part of the snapshot; the owning core re-installs
// them (via SetHandler) immediately after Deserialize.
const schedSerializeSize = 1 + 8 + int(slotCount)*(8+8+8)

// SnapshotSize implements pkg/snapshot.Component.
func (s *Scheduler) SnapshotSize() int {
	return schedSerializeSize
}

// Serialize writes the master cycle counter and every slot's pending
// trigger/id/data into buf.
func (s *Scheduler) Serialize(buf []byte) error {
	if len(buf) < schedSerializeSize {
		return errors.New("sched: serialize buffer too small")
	}
	be := binary.BigEndian
	buf[0] = schedSerializeVersion
	off := 1

	be.PutUint64(buf[off:], s.cycle)
	off += 8

	for i := 0; i < int(slotCount); i++ {
		be.PutUint64(buf[off:], s.trigger[i])
		off += 8
		be.PutUint64(buf[off:], uint64(s.id[i]))
		off += 8
		be.PutUint64(buf[off:], s.data[i])
		off += 8
	}
	return nil
}

// Deserialize restores the cycle counter and every slot's pending
// trigger/id/data from buf. Handlers already installed on the receiver
// are left untouched.
func (s *Scheduler) Deserialize(buf []byte) error {
	if len(buf) < schedSerializeSize {
		return errors.New("sched: deserialize buffer too small")
	}
	if buf[0] != schedSerializeVersion {
		return errors.New("sched: unsupported snapshot version")
	}
	be := binary.BigEndian
	off := 1

	s.cycle = be.Uint64(buf[off:])
	off += 8

	for i := 0; i < int(slotCount); i++ {
		s.trigger[i] = be.Uint64(buf[off:])
		off += 8
		s.id[i] = EventID(be.Uint64(buf[off:]))
		off += 8
		s.data[i] = be.Uint64(buf[off:])
		off += 8
	}
	return nil
}
