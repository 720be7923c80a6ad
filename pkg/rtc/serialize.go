package rtc

import (
	"encoding/binary"
	"errors"
)

// rtcSerializeVersion is incremented whenever the binary layout changes.
const rtcSerializeVersion = 1

// rtcSerializeSize is the number of bytes produced by Serialize.
const rtcSerializeSize = 1 + 4 + 4*7 + 6 + 1 + 1 + 4

// SnapshotSize implements pkg/snapshot.Component.
func (c *Chip) SnapshotSize() int {
	return rtcSerializeSize
}

// Serialize writes the clock's calendar fields and alarm bank into buf.
// model is included so a snapshot taken on a machine with no RTC fitted
// restores to the same unfitted state.
func (c *Chip) Serialize(buf []byte) error {
	if len(buf) < rtcSerializeSize {
		return errors.New("rtc: serialize buffer too small")
	}
	be := binary.BigEndian
	buf[0] = rtcSerializeVersion
	off := 1

	be.PutUint32(buf[off:], uint32(int32(c.model)))
	off += 4

	for _, v := range []int{c.seconds, c.minutes, c.hours, c.day, c.month, c.year, c.weekday} {
		be.PutUint32(buf[off:], uint32(int32(v)))
		off += 4
	}

	copy(buf[off:], c.bank1[:])
	off += len(c.bank1)

	buf[off] = c.modeA
	buf[off+1] = c.modeB
	off += 2

	be.PutUint32(buf[off:], uint32(int32(c.accum)))
	off += 4

	return nil
}

// Deserialize restores the clock's calendar fields and alarm bank from buf.
func (c *Chip) Deserialize(buf []byte) error {
	if len(buf) < rtcSerializeSize {
		return errors.New("rtc: deserialize buffer too small")
	}
	if buf[0] != rtcSerializeVersion {
		return errors.New("rtc: unsupported snapshot version")
	}
	be := binary.BigEndian
	off := 1

	c.model = Model(int32(be.Uint32(buf[off:])))
	off += 4

	fields := []*int{&c.seconds, &c.minutes, &c.hours, &c.day, &c.month, &c.year, &c.weekday}
	for _, f := range fields {
		*f = int(int32(be.Uint32(buf[off:])))
		off += 4
	}

	copy(c.bank1[:], buf[off:off+len(c.bank1)])
	off += len(c.bank1)

	c.modeA = buf[off]
	c.modeB = buf[off+1]
	off += 2

	c.accum = int(int32(be.Uint32(buf[off:])))
	off += 4

	return nil
}
