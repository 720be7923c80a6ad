package cia

import (
	"encoding/binary"
	"errors"
)

// ciaSerializeVersion is incremented whenever the binary layout changes.
const ciaSerializeVersion = 1

// ciaSerializeSize is the number of bytes produced by Serialize. Update
// this constant whenever the binary layout changes, matching
// pkg/m68k/serialize.go's convention.
const ciaSerializeSize = 85

// SnapshotSize implements pkg/snapshot.Component.
func (c *CIA) SnapshotSize() int {
	return ciaSerializeSize
}

// Serialize writes the full chip state (registers, timers, the delay
// pipeline, and the bound TOD counter) into buf, which must be at least
// SnapshotSize() bytes. The scheduler slot and IRQRaiser are not
// included; the owning core re-registers them on Deserialize.
func (c *CIA) Serialize(buf []byte) error {
	if len(buf) < ciaSerializeSize {
		return errors.New("cia: serialize buffer too small")
	}
	be := binary.BigEndian
	buf[0] = ciaSerializeVersion
	off := 1

	buf[off] = c.pra
	buf[off+1] = c.ddra
	buf[off+2] = c.prb
	buf[off+3] = c.ddrb
	buf[off+4] = c.cra
	buf[off+5] = c.crb
	off += 6

	buf[off] = c.icr
	buf[off+1] = c.imr
	buf[off+2] = c.icrAck
	off += 3

	buf[off] = c.sdr
	buf[off+1] = c.ssr
	off += 2

	be.PutUint32(buf[off:], uint32(int32(c.serCounter)))
	off += 4

	be.PutUint16(buf[off:], c.counterA)
	be.PutUint16(buf[off+2:], c.latchA)
	be.PutUint16(buf[off+4:], c.counterB)
	be.PutUint16(buf[off+6:], c.latchB)
	off += 8

	buf[off] = b2u8(c.cnt)
	buf[off+1] = b2u8(c.sp)
	buf[off+2] = c.lastPA
	off += 3

	be.PutUint64(buf[off:], c.delay)
	be.PutUint64(buf[off+8:], c.feed)
	off += 16

	buf[off] = c.pb67TimerOut
	buf[off+1] = c.pb67Toggle
	buf[off+2] = c.pb67TimerMode
	off += 3

	buf[off] = c.externalPA
	buf[off+1] = c.externalPB
	off += 2

	be.PutUint64(buf[off:], c.lastTick)
	off += 8

	be.PutUint32(buf[off:], uint32(int32(c.tiredness)))
	off += 4

	buf[off] = b2u8(c.sleeping)
	off++

	off = c.tod.serialize(buf, off)
	return nil
}

// Deserialize restores chip state from buf, which must be at least
// SnapshotSize() bytes.
func (c *CIA) Deserialize(buf []byte) error {
	if len(buf) < ciaSerializeSize {
		return errors.New("cia: deserialize buffer too small")
	}
	if buf[0] != ciaSerializeVersion {
		return errors.New("cia: unsupported serialize version")
	}
	be := binary.BigEndian
	off := 1

	c.pra = buf[off]
	c.ddra = buf[off+1]
	c.prb = buf[off+2]
	c.ddrb = buf[off+3]
	c.cra = buf[off+4]
	c.crb = buf[off+5]
	off += 6

	c.icr = buf[off]
	c.imr = buf[off+1]
	c.icrAck = buf[off+2]
	off += 3

	c.sdr = buf[off]
	c.ssr = buf[off+1]
	off += 2

	c.serCounter = int(int32(be.Uint32(buf[off:])))
	off += 4

	c.counterA = be.Uint16(buf[off:])
	c.latchA = be.Uint16(buf[off+2:])
	c.counterB = be.Uint16(buf[off+4:])
	c.latchB = be.Uint16(buf[off+6:])
	off += 8

	c.cnt = buf[off] != 0
	c.sp = buf[off+1] != 0
	c.lastPA = buf[off+2]
	off += 3

	c.delay = be.Uint64(buf[off:])
	c.feed = be.Uint64(buf[off+8:])
	off += 16

	c.pb67TimerOut = buf[off]
	c.pb67Toggle = buf[off+1]
	c.pb67TimerMode = buf[off+2]
	off += 3

	c.externalPA = buf[off]
	c.externalPB = buf[off+1]
	off += 2

	c.lastTick = be.Uint64(buf[off:])
	off += 8

	c.tiredness = int(int32(be.Uint32(buf[off:])))
	off += 4

	c.sleeping = buf[off] != 0
	off++

	c.tod.deserialize(buf, off)
	return nil
}

// todSerializeSize is the number of bytes tod.serialize writes, folded
// into ciaSerializeSize above.
const todSerializeSize = 24

func (t *TOD) serialize(buf []byte, off int) int {
	be := binary.BigEndian
	buf[off] = t.tenths
	buf[off+1] = t.seconds
	buf[off+2] = t.minutes
	buf[off+3] = t.hours
	off += 4

	buf[off] = t.alarmTenths
	buf[off+1] = t.alarmSeconds
	buf[off+2] = t.alarmMinutes
	buf[off+3] = t.alarmHours
	off += 4

	buf[off] = b2u8(t.latched)
	off++

	buf[off] = t.latchTenths
	buf[off+1] = t.latchSeconds
	buf[off+2] = t.latchMinutes
	buf[off+3] = t.latchHours
	off += 4

	buf[off] = b2u8(t.stopped)
	buf[off+1] = b2u8(t.writeMode)
	off += 2

	be.PutUint64(buf[off:], t.tickAccum)
	off += 8

	buf[off] = b2u8(t.todBug)
	off++

	return off
}

func (t *TOD) deserialize(buf []byte, off int) int {
	be := binary.BigEndian
	t.tenths = buf[off]
	t.seconds = buf[off+1]
	t.minutes = buf[off+2]
	t.hours = buf[off+3]
	off += 4

	t.alarmTenths = buf[off]
	t.alarmSeconds = buf[off+1]
	t.alarmMinutes = buf[off+2]
	t.alarmHours = buf[off+3]
	off += 4

	t.latched = buf[off] != 0
	off++

	t.latchTenths = buf[off]
	t.latchSeconds = buf[off+1]
	t.latchMinutes = buf[off+2]
	t.latchHours = buf[off+3]
	off += 4

	t.stopped = buf[off] != 0
	t.writeMode = buf[off+1] != 0
	off += 2

	t.tickAccum = be.Uint64(buf[off:])
	off += 8

	t.todBug = buf[off] != 0
	off++

	return off
}
