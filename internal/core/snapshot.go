package core

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/m68k"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/snapshot"
)

// coreRegsSize is the byte size of the custom-register latches that
// belong to the core itself rather than to any one wired-in package
// (DMACON, ADKCON, POTGO, SERPER, and the CIA-B step-edge latch).
const coreRegsSize = 1 + 2 + 2 + 2 + 2 + 1

// SnapshotSize implements pkg/snapshot.Component.
func (c *Core) SnapshotSize() int {
	return coreRegsSize
}

// Serialize writes the custom-register latches this package owns
// directly (not delegated to any wired-in component) into buf.
func (c *Core) Serialize(buf []byte) error {
	if len(buf) < coreRegsSize {
		return errors.New("core: serialize buffer too small")
	}
	be := binary.BigEndian
	buf[0] = 1
	off := 1
	be.PutUint16(buf[off:], c.dmacon)
	be.PutUint16(buf[off+2:], c.adkcon)
	be.PutUint16(buf[off+4:], c.potgo)
	be.PutUint16(buf[off+6:], c.uartPeriod)
	off += 8
	if c.prevStepAsserted {
		buf[off] = 1
	} else {
		buf[off] = 0
	}
	return nil
}

// Deserialize restores the custom-register latches this package owns
// directly from buf, then reapplies their side effects onto the
// components they drive (audio DMA enables, disk sync mode).
func (c *Core) Deserialize(buf []byte) error {
	if len(buf) < coreRegsSize {
		return errors.New("core: deserialize buffer too small")
	}
	be := binary.BigEndian
	off := 1
	dmacon := be.Uint16(buf[off:])
	adkcon := be.Uint16(buf[off+2:])
	c.potgo = be.Uint16(buf[off+4:])
	c.uartPeriod = be.Uint16(buf[off+6:])
	off += 8
	c.prevStepAsserted = buf[off] != 0

	c.dmacon, c.adkcon = 0, 0
	c.writeDmacon(0x8000 | dmacon)
	c.writeAdkcon(0x8000 | adkcon)
	return nil
}

// cpuComponent adapts *m68k.CPU to pkg/snapshot.Component: the CPU
// package exposes its serialized size as a package-level SerializeSize
// constant rather than a method, since it has only ever had one
// serializable shape.
type cpuComponent struct {
	*m68k.CPU
}

func (cpuComponent) SnapshotSize() int {
	return m68k.SerializeSize
}

// components returns every serializable piece of core state, in the
// fixed order the snapshot format requires.
func (c *Core) components() []snapshot.Component {
	return []snapshot.Component{
		cpuComponent{c.cpu},
		c.ciaA,
		c.ciaB,
		c.sched,
		c.adi,
		c.disk,
		c.df0,
		c.rtc,
		c,
	}
}

// Save writes a full snapshot of the core to w. includeRoms controls
// whether the Kickstart ROM's raw bytes are embedded, per spec.md's
// "save ROMs" flag.
func (c *Core) Save(w io.Writer, includeRoms bool) error {
	mem := snapshot.Memory{Chip: c.chipRAM.Raw()}
	if c.slowRAM != nil {
		mem.Slow = c.slowRAM.Raw()
	}
	if c.fastRAM != nil {
		mem.Fast = c.fastRAM.Raw()
	}
	if includeRoms {
		mem.Rom = c.rom.Raw()
	}
	return snapshot.Save(w, c.components(), mem, snapshot.Options{SaveRoms: includeRoms})
}

// Load restores the core's full state from r, previously written by
// Save. The ROM section is only applied if it was saved with
// includeRoms; otherwise the core's existing Kickstart image is left
// untouched.
func (c *Core) Load(r io.Reader) error {
	mem := snapshot.Memory{Chip: c.chipRAM.Raw()}
	if c.slowRAM != nil {
		mem.Slow = c.slowRAM.Raw()
	}
	if c.fastRAM != nil {
		mem.Fast = c.fastRAM.Raw()
	}
	mem.Rom = c.rom.Raw()

	if err := snapshot.Load(r, c.components(), mem); err != nil {
		return err
	}

	// Re-establish callbacks and derived state the components
	// themselves don't own: the CIA port callbacks, the ADI
	// change-notification hook, and the overlay/select wiring they drive.
	c.adi.OnChange(c.recomputeIRQ)
	c.ciaA.SetPACallback(c.onCIAAPortA)
	c.ciaB.SetPBCallback(c.onCIABPortB)
	c.mem.SetOverlay(c.ciaA.PA()&paBitOverlay != 0)
	c.recomputeIRQ()

	return nil
}
