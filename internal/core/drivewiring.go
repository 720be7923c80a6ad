package core

// Timer-chip-A port-A bit assignments, grounded on
// original_source/Emulator/Components/CIA/CIA.cpp's PA wiring diagram
// (OVL<-PA0, /LED<-PA1, /CHNG->PA2, /WPRO->PA3, /TK0->PA4, /RDY->PA5).
// The power LED isn't modeled; write-protect isn't modeled (every
// inserted disk reads back as not write-protected) — both documented
// simplifications, neither excluded by any Non-goal.
const (
	paBitOverlay = 1 << 0
)

// refreshDiskStatus pushes the floppy sensor lines read off timer-chip
// A's port A: disk-change, track-0, and ready, each active low on real
// hardware. Polled once per vertical blank rather than recomputed on
// every register read, since nothing in this core changes drive
// mechanics faster than a frame and pkg/drive has no change-notify hook
// the way pkg/cia and pkg/adi do.
func (c *Core) refreshDiskStatus() {
	c.ciaA.SetExternalPA(2, !c.df0.DiskChanged())
	c.ciaA.SetExternalPA(3, true)
	c.ciaA.SetExternalPA(4, c.df0.Cylinder() != 0)
	ready := c.df0.HasDisk() && c.df0.Speed() == 100
	c.ciaA.SetExternalPA(5, !ready)
}

// onCIAAPortA drives the ROM overlay bit from timer-chip A's port A
// whenever a write changes it, per spec.md's "the timer-chip-A
// parallel-port bit 0, when high, maps ROM at address zero" overlay
// rule.
func (c *Core) onCIAAPortA(pa uint8) {
	c.mem.SetOverlay(pa&paBitOverlay != 0)
}

// Timer-chip-B port-B bit assignments. spec.md redefines the
// drive-select field to occupy the low four bits (inverted, highest-
// numbered selected drive wins) rather than real hardware's bits 3-6;
// this core only models one drive (df0), so "highest selected" reduces
// to "is bit 0 of the inverted mask set". The upper four bits carry
// step/direction/side/motor in real hardware's relative order: step,
// direction and side move up to bits 4-6 above the select field (real
// hardware has them on bits 0-2), and motor stays on the top bit as on
// real Amiga CIA-B wiring.
const (
	pbBitStep  = 1 << 4 // /STEP, falling edge moves the head one cylinder
	pbBitDir   = 1 << 5 // DIR: clear steps toward cylinder 0
	pbBitSide  = 1 << 6 // SIDE: set selects the upper head
	pbBitMotor = 1 << 7 // /MTR, active low
	pbSelMask  = 0x0F   // inverted low nibble: bit N set selects drive N
)

// onCIABPortB decodes timer-chip B's port B into df0's motor, step,
// direction, and side inputs whenever a write changes it.
func (c *Core) onCIABPortB(pb uint8) {
	selected := (^pb)&pbSelMask&0x01 != 0

	if selected {
		c.df0.SetMotor(pb&pbBitMotor == 0)

		side := 0
		if pb&pbBitSide != 0 {
			side = 1
		}
		c.df0.SetSide(side)
	}

	stepAsserted := pb&pbBitStep == 0
	if selected && stepAsserted && !c.prevStepAsserted {
		dir := 1
		if pb&pbBitDir == 0 {
			dir = -1
		}
		c.df0.Step(dir)
	}
	c.prevStepAsserted = stepAsserted
}
