// Package adi implements the Audio/Disk/Interrupt unit: the interrupt
// latch and enable mask with their six-level priority encoder, the four
// audio-channel DMA state machines, the UART, and the paddle/pot
// counters. The disk controller itself lives in pkg/disk; this package
// only owns the interrupt plumbing it shares with ADI.
package adi

import (
	"errors"

	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/sched"
)

// ErrNotImplemented is returned by the deferred-IRQ scheduling path
// (ApplyDeferred with a non-zero trigger cycle), which the reference
// design never actually exercises — every caller in this core passes
// trigger cycle 0 and goes through the immediate path instead.
var ErrNotImplemented = errors.New("adi: deferred interrupt scheduling not implemented")

// Source identifies one of the 15 interrupt sources (bit 0..14 of the
// request/enable registers). Bit 15 in a written value is the set/clear
// direction flag, not a source.
type Source uint16

const (
	SrcTbe   Source = 1 << 0 // serial transmit buffer empty
	SrcDskBlk Source = 1 << 1 // disk DMA block done
	SrcSoft  Source = 1 << 2 // software interrupt
	SrcPort  Source = 1 << 3 // CIA-A interrupt (inverted pin at bit 3)
	SrcCopCop Source = 1 << 4
	SrcVerTB Source = 1 << 5 // vertical blank
	SrcBlit  Source = 1 << 6
	SrcAud0  Source = 1 << 7
	SrcAud1  Source = 1 << 8
	SrcAud2  Source = 1 << 9
	SrcAud3  Source = 1 << 10
	SrcRbf   Source = 1 << 11 // serial receive buffer full
	SrcDskSyn Source = 1 << 12 // disk sync match
	SrcExtern Source = 1 << 13 // CIA-B interrupt (inverted pin at bit 13)
	SrcNMI   Source = 1 << 14
)

// priorityGroups scans in descending priority; the first non-empty group
// determines interruptLevel() (6..1). Groups match the reference chip's
// documented grouping of sources onto the six IPL lines.
var priorityGroups = [6]Source{
	SrcExtern,                                   // level 6
	SrcRbf | SrcDskSyn | SrcTbe,                 // level 5
	SrcAud0 | SrcAud1 | SrcAud2 | SrcAud3,        // level 4
	SrcCopCop | SrcBlit | SrcVerTB | SrcDskBlk,   // level 3
	SrcPort,                                     // level 2
	SrcSoft,                                     // level 1
}

const sourceMask = 0x7FFF

// Unit holds the interrupt latch/enable state and drives the audio DMA
// and paddle/pot sub-state-machines.
type Unit struct {
	request Source
	enable  Source

	sched *sched.Scheduler

	audio [4]AudioChannel
	uart  UART
	pots  [4]PotCounter

	// pendingTrigger[src-bit] holds a deferred trigger cycle, indexed by
	// bit position (0-14). Never populated by this core's own code paths;
	// present only to give ApplyDeferred somewhere real to write.
	pendingTrigger [15]uint64
	pendingValue   [15]bool

	onChange func() // notified after request/enable changes; may be nil
}

// OnChange installs a callback invoked after every write to the request
// or enable registers (immediate or deferred). The owning core uses this
// to recompute the CPU's interrupt priority level and push it to the bus
// adapter without this package needing to know about cpubus.
func (u *Unit) OnChange(fn func()) {
	u.onChange = fn
}

func (u *Unit) notify() {
	if u.onChange != nil {
		u.onChange()
	}
}

// New creates an ADI unit with the interrupt latch cleared and global
// interrupts disabled.
func New(s *sched.Scheduler) *Unit {
	u := &Unit{sched: s}
	s.SetHandler(sched.SlotIrq, u.onIrqCheck)
	return u
}

// globalEnableBit is bit 14 of the enable register read back through
// interruptLevel()'s step 1 ("global-enable bit"); modeled here as enable
// bit 15 being reserved for the set/clear convention and bit 14 (SrcNMI
// slot) repurposed as the master enable per the reference chip's INTENA
// layout, where bit 14 set means "interrupts enabled".
const globalEnableBit = SrcNMI

// SetRequest applies a set/clear write to the request register: bit 15 of
// raw is the direction, the low 15 bits select affected sources.
func (u *Unit) SetRequest(raw uint16) {
	u.request = applySetClear(u.request, raw)
	u.notify()
}

// SetEnable applies a set/clear write to the enable register.
func (u *Unit) SetEnable(raw uint16) {
	u.enable = applySetClear(u.enable, raw)
	u.notify()
}

func applySetClear(cur Source, raw uint16) Source {
	mask := Source(raw) & sourceMask
	if raw&0x8000 != 0 {
		return cur | mask
	}
	return cur &^ mask
}

// Request returns the current request (interrupt latch) register.
func (u *Unit) Request() Source { return u.request }

// Enable returns the current enable mask register.
func (u *Unit) Enable() Source { return u.enable }

// Audio returns the ch'th (0-3) audio-channel DMA state machine, for the
// owning core to wire to the AUDxLEN/AUDxPER/AUDxVOL/AUDxDAT custom
// registers and the DMACON per-channel enable bits.
func (u *Unit) Audio(ch int) *AudioChannel { return &u.audio[ch] }

// Uart returns the serial port's byte-level latches, for the owning core
// to wire to SERDAT/SERPER and the TBE/RBF interrupt sources.
func (u *Unit) Uart() *UART { return &u.uart }

// Pot returns the ch'th (0-3) paddle/pot counter, for the owning core to
// wire to POTGO and POT0DAT/POT1DAT.
func (u *Unit) Pot(ch int) *PotCounter { return &u.pots[ch] }

// RaiseImmediate sets src in the request latch with trigger cycle 0 (the
// immediate path — the only one this core exercises).
func (u *Unit) RaiseImmediate(src Source) {
	u.request |= src
	u.sched.ScheduleRel(sched.SlotIrq, 0, sched.EventID(0), 0)
	u.notify()
}

// ClearImmediate clears src from the request latch immediately.
func (u *Unit) ClearImmediate(src Source) {
	u.request &^= src
	u.notify()
}

// ApplyDeferred schedules a change to source bit (0-14) to take effect at
// the given absolute trigger cycle. A trigger of 0 applies immediately;
// any other value would defer into the dedicated IRQ-check slot and is
// not implemented, since nothing in this core ever calls it that way.
func (u *Unit) ApplyDeferred(bit int, set bool, trigger uint64) error {
	if trigger == 0 {
		if set {
			u.request |= 1 << uint(bit)
		} else {
			u.request &^= 1 << uint(bit)
		}
		u.notify()
		return nil
	}
	return ErrNotImplemented
}

// onIrqCheck services the dedicated IRQ-check slot: walks the 15 sources
// and applies any whose deferred trigger cycle has been reached. Present
// for completeness of the slot contract; pendingValue/pendingTrigger are
// never populated by RaiseImmediate/ClearImmediate, so in practice this
// loop finds nothing to do and the handler is a no-op.
func (u *Unit) onIrqCheck(cycle uint64, id sched.EventID, data uint64) {
	for bit := 0; bit < 15; bit++ {
		if u.pendingTrigger[bit] != 0 && u.pendingTrigger[bit] <= cycle {
			if u.pendingValue[bit] {
				u.request |= 1 << uint(bit)
			} else {
				u.request &^= 1 << uint(bit)
			}
			u.pendingTrigger[bit] = 0
		}
	}
}

// InterruptLevel computes the CPU interrupt priority level (0-6) per the
// reference encoder: global-enable gate, OR in the two inverted CIA
// interrupt pins, AND with the enable mask, then scan priority groups.
func (u *Unit) InterruptLevel(ciaAIrqPin, ciaBIrqPin bool) int {
	if u.enable&globalEnableBit == 0 {
		return 0
	}

	pending := u.request
	if !ciaAIrqPin {
		pending |= SrcPort
	}
	if !ciaBIrqPin {
		pending |= SrcExtern
	}
	pending &= u.enable

	for i, group := range priorityGroups {
		if pending&group != 0 {
			return 6 - i
		}
	}
	return 0
}
