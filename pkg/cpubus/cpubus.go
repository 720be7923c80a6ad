// Package cpubus implements the CPU Bus Adapter: it arbitrates CPU memory
// accesses against DMA slots, paces cycles to the master clock, and
// drives the interrupt-priority-level signal into the 68000 core. It is
// the only component that advances the scheduler mid-access, mirroring
// how the 68000 core's own bus accessors are its sole mutation points.
package cpubus

import (
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/dmabus"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/m68k"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/mem"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/sched"
)

// eClockPeriod is the E-clock divider: CIA and RTC accesses are paced to
// this phase of the master clock.
const eClockPeriod = 10

// ipDelay is the fixed latency between the ADI computing a new interrupt
// priority level and that level reaching the CPU core.
const ipDelay = 4

// Bus wires a memory resolver and a DMA arbiter to the scheduler and
// exposes the m68k.CycleBus interface the CPU core expects.
type Bus struct {
	mem   *mem.Resolver
	sched *sched.Scheduler
	arb   *dmabus.Arbiter
	cpu   *m68k.CPU

	microsPerCycle int // overclock factor: CPU micro-cycles per DMA cycle
	debt           int
}

// New creates a CPU Bus Adapter. microsPerCycle of 1 models stock timing;
// values above 1 model an overclocked 68000 running faster than the
// chipset's DMA cycle.
func New(resolver *mem.Resolver, scheduler *sched.Scheduler, arb *dmabus.Arbiter, microsPerCycle int) *Bus {
	if microsPerCycle < 1 {
		microsPerCycle = 1
	}
	b := &Bus{mem: resolver, sched: scheduler, arb: arb, microsPerCycle: microsPerCycle}
	scheduler.SetHandler(sched.SlotIpl, b.onIplChange)
	return b
}

// AttachCPU wires the 68000 core this bus serves its interrupt signal to.
func (b *Bus) AttachCPU(cpu *m68k.CPU) {
	b.cpu = cpu
}

// RequestIplChange schedules a 4-DMA-cycle-delayed IplChange event
// carrying the new interrupt priority level. The level only reaches the
// CPU core when that event fires.
func (b *Bus) RequestIplChange(level uint8) {
	b.sched.ScheduleRel(sched.SlotIpl, ipDelay, sched.EventID(level), uint64(level))
}

func (b *Bus) onIplChange(cycle uint64, id sched.EventID, data uint64) {
	if b.cpu != nil {
		b.cpu.RequestInterrupt(uint8(data), nil)
	}
}

// FlushDebt discharges any accumulated overclocking debt by advancing the
// master clock one DMA cycle and servicing the DMA engine once, used when
// a hard sync point (e.g. a snapshot or a breakpoint) requires the master
// clock and the CPU's micro-cycle count to agree exactly.
func (b *Bus) FlushDebt() {
	if b.debt == 0 {
		return
	}
	b.debt = 0
	b.sched.ExecuteUntil(b.sched.Cycle() + 1)
}

// executeUntilBusFree advances the scheduler until the current DMA cycle
// is not allocated to a higher-priority consumer than the CPU.
func (b *Bus) executeUntilBusFree() {
	for !b.arb.BusFree(b.sched.Cycle(), dmabus.ChannelCPU) {
		b.sched.ExecuteUntil(b.sched.Cycle() + 1)
	}
}

// tickMicro accounts for one CPU micro-cycle against the overclock debt
// counter, advancing the master DMA clock whenever the debt rolls over.
func (b *Bus) tickMicro() {
	b.debt++
	if b.debt >= b.microsPerCycle {
		b.debt -= b.microsPerCycle
		b.sched.ExecuteUntil(b.sched.Cycle() + 1)
	}
}

// alignEClock pads the master clock forward to the next E-clock phase
// boundary, used for CIA and RTC accesses which run off the slow clock.
func (b *Bus) alignEClock() {
	cycle := b.sched.Cycle()
	if rem := cycle % eClockPeriod; rem != 0 {
		b.sched.ExecuteUntil(cycle + (eClockPeriod - rem))
	}
}

func (b *Bus) needsEClock(addr uint32) bool {
	switch b.mem.RegionAt(addr) {
	case mem.RegionCia, mem.RegionRtc:
		return true
	default:
		return false
	}
}

// Read implements m68k.Bus.
func (b *Bus) Read(op m68k.Size, addr uint32) uint32 {
	return b.ReadCycle(b.sched.Cycle(), op, addr)
}

// Write implements m68k.Bus.
func (b *Bus) Write(op m68k.Size, addr uint32, val uint32) {
	b.WriteCycle(b.sched.Cycle(), op, addr, val)
}

// Reset implements m68k.Bus. The CPU core owns its own register reset;
// the bus adapter has no per-reset state of its own beyond the debt
// counter, which is cleared here for symmetry.
func (b *Bus) Reset() {
	b.debt = 0
}

// ReadCycle implements m68k.CycleBus.
func (b *Bus) ReadCycle(cycle uint64, op m68k.Size, addr uint32) uint32 {
	b.tickMicro()
	b.executeUntilBusFree()
	if b.needsEClock(addr) {
		b.alignEClock()
	}
	switch op {
	case m68k.Byte:
		return uint32(b.mem.Peek8(addr))
	case m68k.Word:
		return uint32(b.mem.Peek16(addr))
	default:
		hi := b.mem.Peek16(addr)
		lo := b.mem.Peek16(addr + 2)
		return uint32(hi)<<16 | uint32(lo)
	}
}

// WriteCycle implements m68k.CycleBus.
func (b *Bus) WriteCycle(cycle uint64, op m68k.Size, addr uint32, val uint32) {
	b.tickMicro()
	b.executeUntilBusFree()
	if b.needsEClock(addr) {
		b.alignEClock()
	}
	switch op {
	case m68k.Byte:
		b.mem.Poke8(addr, uint8(val))
	case m68k.Word:
		b.mem.Poke16(addr, uint16(val))
	default:
		b.mem.Poke16(addr, uint16(val>>16))
		b.mem.Poke16(addr+2, uint16(val))
	}
}
