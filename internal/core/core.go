// Package core wires every chip-level package into one running Amiga
// core: the memory map, the interrupt/audio/disk/serial custom
// registers, both timer chips, the real-time clock, the floppy drive
// and its controller, the CPU bus adapter, and the 68000 itself.
package core

import (
	"errors"

	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/adi"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/cia"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/config"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/cpubus"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/disk"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/dmabus"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/drive"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/m68k"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/mem"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/remote"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/rtc"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/sched"
)

// ErrNoRom is returned by New when the supplied Kickstart image is empty.
var ErrNoRom = errors.New("core: no ROM image supplied")

// Real-world drive mechanical timing, in DMA cycles at the standard
// ~7.09MHz/cycle rate: a 3ms step pulse, an 18ms settle after reversing
// direction, and a roughly 500ms spin-up/spin-down ramp.
const (
	driveStepCycles    = 3 * 7093
	driveReverseCycles = 18 * 7093
	driveMotorStart    = 500 * 7093
	driveMotorStop     = 500 * 7093
)

// vblankPeriod is the number of DMA cycles between vertical blanks on a
// PAL-timed Amiga (312 lines * 227 cycles/line), the rate disk-status
// sensor bits are refreshed at.
const vblankPeriod = 312 * 227

// cpuLatch adapts a *m68k.CPU, not yet constructed when the memory map
// and CIA region handler are built, to the irdSource/rtc.LatchSource
// interfaces those need. The owning core fills in cpu once the 68000
// itself has been created.
type cpuLatch struct {
	cpu *m68k.CPU
}

func (l *cpuLatch) IR() uint16 {
	if l.cpu == nil {
		return 0
	}
	return l.cpu.IR()
}

// Core is one fully wired Amiga machine.
type Core struct {
	cfg config.Options

	sched *sched.Scheduler
	mem   *mem.Resolver
	arb   *dmabus.Arbiter
	bus   *cpubus.Bus
	cpu   *m68k.CPU

	adi  *adi.Unit
	ciaA *cia.CIA
	ciaB *cia.CIA
	rtc  *rtc.Chip

	df0    *drive.Mechanism
	disk   *disk.Controller
	custom *mem.CustomRegs

	chipRAM *mem.RamHandler
	slowRAM *mem.RamHandler
	fastRAM *mem.RamHandler
	rom     *mem.RomHandler

	remoteSrv *remote.Server

	dmacon, adkcon, potgo, uartPeriod uint16

	prevStepAsserted bool
	poweredOn        bool
}

// New builds a fully wired core from cfg and a Kickstart ROM image.
// The core starts powered off; call PowerOn to begin execution.
func New(cfg config.Options, romImage []byte) (*Core, error) {
	if len(romImage) == 0 {
		return nil, ErrNoRom
	}

	c := &Core{cfg: cfg}

	c.sched = sched.New()
	c.mem = mem.New()

	c.chipRAM = mem.NewRam(cfg.ChipRamKiB * 1024)
	if cfg.SlowRamKiB > 0 {
		c.slowRAM = mem.NewRam(cfg.SlowRamKiB * 1024)
	}
	if cfg.FastRamKiB > 0 {
		c.fastRAM = mem.NewRam(cfg.FastRamKiB * 1024)
	}
	c.rom = mem.NewRom(romImage, bankIsOld(cfg.BankMap))

	c.arb = dmabus.New()
	c.adi = adi.New(c.sched)

	c.ciaA = cia.New(c.sched, cia.InstanceA, sched.SlotCiaA, c.adi)
	c.ciaB = cia.New(c.sched, cia.InstanceB, sched.SlotCiaB, c.adi)

	c.rtc = rtc.New(rtcModelFor(cfg.BankMap))
	rtcHandler := rtc.NewHandler(c.rtc, c.mem)

	c.df0 = drive.New(c.sched, driveStepCycles, driveReverseCycles, driveMotorStart, driveMotorStop)
	c.disk = disk.New(c.sched, c.adi, c.df0, c.mem)
	c.disk.SetSpeed(cfg.DriveSpeed)
	c.disk.SetAutoSync(cfg.AutoDskSync)

	latch := &cpuLatch{}
	ciaHandler := newCIAHandler(c.ciaA, c.ciaB, latch)

	c.custom = mem.NewCustomRegs()

	buildMemoryMap(c.mem, cfg, c.chipRAM, c.slowRAM, c.fastRAM, c.rom, ciaHandler, rtcHandler, c.custom)
	c.bindCustomRegisters()

	c.bus = cpubus.New(c.mem, c.sched, c.arb, cfg.CPUOverclocking)
	c.mem.SetBusPacer(noopPacer{})

	c.cpu = m68k.New(c.bus)
	c.bus.AttachCPU(c.cpu)
	latch.cpu = c.cpu

	c.adi.OnChange(c.recomputeIRQ)
	c.ciaA.SetPACallback(c.onCIAAPortA)
	c.ciaB.SetPBCallback(c.onCIABPortB)

	c.sched.SetHandler(sched.SlotVbl, c.onVblank)
	c.sched.ScheduleRel(sched.SlotVbl, vblankPeriod, sched.EventID(0), 0)

	c.remoteSrv = remote.New()
	c.remoteSrv.Terminal = c
	c.remoteSrv.Gdb = c

	c.applyRamInit()
	c.refreshDiskStatus()

	return c, nil
}

// rtcModelFor decides whether a real-time clock is fitted. Grounded on
// real Amiga hardware: the A2000's expansion bus carries the clock
// battery-backed on the motherboard, while the A500 and A1000 ship
// without one (an A500 owner could add one on an expansion card, but
// no such card is modeled here). spec.md's config options have no
// explicit RTC-present knob, so this core derives it from BankMap.
func rtcModelFor(bm config.BankMap) rtc.Model {
	switch bm {
	case config.BankMapA2000A, config.BankMapA2000B:
		return rtc.ModelPresent
	default:
		return rtc.ModelNone
	}
}

// noopPacer is installed as the resolver's bus pacer: this core has no
// copper/blitter/bitplane DMA engine to advance before a chip/slow/
// custom access, so pacing is a no-op and every access runs at full
// CPU speed modulo the CPU Bus Adapter's own cycle accounting.
type noopPacer struct{}

func (noopPacer) AwaitBusFree() {}

// applyRamInit fills chip/slow/fast RAM with cfg.RamInitPattern's
// pattern, matching a freshly powered Amiga's uninitialized memory
// contents (never all-zero on real hardware, but zero is the simplest
// and most common emulator default).
func (c *Core) applyRamInit() {
	fill := func(h *mem.RamHandler) {
		if h == nil {
			return
		}
		buf := h.Raw()
		switch c.cfg.RamInitPattern {
		case config.RamInitOnes:
			for i := range buf {
				buf[i] = 0xFF
			}
		case config.RamInitRandom:
			seed := uint32(0x2545F491)
			for i := range buf {
				seed ^= seed << 13
				seed ^= seed >> 17
				seed ^= seed << 5
				buf[i] = byte(seed)
			}
		}
	}
	fill(c.chipRAM)
	fill(c.slowRAM)
	fill(c.fastRAM)
}

// recomputeIRQ recalculates the CPU's interrupt priority level after any
// change to the ADI request/enable registers and pushes it to the bus
// adapter. Both CIA pin arguments are passed as "not asserted", which in
// InterruptLevel's inverted /IRQ-pin convention is the electrically high
// (true) level: the CIA instances already raise/clear their SrcPort/
// SrcExtern bits in the ADI request latch directly on every /IRQ edge,
// so folding the live pin state in here a second time (by passing the
// asserted, false, level) would double-count it and latch those two
// bits permanently into pending.
func (c *Core) recomputeIRQ() {
	level := c.adi.InterruptLevel(true, true)
	c.bus.RequestIplChange(uint8(level))
}

// onVblank refreshes the disk-status sensor lines, pulses CIA-A's port A
// bit 1 input, raises the vertical-blank interrupt if it is not already
// pending, and reschedules itself. The real-time clock is not advanced
// here.
func (c *Core) onVblank(cycle uint64, id sched.EventID, data uint64) {
	c.refreshDiskStatus()
	c.ciaA.SetExternalPA(1, true)
	if c.adi.Request()&adi.SrcVerTB == 0 {
		c.adi.RaiseImmediate(adi.SrcVerTB)
	}
	c.sched.ScheduleRel(sched.SlotVbl, vblankPeriod, sched.EventID(0), 0)
}

// PowerOn marks the core as running and performs a HardReset, which
// begins execution from the Kickstart reset vector.
func (c *Core) PowerOn() {
	c.poweredOn = true
	c.HardReset()
}

// PowerOff halts execution. Configuration options locked while powered
// on (pkg/config's poweredOffOnly set) become legal to change again.
func (c *Core) PowerOff() {
	c.poweredOn = false
}

// PoweredOn reports whether the core is currently running.
func (c *Core) PoweredOn() bool {
	return c.poweredOn
}

// HardReset resets both CIAs and rearms their timer slots, reasserts
// the ROM overlay, clears DMACON/ADKCON/POTGO, refills RAM with
// cfg.RamInitPattern, and reloads the CPU's SSP/PC from the reset
// vector. The scheduler's cycle counter and pending events, and the
// interrupt unit, disk controller, drive and RTC state, are not reset.
func (c *Core) HardReset() {
	c.ciaA.Reset(true)
	c.ciaB.Reset(true)
	c.mem.SetOverlay(true)
	c.dmacon, c.adkcon, c.potgo = 0, 0, 0
	c.applyRamInit()
	c.cpu.Reset()
	c.onCIAAPortA(c.ciaA.PA())
}

// SoftReset reinitializes CPU and CIA register state and reasserts the
// ROM overlay, matching a real Amiga's keyboard reset (Ctrl-Amiga-Amiga).
// The scheduler's cycle counter is not reset; the CPU's reset-vector
// fetch advances it by two bus cycles as usual.
func (c *Core) SoftReset() {
	c.ciaA.Reset(false)
	c.ciaB.Reset(false)
	c.mem.SetOverlay(true)
	c.cpu.Reset()
	c.onCIAAPortA(c.ciaA.PA())
}

// ExecuteUntil runs the CPU and the scheduler forward to the target
// master cycle count.
func (c *Core) ExecuteUntil(target uint64) {
	for c.sched.Cycle() < target && !c.cpu.Halted() {
		c.cpu.Step()
		c.sched.ExecuteUntil(c.sched.Cycle())
	}
}

// Step executes exactly one CPU instruction and returns the number of
// master cycles it consumed.
func (c *Core) Step() int {
	return c.cpu.Step()
}

// Cycle returns the master DMA cycle counter.
func (c *Core) Cycle() uint64 {
	return c.sched.Cycle()
}

// CPU exposes the 68000 core for inspection (registers, halted state).
func (c *Core) CPU() *m68k.CPU {
	return c.cpu
}

// Peek8/Poke8/Peek16/Poke16 expose the memory resolver's CPU accessor
// for external tooling (the remote-observer terminal, tests).
func (c *Core) Peek8(addr uint32) uint8    { return c.mem.Peek8(addr) }
func (c *Core) Poke8(addr uint32, v uint8) { c.mem.Poke8(addr, v) }
func (c *Core) Peek16(addr uint32) uint16    { return c.mem.Peek16(addr) }
func (c *Core) Poke16(addr uint32, v uint16) { c.mem.Poke16(addr, v) }

// InsertDisk attaches d to df0, the one modeled floppy drive, after the
// documented mechanical insertion delay.
func (c *Core) InsertDisk(d drive.Disk, delay uint64) {
	c.df0.InsertDisk(d, delay)
}

// EjectDisk removes whatever disk is currently in df0.
func (c *Core) EjectDisk(delay uint64) {
	c.df0.EjectDisk(delay)
}

// RemoteServer exposes the remote-observer TCP server for the caller to
// Start/Stop.
func (c *Core) RemoteServer() *remote.Server {
	return c.remoteSrv
}
