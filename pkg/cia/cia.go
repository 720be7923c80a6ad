// Package cia implements the 8520 complex interface adapter: two timers
// with one-shot/continuous/cascade modes, a TOD (time-of-day) counter
// with alarm and read latching (its erratum flag is stored only), an
// 8-bit serial shift register run by the CNT pin, and parallel ports A
// and B exposed bit-by-bit as GPIO-style signal lines.
//
// Two instances exist, CIA-A and CIA-B, wired to different external
// devices: CIA-A's port A carries the ROM overlay bit and disk-status
// inputs, CIA-B's port B drives the floppy motor/step/select/side
// lines. Both post interrupts into the Audio/Disk/Interrupt unit --
// CIA-A at level 2 (ports), CIA-B at level 6 (external).
package cia

import (
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/adi"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/sched"
)

// eClockPeriod is the number of master DMA cycles per CIA (E-clock) tick.
const eClockPeriod = 10

// tirednessLimit is the number of consecutive idle ticks after which the
// chip stops rescheduling itself every cycle and instead sleeps until a
// running timer is due to underflow.
const tirednessLimit = 8

// IRQRaiser is the subset of pkg/adi a CIA instance posts interrupts to.
type IRQRaiser interface {
	RaiseImmediate(src adi.Source)
	ClearImmediate(src adi.Source)
}

// Instance distinguishes CIA-A from CIA-B: they share all timing logic
// but differ in which interrupt source they drive and how their ports
// are wired externally.
type Instance int

const (
	InstanceA Instance = iota
	InstanceB
)

// CIA is one 8520 timer chip instance.
type CIA struct {
	name  Instance
	sched *sched.Scheduler
	slot  sched.Slot
	irq   IRQRaiser
	irqSrc adi.Source

	tod TOD

	// Registers.
	pra, ddra uint8
	prb, ddrb uint8
	cra, crb  uint8
	icr, imr  uint8
	icrAck    uint8
	sdr, ssr  uint8
	serCounter int

	counterA, latchA uint16
	counterB, latchB uint16

	cnt    bool // CNT pin level
	sp     bool // SP (serial input) pin level
	lastPA uint8

	delay uint64
	feed  uint64

	pb67TimerOut  uint8
	pb67Toggle    uint8
	pb67TimerMode uint8 // bit6/bit7 set when that PB bit shows the timer output

	externalPA uint8 // bits driven onto port A by an external device
	externalPB uint8

	lastTick   uint64
	tiredness  int
	sleeping   bool

	onPA func(pa uint8) // notified after a write changes port A's output
	onPB func(pb uint8) // notified after a write changes port B's output
}

// New creates a CIA instance and registers its scheduler slot.
func New(s *sched.Scheduler, name Instance, slot sched.Slot, irq IRQRaiser) *CIA {
	c := &CIA{
		name:       name,
		sched:      s,
		slot:       slot,
		irq:        irq,
		externalPA: 0xFF,
		externalPB: 0xFF,
	}
	if name == InstanceA {
		c.irqSrc = adi.SrcPort
	} else {
		c.irqSrc = adi.SrcExtern
	}
	c.tod.bind(c)
	s.SetHandler(slot, c.onTick)
	c.Reset(true)
	return c
}

// Reset restores power-on defaults. A soft reset then wakes the chip
// if it was sleeping (catching up skipped ticks) and reschedules its
// slot; a hard reset clears the sleep state and rearms the scheduler
// from scratch.
func (c *CIA) Reset(hard bool) {
	c.pra, c.prb = 0xFF, 0xFF
	c.ddra, c.ddrb = 0, 0
	c.cra, c.crb = 0, 0
	c.icr, c.imr, c.icrAck = 0, 0, 0
	c.sdr, c.ssr = 0, 0
	c.serCounter = 0
	c.counterA, c.latchA = 0xFFFF, 0xFFFF
	c.counterB, c.latchB = 0xFFFF, 0xFFFF
	c.cnt = true
	c.delay, c.feed = 0, 0
	c.pb67TimerOut, c.pb67Toggle, c.pb67TimerMode = 0, 0, 0
	c.tod.reset()
	if hard {
		c.tiredness = 0
		c.sleeping = false
		c.lastTick = c.sched.Cycle()
		c.sched.ScheduleRel(c.slot, eClockPeriod, sched.EventID(0), 0)
	} else {
		c.wakeUp()
	}
}

// SetExternalPA drives bit of port A's external input from outside
// (disk status flags for CIA-A, serial-port handshake lines for CIA-B).
func (c *CIA) SetExternalPA(bit int, level bool) {
	setBit(&c.externalPA, bit, level)
}

// SetExternalPB drives bit of port B's external input from outside.
func (c *CIA) SetExternalPB(bit int, level bool) {
	setBit(&c.externalPB, bit, level)
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func setBit(reg *uint8, bit int, level bool) {
	if level {
		*reg |= 1 << uint(bit)
	} else {
		*reg &^= 1 << uint(bit)
	}
}

// PA returns the live, externally observable value of port A.
func (c *CIA) PA() uint8 {
	result := (c.pra & c.ddra) | (c.externalPA &^ c.ddra)
	return result
}

// PB returns the live, externally observable value of port B.
func (c *CIA) PB() uint8 {
	result := (c.prb & c.ddrb) | (c.externalPB &^ c.ddrb)
	if c.pb67TimerMode&0x40 != 0 {
		result = replaceBit(result, 6, c.pb67TimerOut&0x40 != 0)
	}
	if c.pb67TimerMode&0x80 != 0 {
		result = replaceBit(result, 7, c.pb67TimerOut&0x80 != 0)
	}
	return result
}

func replaceBit(v uint8, bit int, set bool) uint8 {
	if set {
		return v | 1<<uint(bit)
	}
	return v &^ (1 << uint(bit))
}

// register file offsets, 6526-standard layout.
const (
	regPRA = iota
	regPRB
	regDDRA
	regDDRB
	regTALO
	regTAHI
	regTBLO
	regTBHI
	regTODTenths
	regTODSec
	regTODMin
	regTODHour
	regSDR
	regICR
	regCRA
	regCRB
)

// Peek reads register reg (0-15).
func (c *CIA) Peek(reg int) uint8 {
	switch reg & 0xF {
	case regPRA:
		return c.PA()
	case regPRB:
		return c.PB()
	case regDDRA:
		return c.ddra
	case regDDRB:
		return c.ddrb
	case regTALO:
		return uint8(c.counterA)
	case regTAHI:
		return uint8(c.counterA >> 8)
	case regTBLO:
		return uint8(c.counterB)
	case regTBHI:
		return uint8(c.counterB >> 8)
	case regTODTenths:
		return c.tod.peekTenths()
	case regTODSec:
		return c.tod.peekSeconds()
	case regTODMin:
		return c.tod.peekMinutes()
	case regTODHour:
		return c.tod.peekHours()
	case regSDR:
		return c.sdr
	case regICR:
		result := c.icr
		if c.irqAsserted() {
			result |= 0x80
		}
		c.icr = 0
		c.delay |= delayReadIcr0
		c.wakeUp()
		return result
	case regCRA:
		return c.cra
	case regCRB:
		return c.crb
	}
	return 0xFF
}

func (c *CIA) irqAsserted() bool {
	return c.icr&c.imr&0x1F != 0
}

// IRQPin reports the live state of this chip's /IRQ output pin: true
// while an enabled interrupt condition is pending (the pin asserted
// low on real hardware). A caller wiring InterruptLevel's "inverted
// CIA pin" parameters from this chip's own pin directly would double
// up with the RaiseImmediate/ClearImmediate calls tick() already makes
// on every ICR edge; this core passes the neutral (not-asserted) value
// there instead and uses IRQPin only for inspection/testing.
func (c *CIA) IRQPin() bool {
	return c.irqAsserted()
}

// SetPACallback installs a callback invoked with PA()'s new value after
// every write that can change port A's externally observable output
// (PRA or DDRA). The owning core uses this to drive the ROM overlay bit
// and floppy-sensor wiring without this package importing pkg/mem or
// pkg/drive.
func (c *CIA) SetPACallback(fn func(pa uint8)) {
	c.onPA = fn
}

// SetPBCallback installs a callback invoked with PB()'s new value after
// every write that can change port B's externally observable output
// (PRB or DDRB). The owning core uses this to drive pkg/drive's motor,
// step, and direction lines.
func (c *CIA) SetPBCallback(fn func(pb uint8)) {
	c.onPB = fn
}

// Poke writes register reg (0-15).
func (c *CIA) Poke(reg int, v uint8) {
	c.wakeUp()
	switch reg & 0xF {
	case regPRA:
		c.pra = v
		c.updatePA()
	case regPRB:
		c.prb = v
		c.updatePB()
	case regDDRA:
		c.ddra = v
		c.updatePA()
	case regDDRB:
		c.ddrb = v
		c.updatePB()
	case regTALO:
		c.latchA = (c.latchA & 0xFF00) | uint16(v)
	case regTAHI:
		c.latchA = (c.latchA & 0x00FF) | uint16(v)<<8
		if c.cra&0x01 == 0 {
			c.counterA = c.latchA
		}
		if c.cra&0x08 != 0 { // one-shot: loading THI starts the timer
			c.cra |= 0x01
			c.feed |= delayCountA0
		}
	case regTBLO:
		c.latchB = (c.latchB & 0xFF00) | uint16(v)
	case regTBHI:
		c.latchB = (c.latchB & 0x00FF) | uint16(v)<<8
		if c.crb&0x01 == 0 {
			c.counterB = c.latchB
		}
		if c.crb&0x08 != 0 {
			c.crb |= 0x01
			c.feed |= delayCountB0
		}
	case regTODTenths:
		c.tod.pokeTenths(v, c.crb&0x80 != 0)
	case regTODSec:
		c.tod.pokeSeconds(v, c.crb&0x80 != 0)
	case regTODMin:
		c.tod.pokeMinutes(v, c.crb&0x80 != 0)
	case regTODHour:
		c.tod.pokeHours(v, c.crb&0x80 != 0)
	case regSDR:
		c.sdr = v
		if c.cra&0x40 != 0 { // output mode: start shifting
			c.feed |= delaySdrToSsr0
		}
	case regICR:
		c.pokeICR(v)
	case regCRA:
		c.pokeCRA(v)
	case regCRB:
		c.pokeCRB(v)
	}
}

func (c *CIA) pokeICR(v uint8) {
	if v&0x80 != 0 {
		c.imr |= v & 0x1F
	} else {
		c.imr &^= v & 0x1F
	}
	if c.irqAsserted() {
		c.delay |= delaySetInt0
		c.delay |= delaySetIcr0
	}
}

func (c *CIA) pokeCRA(v uint8) {
	oldStart := c.cra & 0x01
	c.cra = v
	if v&0x01 != 0 && oldStart == 0 {
		c.feed |= delayCountA0
	}
	if v&0x01 == 0 {
		c.feed &^= delayCountA0
	}
	if v&0x10 != 0 { // force load
		c.delay |= delayLoadA0
		c.cra &^= 0x10
	}
	c.pb67TimerMode = replaceBit(c.pb67TimerMode, 6, v&0x02 != 0)
	c.updatePB()
}

func (c *CIA) pokeCRB(v uint8) {
	oldStart := c.crb & 0x01
	c.crb = v
	if v&0x01 != 0 && oldStart == 0 {
		c.feed |= delayCountB0
	}
	if v&0x01 == 0 {
		c.feed &^= delayCountB0
	}
	if v&0x10 != 0 {
		c.delay |= delayLoadB0
		c.crb &^= 0x10
	}
	c.pb67TimerMode = replaceBit(c.pb67TimerMode, 7, v&0x02 != 0)
	c.updatePB()
}

// updatePA re-derives the SP/CNT serial pins from port A after a write
// to PRA or DDRA. Only CIA-B wires PA0/PA1 to its own shift register
// this way; CIA-A's keyboard path loads SDR directly via SetKeyCode.
func (c *CIA) updatePA() {
	if c.name == InstanceB {
		pa := c.PA()
		if c.ddra&0x01 != 0 {
			c.SetSP(pa&0x01 != 0)
		} else {
			c.SetSP(true)
		}
		if c.lastPA&0x02 == 0 && pa&0x02 != 0 {
			c.ClockCnt(true)
		}
		if c.lastPA&0x02 != 0 && pa&0x02 == 0 {
			c.ClockCnt(false)
		}
		c.lastPA = pa
	}
	if c.onPA != nil {
		c.onPA(c.PA())
	}
}

func (c *CIA) updatePB() {
	if c.onPB != nil {
		c.onPB(c.PB())
	}
}

// SetSP drives the serial-register input pin directly.
func (c *CIA) SetSP(level bool) { c.sp = level }

// SetKeyCode loads code into SDR and raises a serial interrupt,
// matching the keyboard controller's direct path into CIA-A.
func (c *CIA) SetKeyCode(code uint8) {
	c.sdr = code
	c.delay |= delaySerInt0
	c.wakeUp()
}

// ClockCnt emulates an edge on the CNT pin: rising edges advance
// cascaded timers and clock the serial shift register in input mode.
func (c *CIA) ClockCnt(rising bool) {
	c.wakeUp()
	if !rising {
		c.cnt = false
		return
	}
	c.cnt = true

	if c.cra&0x21 == 0x21 {
		c.delay |= delayCountA1
	}
	if c.crb&0x61 == 0x21 {
		c.delay |= delayCountB1
	}

	if c.cra&0x40 == 0 { // input mode
		if c.serCounter == 0 {
			c.serCounter = 8
		}
		c.ssr = c.ssr<<1 | b2u8(c.sp)
		if c.serCounter--; c.serCounter == 0 {
			c.delay |= delaySsrToSdr0
			c.delay |= delaySerInt0
		}
	}
}

// onTick services the scheduler slot: it catches running timers up to
// the current cycle (accounting for however many E-clock ticks were
// skipped while sleeping) and runs exactly one more chip cycle.
func (c *CIA) onTick(cycle uint64, id sched.EventID, data uint64) {
	elapsed := (cycle - c.lastTick) / eClockPeriod
	if elapsed > 1 {
		c.catchUp(elapsed - 1)
	}
	c.lastTick = cycle
	c.tick()

	if c.tiredness > tirednessLimit {
		c.sleeping = true
		next := c.nextWakeCycle(cycle)
		if next == sched.Never {
			c.sched.Cancel(c.slot)
			return
		}
		c.sched.ScheduleAbs(c.slot, next, sched.EventID(0), 0)
		return
	}
	c.sleeping = false
	c.sched.ScheduleRel(c.slot, eClockPeriod, sched.EventID(0), 0)
}

// catchUp fast-forwards n whole E-clock periods without running the
// full per-cycle delay pipeline, matching CIA::wakeUp's missed-cycle
// arithmetic: only the running counters actually change while asleep.
func (c *CIA) catchUp(n uint64) {
	if c.feed&delayCountA0 != 0 && uint64(c.counterA) >= n {
		c.counterA -= uint16(n)
	}
	if c.feed&delayCountB0 != 0 && uint64(c.counterB) >= n {
		c.counterB -= uint16(n)
	}
	c.tod.advance(n)
}

// nextWakeCycle computes the earliest cycle a running, free (not
// cascade-gated) timer will next underflow, or sched.Never if both
// timers are stopped.
func (c *CIA) nextWakeCycle(from uint64) uint64 {
	wake := sched.Never
	if c.feed&delayCountA0 != 0 {
		ticks := uint64(c.counterA)
		if ticks < 1 {
			ticks = 1
		}
		wake = from + ticks*eClockPeriod
	}
	if c.feed&delayCountB0 != 0 {
		ticks := uint64(c.counterB)
		if ticks < 1 {
			ticks = 1
		}
		if cand := from + ticks*eClockPeriod; cand < wake {
			wake = cand
		}
	}
	return wake
}

// tick runs exactly one CIA cycle's worth of the timer, serial, and
// interrupt pipeline, mirroring CIA::executeOneCycle.
func (c *CIA) tick() {
	delay := c.delay
	oldDelay, oldFeed := delay, c.feed

	// Timer A: decrement, check underflow, one-shot stop, cascade to B,
	// reload.
	if delay&delayCountA3 != 0 {
		c.counterA--
	}
	timerAOut := c.counterA == 0 && delay&delayCountA2 != 0
	if timerAOut {
		c.icrAck &^= 0x01
		// CIAOneShotA0 is fed from CRA bit 3 every cycle rather than
		// pipelined, so it's read directly here instead of through delay/feed.
		if c.cra&0x08 != 0 {
			c.cra &^= 0x01
			delay &^= delayCountA2 | delayCountA1 | delayCountA0
			c.feed &^= delayCountA0
		}
		if c.crb&0x61 == 0x41 || (c.crb&0x61 == 0x61 && c.cnt) {
			delay |= delayCountB1
		}
		delay |= delayLoadA1
	}
	if delay&delayLoadA1 != 0 {
		c.counterA = c.latchA
		delay &^= delayCountA2
	}

	// Timer B: same shape, no cascade target.
	if delay&delayCountB3 != 0 {
		c.counterB--
	}
	timerBOut := c.counterB == 0 && delay&delayCountB2 != 0
	if timerBOut {
		c.icrAck &^= 0x02
		if c.crb&0x08 != 0 {
			c.crb &^= 0x01
			delay &^= delayCountB2 | delayCountB1 | delayCountB0
			c.feed &^= delayCountB0
		}
		delay |= delayLoadB1
	}
	if delay&delayLoadB1 != 0 {
		c.counterB = c.latchB
		delay &^= delayCountB2
	}

	// Serial register.
	if delay&delaySsrToSdr3 != 0 {
		c.sdr = c.ssr
	}
	if timerAOut && c.cra&0x40 != 0 {
		if c.serCounter != 0 {
			c.feed ^= delaySerClk0
		}
	} else if delay&delaySdrToSsr1 != 0 {
		c.ssr = c.sdr
		delay &^= delaySdrToSsr1 | delaySdrToSsr0
		c.feed &^= delaySdrToSsr0
		c.serCounter = 8
		c.feed ^= delaySerClk0
	}
	if c.serCounter != 0 && c.cra&0x40 != 0 {
		switch delay & (delaySerClk2 | delaySerClk1) {
		case delaySerClk1:
			if c.serCounter == 1 {
				delay |= delaySerInt0
			}
		case delaySerClk2:
			c.serCounter--
		}
	}

	// Timer underflow to PB6/PB7.
	if timerAOut {
		c.pb67Toggle ^= 0x40
		if c.cra&0x02 != 0 {
			if c.cra&0x04 == 0 {
				c.pb67TimerOut |= 0x40
				delay |= delayPB6Low0
				delay &^= delayPB6Low1
			} else {
				c.pb67TimerOut ^= 0x40
			}
		}
	}
	if timerBOut {
		c.pb67Toggle ^= 0x80
		if c.crb&0x02 != 0 {
			if c.crb&0x04 == 0 {
				c.pb67TimerOut |= 0x80
				delay |= delayPB7Low0
				delay &^= delayPB7Low1
			} else {
				c.pb67TimerOut ^= 0x80
			}
		}
	}
	if delay&delayPB6Low1 != 0 {
		c.pb67TimerOut &^= 0x40
	}
	if delay&delayPB7Low1 != 0 {
		c.pb67TimerOut &^= 0x80
	}

	// Interrupt logic.
	if timerAOut {
		c.icr |= 0x01
	}
	if timerBOut {
		c.icr |= 0x02
	}
	if (timerAOut && c.imr&0x01 != 0) || (timerBOut && c.imr&0x02 != 0) {
		delay = c.pipeTimerIrq(delay)
	}
	if delay&delayTODInt0 != 0 {
		c.icr |= 0x04
		if c.imr&0x04 != 0 {
			delay |= delaySetInt0
			delay |= delaySetIcr0
		}
	}
	if delay&delaySerInt2 != 0 {
		c.icr |= 0x08
		if c.imr&0x08 != 0 {
			delay |= delaySetInt0
			delay |= delaySetIcr0
		}
	}
	if delay&(delayClearIcr1|delayAckIcr1|delaySetIcr1|delaySetInt1|delayClearInt0) != 0 {
		if delay&delayClearIcr1 != 0 {
			c.icr &= 0x7F
		}
		if delay&delayAckIcr1 != 0 {
			c.icr &^= c.icrAck
		}
		if delay&delaySetIcr1 != 0 {
			c.icr |= 0x80
		}
		if delay&delaySetInt1 != 0 && c.irq != nil {
			c.irq.RaiseImmediate(c.irqSrc)
		}
		if delay&delayClearInt0 != 0 && c.irq != nil {
			c.irq.ClearImmediate(c.irqSrc)
		}
	}

	delay = ((delay << 1) & delayMask) | c.feed

	if oldDelay == delay && oldFeed == c.feed {
		c.tiredness++
	} else {
		c.tiredness = 0
	}
	c.delay = delay

	if c.tod.tickedInterrupt() {
		c.delay |= delayTODInt0
	}
}

func (c *CIA) pipeTimerIrq(delay uint64) uint64 {
	if delay&delayReadIcr0 != 0 {
		delay |= delaySetInt0
		delay |= delaySetIcr0
	} else {
		delay |= delaySetInt1
		delay |= delaySetIcr1
	}
	return delay
}

func (c *CIA) wakeUp() {
	if !c.sleeping {
		return
	}
	c.sleeping = false
	now := c.sched.Cycle()
	if elapsed := (now - c.lastTick) / eClockPeriod; elapsed > 0 {
		c.catchUp(elapsed)
		c.lastTick += elapsed * eClockPeriod
	}
	c.tiredness = 0
	c.sched.Cancel(c.slot)
	c.sched.ScheduleRel(c.slot, eClockPeriod, sched.EventID(0), 0)
}
