package cia

import (
	"testing"

	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/adi"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/sched"
	"periph.io/x/periph/conn/gpio"
)

func TestTimerAOneShotFiresOnce(t *testing.T) {
	s := sched.New()
	irq := adi.New(s)
	c := New(s, InstanceA, sched.SlotCiaA, irq)

	c.Poke(regTALO, 5)
	c.Poke(regTAHI, 0)
	c.Poke(regCRA, 0x09) // start | one-shot

	s.ExecuteUntil(s.Cycle() + eClockPeriod*10)

	if c.cra&0x01 != 0 {
		t.Fatal("one-shot timer did not stop itself after underflow")
	}
	if c.icr&0x01 == 0 {
		t.Fatal("timer A underflow did not set ICR bit 0")
	}
}

func TestTimerBContinuousReloads(t *testing.T) {
	s := sched.New()
	irq := adi.New(s)
	c := New(s, InstanceB, sched.SlotCiaB, irq)

	c.Poke(regTBLO, 2)
	c.Poke(regTBHI, 0)
	c.Poke(regCRB, 0x01) // start, continuous

	s.ExecuteUntil(s.Cycle() + eClockPeriod*10)
	first := c.Peek(regICR) // reading ICR also clears it
	if first&0x02 == 0 {
		t.Fatalf("ICR = %02X, want bit 1 set after first underflow", first)
	}

	s.ExecuteUntil(s.Cycle() + eClockPeriod*10)
	second := c.Peek(regICR)
	if second&0x02 == 0 {
		t.Fatal("continuous timer did not reload and underflow again")
	}
}

func TestPortADDRMasksOutputVsInput(t *testing.T) {
	s := sched.New()
	c := New(s, InstanceA, sched.SlotCiaA, adi.New(s))

	c.Poke(regDDRA, 0x01) // bit 0 output, rest input
	c.Poke(regPRA, 0xFF)
	c.SetExternalPA(1, true)

	pa := c.PA()
	if pa&0x01 == 0 {
		t.Fatal("output bit did not reflect PRA")
	}
	if pa&0x02 == 0 {
		t.Fatal("input bit did not reflect external driver")
	}
}

func TestICRReadClearsPendingFlags(t *testing.T) {
	s := sched.New()
	c := New(s, InstanceA, sched.SlotCiaA, adi.New(s))
	c.icr = 0x05

	v := c.Peek(regICR)
	if v&0x05 != 0x05 {
		t.Fatalf("ICR read = %02X, want bits 0 and 2 set", v)
	}
	if c.icr != 0 {
		t.Fatal("reading ICR did not clear the latched register")
	}
}

func TestTODIncrementsAndMatchesAlarm(t *testing.T) {
	s := sched.New()
	c := New(s, InstanceB, sched.SlotCiaB, adi.New(s))

	c.Poke(regTODTenths, 8)
	c.tod.alarmTenths = 9

	if c.tod.tickedInterrupt() {
		t.Fatal("should not fire before tenthPeriod ticks accumulate")
	}
	for i := 0; i < tenthPeriod; i++ {
		if c.tod.tickedInterrupt() {
			if c.tod.tenths != 9 {
				t.Fatalf("tenths = %d at alarm match, want 9", c.tod.tenths)
			}
			return
		}
	}
	t.Fatal("TOD alarm never matched")
}

func TestTODHourWriteStopsUntilTenthsWritten(t *testing.T) {
	s := sched.New()
	c := New(s, InstanceB, sched.SlotCiaB, adi.New(s))

	c.Poke(regTODHour, 0x01)
	if !c.tod.stopped {
		t.Fatal("writing hours should stop the TOD counter")
	}
	c.Poke(regTODTenths, 0)
	if c.tod.stopped {
		t.Fatal("writing tenths should resume the TOD counter")
	}
}

func TestClockCntInputModeShiftsInByte(t *testing.T) {
	s := sched.New()
	c := New(s, InstanceB, sched.SlotCiaB, adi.New(s))
	c.cra = 0 // input mode

	c.SetSP(true)
	for i := 0; i < 8; i++ {
		c.ClockCnt(true)
		c.ClockCnt(false)
	}
	if c.delay&delaySsrToSdr0 == 0 {
		t.Fatal("eighth CNT edge did not schedule the SSR->SDR transfer")
	}
}

func TestPinReflectsPortAndAcceptsExternalDrive(t *testing.T) {
	s := sched.New()
	c := New(s, InstanceA, sched.SlotCiaA, adi.New(s))
	c.Poke(regDDRA, 0x00) // all input
	c.SetExternalPA(2, true)

	p := c.PinA(2)
	if p.Read() != gpio.High {
		t.Fatal("pin did not reflect externally driven level")
	}
}
