package cpubus

import (
	"testing"

	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/dmabus"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/m68k"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/mem"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/sched"
)

func newTestBus() (*Bus, *mem.Resolver, *dmabus.Arbiter, *sched.Scheduler) {
	r := mem.New()
	r.Bind(mem.RegionChip, mem.NewRam(64*1024))
	r.MapPages(true, 0, 0xFF, mem.RegionChip)

	s := sched.New()
	a := dmabus.New()
	b := New(r, s, a, 1)
	return b, r, a, s
}

func TestReadWriteWordRoundTrip(t *testing.T) {
	b, _, _, _ := newTestBus()
	b.Write(m68k.Word, 0x1000, 0xCAFE)
	if got := b.Read(m68k.Word, 0x1000); got != 0xCAFE {
		t.Fatalf("Read = %04X, want CAFE", got)
	}
}

func TestLongSplitsIntoTwoWords(t *testing.T) {
	b, _, _, _ := newTestBus()
	b.Write(m68k.Long, 0x2000, 0x11223344)
	if got := b.Read(m68k.Word, 0x2000); got != 0x1122 {
		t.Fatalf("high word = %04X, want 1122", got)
	}
	if got := b.Read(m68k.Word, 0x2002); got != 0x3344 {
		t.Fatalf("low word = %04X, want 3344", got)
	}
}

func TestExecuteUntilBusFreeWaitsOutHigherPriorityOwner(t *testing.T) {
	b, _, a, s := newTestBus()
	a.Request(dmabus.ChannelBlitter)
	a.Claim(s.Cycle())

	before := s.Cycle()
	b.executeUntilBusFree()
	if s.Cycle() <= before {
		t.Fatal("executeUntilBusFree did not advance the scheduler")
	}
}

func TestRequestIplChangeIsDelayed(t *testing.T) {
	b, _, _, s := newTestBus()
	cpu := m68k.New(&stubCPUBus{})
	b.AttachCPU(cpu)

	b.RequestIplChange(5)
	if s.IsPending(sched.SlotIpl) == false {
		t.Fatal("IplChange event was not scheduled")
	}
	target := s.Trigger(sched.SlotIpl)
	if target != s.Cycle()+ipDelay {
		t.Fatalf("IplChange trigger = %d, want %d", target, s.Cycle()+ipDelay)
	}
	s.ExecuteUntil(target)
	// RequestInterrupt only raises pendingIPL when level > 0; checked
	// indirectly via Registers/Step would require running an instruction,
	// so we only assert the event fired without panicking here.
}

type stubCPUBus struct{}

func (stubCPUBus) Read(op m68k.Size, addr uint32) uint32  { return 0 }
func (stubCPUBus) Write(op m68k.Size, addr uint32, v uint32) {}
func (stubCPUBus) Reset()                                  {}
