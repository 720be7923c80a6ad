package disk

import (
	"testing"

	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/adi"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/sched"
)

type fakeDrive struct {
	bytes []uint8
	pos   int
}

func (d *fakeDrive) ReadByte() uint8 {
	if len(d.bytes) == 0 {
		return 0xFF
	}
	b := d.bytes[d.pos%len(d.bytes)]
	d.pos++
	return b
}

type fakeIRQ struct {
	raised []adi.Source
}

func (f *fakeIRQ) RaiseImmediate(src adi.Source) {
	f.raised = append(f.raised, src)
}

// fakeMem is a tiny word-addressed memory double standing in for
// pkg/mem's Agnus/DMA accessor.
type fakeMem struct {
	words map[uint32]uint16
}

func (m *fakeMem) Peek16Agnus(addr uint32) uint16 {
	return m.words[addr]
}

func (m *fakeMem) Poke16Agnus(addr uint32, v uint16) {
	if m.words == nil {
		m.words = make(map[uint32]uint16)
	}
	m.words[addr] = v
}

func TestArmedTwiceEntersReadState(t *testing.T) {
	s := sched.New()
	irq := &fakeIRQ{}
	c := New(s, irq, &fakeDrive{}, &fakeMem{})

	c.WriteDsklen(0x8000) // first arm
	if c.State() != StateOff {
		t.Fatal("single arm should not transition state")
	}
	c.WriteDsklen(0x8002) // second arm, length=2 words, WRITE=0
	if c.State() != StateRead {
		t.Fatalf("state = %v, want StateRead", c.State())
	}
}

func TestArmedTwiceWriteEntersWriteState(t *testing.T) {
	s := sched.New()
	c := New(s, &fakeIRQ{}, &fakeDrive{}, &fakeMem{})
	c.WriteDsklen(0x8000)
	c.WriteDsklen(0xC002) // WRITE bit set
	if c.State() != StateWrite {
		t.Fatalf("state = %v, want StateWrite", c.State())
	}
}

func TestDmaenClearForcesOff(t *testing.T) {
	s := sched.New()
	c := New(s, &fakeIRQ{}, &fakeDrive{}, &fakeMem{})
	c.WriteDsklen(0x8000)
	c.WriteDsklen(0x8002)
	c.WriteDsklen(0x0000) // bit 15 cleared
	if c.State() != StateOff {
		t.Fatal("clearing DMAEN did not force Off")
	}
}

func TestSyncMatchTransitionsWaitToRead(t *testing.T) {
	s := sched.New()
	irq := &fakeIRQ{}
	drive := &fakeDrive{bytes: []uint8{0xAA, 0x55}}
	c := New(s, irq, drive, &fakeMem{})
	c.SetWordSyncMode(true)
	c.WriteDsksync(0xAA55)

	c.WriteDsklen(0x8000)
	c.WriteDsklen(0x8004) // arm, length=4, wordsync -> Wait
	if c.State() != StateWait {
		t.Fatalf("state = %v, want StateWait", c.State())
	}

	// Each rotate event clocks one byte; the 16-bit sync word needs two.
	s.ExecuteUntil(s.Cycle() + 2)
	if c.State() != StateRead {
		t.Fatalf("state = %v, want StateRead after sync match", c.State())
	}
	found := false
	for _, r := range irq.raised {
		if r == adi.SrcDskSyn {
			found = true
		}
	}
	if !found {
		t.Fatal("sync match did not raise SrcDskSyn")
	}
}

func TestSyncWordSpanningTrackOffsetsClearsFifo(t *testing.T) {
	s := sched.New()
	irq := &fakeIRQ{}
	track := make([]uint8, 110)
	track[100], track[101], track[102], track[103] = 0x44, 0x89, 0x55, 0xAA
	drive := &fakeDrive{bytes: track}
	c := New(s, irq, drive, &fakeMem{})
	c.SetWordSyncMode(true)
	c.WriteDsksync(0x4489)

	c.WriteDsklen(0x8000)
	c.WriteDsklen(0x8004) // arm, wordsync -> Wait

	s.ExecuteUntil(s.Cycle() + uint64(len(track)))

	if c.State() != StateRead {
		t.Fatalf("state = %v, want StateRead after clocking past the sync word", c.State())
	}
	if c.fifoCount != 0 {
		t.Fatalf("fifoCount = %d, want 0 (the second sync byte isn't pushed to the FIFO)", c.fifoCount)
	}
	found := false
	for _, r := range irq.raised {
		if r == adi.SrcDskSyn {
			found = true
		}
	}
	if !found {
		t.Fatal("sync match at offset 101 did not raise SrcDskSyn")
	}
}

func TestTurboModeCompletesSynchronously(t *testing.T) {
	s := sched.New()
	irq := &fakeIRQ{}
	c := New(s, irq, &fakeDrive{bytes: []uint8{0, 0, 0, 0}}, &fakeMem{})
	c.SetSpeed(-1)

	c.WriteDsklen(0x8000)
	c.WriteDsklen(0x8002) // 2 words
	if c.State() != StateOff {
		t.Fatal("turbo mode did not complete synchronously")
	}
}

// TestReadTransfersWordsToDmaPointer exercises the Read-state DMA path
// end to end: the bytes the drive hands the shift register must land,
// word by word, at the DMA pointer in memory, not merely decrement a
// counter.
func TestReadTransfersWordsToDmaPointer(t *testing.T) {
	s := sched.New()
	irq := &fakeIRQ{}
	mem := &fakeMem{}
	drive := &fakeDrive{bytes: []uint8{0x12, 0x34, 0x56, 0x78}}
	c := New(s, irq, drive, mem)

	c.WriteDskpth(0x0020)
	c.WriteDskptl(0x0000) // DMA pointer = 0x200000

	c.WriteDsklen(0x8000)
	c.WriteDsklen(0x8002) // arm, length=2 words, no wordsync -> Read

	s.ExecuteUntil(s.Cycle() + 10)

	if c.State() != StateOff {
		t.Fatalf("state = %v, want StateOff once the 2-word length is exhausted", c.State())
	}
	if got := mem.words[0x200000]; got != 0x1234 {
		t.Fatalf("mem[0x200000] = %04x, want 1234", got)
	}
	if got := mem.words[0x200002]; got != 0x5678 {
		t.Fatalf("mem[0x200002] = %04x, want 5678", got)
	}
}

// TestWriteFillsFifoFromDmaPointer exercises the Write-state direction:
// words already present in memory at the DMA pointer must be the ones
// pushed into the FIFO.
func TestWriteFillsFifoFromDmaPointer(t *testing.T) {
	s := sched.New()
	mem := &fakeMem{words: map[uint32]uint16{0x1000: 0xBEEF}}
	c := New(s, &fakeIRQ{}, &fakeDrive{bytes: []uint8{0, 0}}, mem)

	c.WriteDskpth(0x0000)
	c.WriteDskptl(0x1000)

	c.WriteDsklen(0x8000)
	c.WriteDsklen(0xC002) // WRITE bit set, length=2 words

	c.drainOrFillFifo()

	if c.fifoCount != 2 {
		t.Fatalf("fifoCount = %d, want 2 after pulling one word from memory", c.fifoCount)
	}
	if c.fifo[0] != 0xBE || c.fifo[1] != 0xEF {
		t.Fatalf("fifo = %02x %02x, want be ef", c.fifo[0], c.fifo[1])
	}
}

// TestTurboModeDelaysBlockInterrupt confirms a turbo-mode transfer's
// DSKBLK interrupt is scheduled 512 cycles out rather than raised the
// instant the synchronous transfer loop finishes.
func TestTurboModeDelaysBlockInterrupt(t *testing.T) {
	s := sched.New()
	irq := &fakeIRQ{}
	c := New(s, irq, &fakeDrive{bytes: []uint8{0, 0, 0, 0}}, &fakeMem{})
	c.SetSpeed(-1)

	c.WriteDsklen(0x8000)
	c.WriteDsklen(0x8002) // 2 words

	for _, r := range irq.raised {
		if r == adi.SrcDskBlk {
			t.Fatal("DSKBLK raised immediately, want it delayed")
		}
	}

	s.ExecuteUntil(s.Cycle() + dskBlkIrqDelay)

	found := false
	for _, r := range irq.raised {
		if r == adi.SrcDskBlk {
			found = true
		}
	}
	if !found {
		t.Fatal("DSKBLK never raised after the transfer's delay elapsed")
	}
}
