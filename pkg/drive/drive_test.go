package drive

import (
	"testing"

	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/sched"
)

type fakeDisk struct{ data []byte }

func (d *fakeDisk) ReadByteAt(cylinder, side, offset int) uint8 {
	return d.data[offset%len(d.data)]
}
func (d *fakeDisk) TrackLength(cylinder, side int) int { return len(d.data) }

func TestStepRespectsPulseDelay(t *testing.T) {
	s := sched.New()
	m := New(s, 100, 50, 1000, 1000)

	m.Step(1)
	if m.cylinder != 1 {
		t.Fatalf("cylinder = %d, want 1", m.cylinder)
	}
	m.Step(1) // too soon, same cycle
	if m.cylinder != 1 {
		t.Fatalf("cylinder advanced before step delay elapsed: %d", m.cylinder)
	}

	s.ExecuteUntil(s.Cycle() + 100)
	m.Step(1)
	if m.cylinder != 2 {
		t.Fatalf("cylinder = %d, want 2 after delay elapsed", m.cylinder)
	}
}

func TestReadByteReturnsFFWithNoDisk(t *testing.T) {
	s := sched.New()
	m := New(s, 1, 1, 1, 1)
	if got := m.ReadByte(); got != 0xFF {
		t.Fatalf("ReadByte = %02X, want FF", got)
	}
}

func TestInsertDiskAssertsChangeLatch(t *testing.T) {
	s := sched.New()
	m := New(s, 1, 1, 1, 1)
	m.InsertDisk(&fakeDisk{data: []byte{1, 2, 3}}, 10)
	s.ExecuteUntil(s.Cycle() + 10)
	if !m.HasDisk() {
		t.Fatal("disk not inserted after scheduled delay")
	}
	if !m.DiskChanged() {
		t.Fatal("disk-change latch not asserted on insertion")
	}
}

func TestEjectClearsChangeLatch(t *testing.T) {
	s := sched.New()
	m := New(s, 1, 1, 1, 1)
	m.InsertDisk(&fakeDisk{data: []byte{1}}, 1)
	s.ExecuteUntil(s.Cycle() + 1)
	m.EjectDisk(1)
	s.ExecuteUntil(s.Cycle() + 1)
	if m.HasDisk() {
		t.Fatal("disk still present after eject")
	}
	if m.DiskChanged() {
		t.Fatal("disk-change latch still set after eject")
	}
}

func TestMotorSpeedRampsToFull(t *testing.T) {
	s := sched.New()
	m := New(s, 1, 1, 100, 100)
	m.SetMotor(true)
	if sp := m.Speed(); sp != 0 {
		t.Fatalf("speed = %d immediately after motor on, want 0", sp)
	}
	s.ExecuteUntil(s.Cycle() + 100)
	if sp := m.Speed(); sp != 100 {
		t.Fatalf("speed = %d after start delay, want 100", sp)
	}
}

func TestStepClampsAtCylinderBounds(t *testing.T) {
	s := sched.New()
	m := New(s, 0, 0, 0, 0)

	m.Step(-1)
	if m.cylinder != 0 {
		t.Fatalf("cylinder = %d, want 0 (stepping inward past 0 is a no-op)", m.cylinder)
	}

	for i := 0; i < maxCylinder+5; i++ {
		m.Step(1)
	}
	if m.cylinder != maxCylinder {
		t.Fatalf("cylinder = %d, want %d (stepping outward past the last cylinder is a no-op)", m.cylinder, maxCylinder)
	}
}

func TestPollingDetectorMatchesAlternatingPattern(t *testing.T) {
	s := sched.New()
	m := New(s, 0, 0, 0, 0)
	for _, dir := range []int{1, -1, 1, -1, 1} {
		m.Step(dir)
	}
	if !m.Polling() {
		t.Fatal("alternating step pattern not detected as polling")
	}
}
