package snapshot

import (
	"bytes"
	"testing"
)

// fakeComponent is a minimal Component for round-trip testing.
type fakeComponent struct {
	value uint32
}

func (f *fakeComponent) SnapshotSize() int { return 4 }

func (f *fakeComponent) Serialize(buf []byte) error {
	buf[0] = byte(f.value >> 24)
	buf[1] = byte(f.value >> 16)
	buf[2] = byte(f.value >> 8)
	buf[3] = byte(f.value)
	return nil
}

func (f *fakeComponent) Deserialize(buf []byte) error {
	f.value = uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	return nil
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := &fakeComponent{value: 0xDEADBEEF}
	chip := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	var buf bytes.Buffer
	if err := Save(&buf, []Component{src}, Memory{Chip: chip}, Options{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := &fakeComponent{}
	dstChip := make([]byte, len(chip))
	if err := Load(&buf, []Component{dst}, Memory{Chip: dstChip}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if dst.value != src.value {
		t.Fatalf("value = %08X, want %08X", dst.value, src.value)
	}
	if !bytes.Equal(dstChip, chip) {
		t.Fatalf("chip RAM = %v, want %v", dstChip, chip)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NOTASNAPSHOT")
	if err := Load(&buf, nil, Memory{}); err != ErrCorrupted {
		t.Fatalf("Load with bad magic = %v, want ErrCorrupted", err)
	}
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	src := &fakeComponent{}
	var buf bytes.Buffer
	Save(&buf, []Component{src}, Memory{}, Options{})
	raw := buf.Bytes()
	raw[len(magic)] = formatVersion + 1

	if err := Load(bytes.NewReader(raw), []Component{&fakeComponent{}}, Memory{}); err != ErrVersionMismatch {
		t.Fatalf("Load with bad version = %v, want ErrVersionMismatch", err)
	}
}

func TestLoadRejectsOversizedRamRegion(t *testing.T) {
	var buf bytes.Buffer
	oversized := make([]byte, MaxChipRamBytes+1)
	if err := Save(&buf, nil, Memory{Chip: oversized}, Options{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := Load(&buf, nil, Memory{Chip: make([]byte, MaxChipRamBytes+1)}); err != ErrRamTooLarge {
		t.Fatalf("Load with oversized chip RAM = %v, want ErrRamTooLarge", err)
	}
}

func TestSaveLoadSkipsRomsWhenNotRequested(t *testing.T) {
	rom := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	var buf bytes.Buffer
	if err := Save(&buf, nil, Memory{Rom: rom}, Options{SaveRoms: false}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dstRom := []byte{1, 1, 1, 1}
	if err := Load(&buf, nil, Memory{Rom: dstRom}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(dstRom, []byte{1, 1, 1, 1}) {
		t.Fatal("ROM buffer should be untouched when SaveRoms is false")
	}
}

func TestInspectorConcurrentReadWrite(t *testing.T) {
	var ins Inspector
	ins.Update("initial")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			ins.Update("update")
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		_ = ins.Snapshot()
	}
	<-done
}
