// Package snapshot implements persisted-state save/load: a header, an
// ordered list of per-component serialized sections, then raw memory
// region dumps, matching spec.md §6's "Persisted state" format and the
// round-trip law of spec.md §8 (save then load yields an observably
// identical core for every exposed piece of state).
//
// Grounded on the teacher's pkg/m68k/serialize.go convention (a
// version byte, a fixed-size buffer, errors.New for size/version
// faults) generalized from one component to the whole core.
package snapshot

import (
	"encoding/binary"
	"errors"
	"io"
)

const magic = "VACORESNAP"

// formatVersion is incremented whenever the header or section-ordering
// layout changes; a Load of a snapshot with a different version fails
// with ErrVersionMismatch rather than guessing at compatibility.
const formatVersion = 1

// RAM size ceilings from spec.md §6, enforced on Load.
const (
	MaxChipRamBytes = 2 * 1024 * 1024
	MaxSlowRamBytes = 1792 * 1024
	MaxFastRamBytes = 8 * 1024 * 1024
	MaxRomBytes     = 512 * 1024
)

var (
	ErrCorrupted       = errors.New("snapshot: corrupted payload")
	ErrVersionMismatch = errors.New("snapshot: version mismatch")
	ErrRamTooLarge     = errors.New("snapshot: RAM region exceeds the documented size ceiling")
)

// Component is one serializable section of core state: the CPU, each
// CIA, the scheduler, the disk controller, and so on. SnapshotSize
// must be a fixed constant for the lifetime of a given formatVersion,
// matching pkg/m68k.CPU's SerializeSize convention.
type Component interface {
	SnapshotSize() int
	Serialize(buf []byte) error
	Deserialize(buf []byte) error
}

// Memory holds the raw backing bytes of every RAM/ROM region the
// resolver owns. Fast/Slow/Rom may be nil if that region is absent
// from the current configuration.
type Memory struct {
	Chip []byte
	Slow []byte
	Fast []byte
	Rom  []byte
}

// Options controls what Save writes beyond the mandatory sections.
type Options struct {
	// SaveRoms includes the ROM region's raw bytes. When false, the ROM
	// section is written with zero length and Load leaves the caller's
	// ROM buffer untouched, per spec.md §6's "save ROMs" flag.
	SaveRoms bool
}

// Save writes the header, every component in order, then the raw
// memory regions, to w.
func Save(w io.Writer, components []Component, mem Memory, opts Options) error {
	hdr := make([]byte, len(magic)+1)
	copy(hdr, magic)
	hdr[len(magic)] = formatVersion
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	for _, c := range components {
		buf := make([]byte, c.SnapshotSize())
		if err := c.Serialize(buf); err != nil {
			return err
		}
		if err := writeRegion(w, buf); err != nil {
			return err
		}
	}

	if err := writeRegion(w, mem.Chip); err != nil {
		return err
	}
	if err := writeRegion(w, mem.Slow); err != nil {
		return err
	}
	if err := writeRegion(w, mem.Fast); err != nil {
		return err
	}
	if opts.SaveRoms {
		if err := writeRegion(w, mem.Rom); err != nil {
			return err
		}
	} else {
		if err := writeRegion(w, nil); err != nil {
			return err
		}
	}

	return nil
}

// Load reads a snapshot written by Save, restoring every component in
// order and filling in mem's regions in place (mem's slices must
// already be sized to the target configuration's RAM sizes; a ROM
// section of length 0 leaves mem.Rom untouched).
func Load(r io.Reader, components []Component, mem Memory) error {
	hdr := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return ErrCorrupted
	}
	if string(hdr[:len(magic)]) != magic {
		return ErrCorrupted
	}
	if hdr[len(magic)] != formatVersion {
		return ErrVersionMismatch
	}

	for _, c := range components {
		buf, err := readBlock(r)
		if err != nil {
			return err
		}
		if len(buf) != c.SnapshotSize() {
			return ErrCorrupted
		}
		if err := c.Deserialize(buf); err != nil {
			return err
		}
	}

	regions := []struct {
		dst *[]byte
		max int
	}{
		{&mem.Chip, MaxChipRamBytes},
		{&mem.Slow, MaxSlowRamBytes},
		{&mem.Fast, MaxFastRamBytes},
		{&mem.Rom, MaxRomBytes},
	}
	for _, reg := range regions {
		buf, err := readBlock(r)
		if err != nil {
			return err
		}
		if len(buf) > reg.max {
			return ErrRamTooLarge
		}
		if len(buf) == 0 {
			continue
		}
		if reg.dst == &mem.Rom {
			if cap(*reg.dst) < len(buf) {
				return ErrCorrupted
			}
		} else if len(*reg.dst) != len(buf) {
			return ErrCorrupted
		}
		copy(*reg.dst, buf)
	}

	return nil
}

func writeRegion(w io.Writer, buf []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(buf)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}
	_, err := w.Write(buf)
	return err
}

func readBlock(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, ErrCorrupted
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ErrCorrupted
	}
	return buf, nil
}
