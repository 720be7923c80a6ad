// Package config implements the flat enumerated-option configuration
// set of spec.md §6: one Options struct holding every documented
// knob, validated per-option before being applied, with the
// powered-off-only lock spec.md §7 calls for on the RAM-size options.
package config

import "errors"

// Faults, named after spec.md §7's "Configuration faults".
var (
	ErrInvalidValue = errors.New("config: invalid option value")
	ErrOptionLocked = errors.New("config: option is locked while the core is powered on")
)

// BankMap selects one of the four documented memory-layout variants.
type BankMap int

const (
	BankMapA1000 BankMap = iota
	BankMapA500
	BankMapA2000A
	BankMapA2000B
)

func (b BankMap) valid() bool { return b >= BankMapA1000 && b <= BankMapA2000B }

// UnmappingType selects the value returned for unmapped reads.
type UnmappingType int

const (
	UnmappingFloating UnmappingType = iota
	UnmappingOnes
	UnmappingZeroes
)

func (u UnmappingType) valid() bool { return u >= UnmappingFloating && u <= UnmappingZeroes }

// RamInitPattern selects the fill pattern applied to RAM on hard reset.
type RamInitPattern int

const (
	RamInitZeroes RamInitPattern = iota
	RamInitOnes
	RamInitRandom
)

func (p RamInitPattern) valid() bool { return p >= RamInitZeroes && p <= RamInitRandom }

// CPURevision selects the emulated CPU family member.
type CPURevision int

const (
	CPU68000 CPURevision = iota
	CPU68010
	CPU68EC020
)

func (c CPURevision) valid() bool { return c >= CPU68000 && c <= CPU68EC020 }

// AudioSamplingMethod selects how audio channel output is resampled.
type AudioSamplingMethod int

const (
	AudSamplingNone AudioSamplingMethod = iota
	AudSamplingNearest
	AudSamplingLinear
)

func (a AudioSamplingMethod) valid() bool {
	return a >= AudSamplingNone && a <= AudSamplingLinear
}

// Size ceilings in KiB, matching pkg/snapshot's byte ceilings.
const (
	MaxChipRamKiB = 2 * 1024
	MaxSlowRamKiB = 1792
	MaxFastRamKiB = 8 * 1024
)

// Options is the flat configuration set of spec.md §6.
type Options struct {
	ChipRamKiB int
	SlowRamKiB int
	FastRamKiB int

	BankMap BankMap

	UnmappingType   UnmappingType
	RamInitPattern  RamInitPattern
	CPURevision     CPURevision
	CPUOverclocking int // 1 = off, N = N x speed

	DriveSpeed int // words per DMA slot; -1 = turbo

	AutoDskSync bool
	LockDskSync bool

	Todbug bool

	AudSamplingMethod AudioSamplingMethod
}

// Default returns the configuration a freshly powered-off core starts
// with: an A500-shaped machine, floating unmapped reads, zero-filled
// RAM, a plain 68000 at native speed, and the CIA TOD-erratum option off.
func Default() Options {
	return Options{
		ChipRamKiB:        512,
		SlowRamKiB:        0,
		FastRamKiB:        0,
		BankMap:           BankMapA500,
		UnmappingType:     UnmappingFloating,
		RamInitPattern:    RamInitZeroes,
		CPURevision:       CPU68000,
		CPUOverclocking:   1,
		DriveSpeed:        1,
		AutoDskSync:       true,
		LockDskSync:       false,
		Todbug:            false,
		AudSamplingMethod: AudSamplingNearest,
	}
}

// Option identifies one configuration field, used to report which
// option an apply/check call concerns.
type Option int

const (
	OptChipRam Option = iota
	OptSlowRam
	OptFastRam
	OptBankMap
	OptUnmappingType
	OptRamInitPattern
	OptCPURevision
	OptCPUOverclocking
	OptDriveSpeed
	OptAutoDskSync
	OptLockDskSync
	OptTodbug
	OptAudSamplingMethod
)

// poweredOffOnly is the set of options spec.md §6 restricts to a
// powered-off core ("only legal on a powered-off core").
func poweredOffOnly(opt Option) bool {
	switch opt {
	case OptChipRam, OptSlowRam, OptFastRam, OptBankMap:
		return true
	default:
		return false
	}
}

// Check validates a prospective value for opt without applying it, and
// reports whether it may be applied given poweredOn. Checking happens
// before a lock fault is reported, matching spec.md §7's ordering of
// an invalid value taking precedence over a locked option.
func Check(opt Option, value any, poweredOn bool) error {
	if err := validate(opt, value); err != nil {
		return err
	}
	if poweredOn && poweredOffOnly(opt) {
		return ErrOptionLocked
	}
	return nil
}

func validate(opt Option, value any) error {
	switch opt {
	case OptChipRam:
		v, ok := value.(int)
		if !ok || v < 0 || v > MaxChipRamKiB {
			return ErrInvalidValue
		}
	case OptSlowRam:
		v, ok := value.(int)
		if !ok || v < 0 || v > MaxSlowRamKiB {
			return ErrInvalidValue
		}
	case OptFastRam:
		v, ok := value.(int)
		if !ok || v < 0 || v > MaxFastRamKiB {
			return ErrInvalidValue
		}
	case OptBankMap:
		v, ok := value.(BankMap)
		if !ok || !v.valid() {
			return ErrInvalidValue
		}
	case OptUnmappingType:
		v, ok := value.(UnmappingType)
		if !ok || !v.valid() {
			return ErrInvalidValue
		}
	case OptRamInitPattern:
		v, ok := value.(RamInitPattern)
		if !ok || !v.valid() {
			return ErrInvalidValue
		}
	case OptCPURevision:
		v, ok := value.(CPURevision)
		if !ok || !v.valid() {
			return ErrInvalidValue
		}
	case OptCPUOverclocking:
		v, ok := value.(int)
		if !ok || v < 1 {
			return ErrInvalidValue
		}
	case OptDriveSpeed:
		v, ok := value.(int)
		if !ok || (v < 1 && v != -1) {
			return ErrInvalidValue
		}
	case OptAutoDskSync, OptLockDskSync, OptTodbug:
		if _, ok := value.(bool); !ok {
			return ErrInvalidValue
		}
	case OptAudSamplingMethod:
		v, ok := value.(AudioSamplingMethod)
		if !ok || !v.valid() {
			return ErrInvalidValue
		}
	default:
		return ErrInvalidValue
	}
	return nil
}

// Apply validates value against opt and, if the core is not powered
// on or the option is not powered-off-only, writes it into o.
func (o *Options) Apply(opt Option, value any, poweredOn bool) error {
	if err := Check(opt, value, poweredOn); err != nil {
		return err
	}
	switch opt {
	case OptChipRam:
		o.ChipRamKiB = value.(int)
	case OptSlowRam:
		o.SlowRamKiB = value.(int)
	case OptFastRam:
		o.FastRamKiB = value.(int)
	case OptBankMap:
		o.BankMap = value.(BankMap)
	case OptUnmappingType:
		o.UnmappingType = value.(UnmappingType)
	case OptRamInitPattern:
		o.RamInitPattern = value.(RamInitPattern)
	case OptCPURevision:
		o.CPURevision = value.(CPURevision)
	case OptCPUOverclocking:
		o.CPUOverclocking = value.(int)
	case OptDriveSpeed:
		o.DriveSpeed = value.(int)
	case OptAutoDskSync:
		o.AutoDskSync = value.(bool)
	case OptLockDskSync:
		o.LockDskSync = value.(bool)
	case OptTodbug:
		o.Todbug = value.(bool)
	case OptAudSamplingMethod:
		o.AudSamplingMethod = value.(AudioSamplingMethod)
	}
	return nil
}
