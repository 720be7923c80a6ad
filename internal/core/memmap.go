package core

import (
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/config"
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/mem"
)

// pageSize is the resolver's page granularity (64KiB), matching
// pkg/mem.pageShift.
const pageSize = 0x10000

// bankIsOld reports whether bm models one of the two early bank-mapping
// variants (A1000, A2000 rev-A), which place the real-time clock at
// 0xD80000-0xDBFFFF instead of 0xDC0000 and use the write-once ROM
// scheme. Grounded on original_source/Memory.cpp's
// updateCpuMemSrcTable: "bool old = config.bankMap == BANK_MAP_A1000 ||
// config.bankMap == BANK_MAP_A2000A".
func bankIsOld(bm config.BankMap) bool {
	return bm == config.BankMapA1000 || bm == config.BankMapA2000A
}

// buildMemoryMap binds every region handler and lays out both page
// tables, following original_source/Memory.cpp's updateCpuMemSrcTable
// page-by-page. Chip RAM, CIA, and slow RAM are mapped across their
// full real-hardware page ranges regardless of installed size: the
// region handlers themselves (pkg/mem/ram.go's modulo-wrapping
// RamHandler, and the CIA handler's own address-bit decode) reproduce
// the mirroring a real board shows for free, so no separate "mirror"
// region variant is needed the way the original's MEM_CHIP_MIRROR/
// MEM_CIA_MIRROR constants are.
func buildMemoryMap(r *mem.Resolver, cfg config.Options, chip, slow, fast *mem.RamHandler, rom *mem.RomHandler, ciaHandler mem.Handler, rtcHandler mem.Handler, custom *mem.CustomRegs) {
	// Chip RAM: the full 0x000000-0x1FFFFF CPU/Agnus window, mirrored
	// automatically by RamHandler.mask when chip RAM is smaller than 2MB.
	r.Bind(mem.RegionChip, chip)
	r.MapPages(true, 0x00, 0x1F, mem.RegionChip)
	r.MapPages(false, 0x00, 0x1F, mem.RegionChip)

	// CIA-A/CIA-B, address-decoded by ciaHandler itself off bits 12/13;
	// every page in the real 0xA0-0xBF range reaches the same decode.
	r.Bind(mem.RegionCia, ciaHandler)
	r.MapPages(true, 0xA0, 0xBF, mem.RegionCia)

	// Slow RAM: installed pages get RegionSlow, the rest of the real
	// 0xC0-0xD7 range echoes the custom chip registers exactly as an
	// unpopulated slow-RAM board does.
	if cfg.SlowRamKiB > 0 {
		r.Bind(mem.RegionSlow, slow)
		slowPages := uint8(cfg.SlowRamKiB * 1024 / pageSize)
		if slowPages > 0 {
			r.MapPages(true, 0xC0, 0xC0+slowPages-1, mem.RegionSlow)
		}
		if slowPages < 0x18 {
			r.MapPages(true, 0xC0+slowPages, 0xD7, mem.RegionCustom)
		}
	} else {
		r.MapPages(true, 0xC0, 0xD7, mem.RegionCustom)
	}

	// Real-time clock: early boards decode it at 0xD80000, later boards
	// at 0xDC0000; the other location falls back to the custom register
	// space, matching the original's "old" branch exactly.
	r.Bind(mem.RegionRtc, rtcHandler)
	if bankIsOld(cfg.BankMap) {
		r.MapPages(true, 0xD8, 0xDB, mem.RegionRtc)
		r.MapPages(true, 0xDC, 0xDC, mem.RegionCustom)
	} else {
		r.MapPages(true, 0xD8, 0xDB, mem.RegionCustom)
		r.MapPages(true, 0xDC, 0xDC, mem.RegionRtc)
	}
	// 0xDD is reserved and left unmapped.

	r.Bind(mem.RegionCustom, custom)
	r.MapPages(true, 0xDE, 0xDF, mem.RegionCustom)
	r.MapPages(false, 0xDE, 0xDF, mem.RegionCustom)

	// Kickstart ROM mirror: present on every variant except the A1000,
	// which has no ROM overlay window below the autoconfig space. This
	// is also the "ROM-mirror area" spec.md's write-once-ROM wording
	// refers to: a write landing here is what locks a WOM board's ROM
	// region read-only.
	r.Bind(mem.RegionRom, rom)
	r.Bind(mem.RegionWom, rom)
	if cfg.BankMap != config.BankMapA1000 {
		r.MapPages(true, 0xE0, 0xE7, mem.RegionWom)
	}
	// 0xE8 autoconfig space, 0xE9-0xEF and 0xF0-0xF7: no expansion-board
	// or extended-ROM model exists in this core, so these stay unmapped
	// and read back through the resolver's UnmappedPolicy, exactly the
	// behavior a board with nothing fitted there shows.

	// Kickstart ROM, 512KiB at the top of the address space.
	r.MapPages(true, 0xF8, 0xFF, mem.RegionRom)

	if bankIsOld(cfg.BankMap) {
		r.EnableWom()
	}

	// Fast RAM, when configured, starts at 0x200000.
	if cfg.FastRamKiB > 0 {
		r.Bind(mem.RegionFast, fast)
		fastPages := uint8(cfg.FastRamKiB * 1024 / pageSize)
		r.MapPages(true, 0x20, 0x20+fastPages-1, mem.RegionFast)
	}

	switch cfg.UnmappingType {
	case config.UnmappingOnes:
		r.SetUnmappedPolicy(mem.UnmappedOnes)
	case config.UnmappingZeroes:
		r.SetUnmappedPolicy(mem.UnmappedZeroes)
	default:
		r.SetUnmappedPolicy(mem.UnmappedFloating)
	}

	// Overlay starts asserted: a freshly reset CIA-A reads port A as all
	// ones (DDRA is 0, so every bit floats to externalPA's reset value
	// of 0xFF), which is exactly the state a real Amiga powers on in —
	// ROM mapped at address 0 until the boot code clears OVL.
	r.SetOverlay(true)
}
