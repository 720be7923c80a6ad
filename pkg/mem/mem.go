// Package mem implements the memory resolver: bit-exact translation of
// 24-bit addresses into operations on backing RAM/ROM regions or chipset
// registers, through a pair of 256-entry page tables (one per accessor).
package mem

// Region identifies the kind of backing storage a page maps to.
type Region int

const (
	RegionUnmapped Region = iota
	RegionChip
	RegionSlow
	RegionFast
	RegionRom
	RegionWom
	RegionExt
	RegionCustom
	RegionCia
	RegionRtc
	RegionAutoconfig
)

// pageShift gives a page size of 64KiB: 256 pages cover the full 24-bit
// (16MB) address space.
const pageShift = 16

// UnmappedPolicy selects what an access to an unmapped page returns.
type UnmappedPolicy int

const (
	UnmappedFloating UnmappedPolicy = iota // last value that crossed the data bus
	UnmappedOnes
	UnmappedZeroes
)

// Handler backs one region with byte- and word-granularity access, plus
// side-effect-free spy variants used by debuggers/inspectors.
type Handler interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Write8(addr uint32, v uint8)
	Write16(addr uint32, v uint16)
	SpyRead8(addr uint32) uint8
	SpyRead16(addr uint32) uint16
}

// BusPacer advances the DMA engine (copper, blitter, audio, disk DMA) to
// the next bus-free cycle. Chip, slow, and custom-register accesses pace
// against it; fast RAM does not.
type BusPacer interface {
	AwaitBusFree()
}

type noPacer struct{}

func (noPacer) AwaitBusFree() {}

// Resolver is the memory resolver. It owns the two page tables (CPU and
// Agnus/DMA accessors), the region handlers, and the shared data-bus latch.
type Resolver struct {
	cpuTable   [256]Region
	agnusTable [256]Region
	handlers   map[Region]Handler

	bus      BusPacer
	unmapped UnmappedPolicy
	latch    uint16

	overlay    bool // ROM overlay bit, driven from CIA-A parallel port bit 0
	womMode    bool // board uses write-once ROM mapping
	womLocked  bool
	romHandler *RomHandler // nil unless RegionRom is bound
}

// New creates a resolver with every page unmapped and no bus pacer
// (accesses that would pace are no-ops until SetBusPacer is called).
func New() *Resolver {
	r := &Resolver{
		handlers: make(map[Region]Handler),
		bus:      noPacer{},
	}
	return r
}

// SetBusPacer installs the DMA engine's bus-free waiter.
func (r *Resolver) SetBusPacer(b BusPacer) {
	if b == nil {
		b = noPacer{}
	}
	r.bus = b
}

// SetUnmappedPolicy selects the value returned by reads of unmapped pages.
func (r *Resolver) SetUnmappedPolicy(p UnmappedPolicy) {
	r.unmapped = p
}

// Bind installs the handler responsible for a region, and enables
// write-once tracking when it is a RomHandler bound to RegionRom.
func (r *Resolver) Bind(region Region, h Handler) {
	r.handlers[region] = h
	if region == RegionRom {
		if rh, ok := h.(*RomHandler); ok {
			r.romHandler = rh
		}
	}
}

// MapPages assigns region to every page in [lo, hi] (inclusive, 64KiB
// pages) of the given accessor's table.
func (r *Resolver) MapPages(cpu bool, lo, hi uint8, region Region) {
	table := &r.agnusTable
	if cpu {
		table = &r.cpuTable
	}
	for p := int(lo); p <= int(hi); p++ {
		table[p] = region
	}
}

// SetOverlay asserts or clears the ROM overlay bit. When asserted, the
// first 8 pages (512KiB) of CPU address space mirror the upper ROM area;
// any change rebuilds both page tables' low pages.
func (r *Resolver) SetOverlay(on bool) {
	if r.overlay == on {
		return
	}
	r.overlay = on
	if on {
		r.MapPages(true, 0, 7, RegionRom)
	} else {
		// Restored by whoever configured chip RAM at reset; the resolver
		// itself has no opinion on what the low pages map to otherwise.
		r.MapPages(true, 0, 7, RegionChip)
	}
}

// Overlay reports the current state of the ROM overlay bit.
func (r *Resolver) Overlay() bool {
	return r.overlay
}

// EnableWom marks the board as using the earlier write-once-ROM bank
// mapping: the ROM region stays writable until the first write lands in
// the ROM-mirror range, at which point it write-protects permanently.
func (r *Resolver) EnableWom() {
	r.womMode = true
	r.womLocked = false
}

// noteRomMirrorWrite is called whenever a write targets a page mapped to
// RegionWom. On WOM boards the first such write locks the ROM region
// read-only for the remainder of the session.
func (r *Resolver) noteRomMirrorWrite() {
	if !r.womMode || r.womLocked {
		return
	}
	r.womLocked = true
	if r.romHandler != nil {
		r.romHandler.Lock()
	}
}

func pageOf(addr uint32) uint8 {
	return uint8((addr >> pageShift) & 0xFF)
}

// Latch returns the data-bus latch's current value: the last byte or
// word that crossed the bus on any access. The RTC region handler reads
// this to reproduce the even-address floating-bus behavior real boards
// exhibit when the chip itself only decodes odd addresses.
func (r *Resolver) Latch() uint16 {
	return r.latch
}

// RegionAt reports which region the CPU accessor's table maps addr to.
// Used by the CPU Bus Adapter to decide whether an access needs E-clock
// alignment (CIA, RTC) without duplicating the resolver's page table.
func (r *Resolver) RegionAt(addr uint32) Region {
	return r.regionFor(true, addr)
}

func (r *Resolver) regionFor(cpu bool, addr uint32) Region {
	if cpu {
		return r.cpuTable[pageOf(addr)]
	}
	return r.agnusTable[pageOf(addr)]
}

// paces reports whether a region's accesses first advance the DMA engine
// to the next bus-free cycle. FAST RAM bypasses pacing entirely.
func paces(region Region) bool {
	switch region {
	case RegionChip, RegionSlow, RegionCustom:
		return true
	default:
		return false
	}
}

func (r *Resolver) handlerFor(region Region) Handler {
	return r.handlers[region]
}

func (r *Resolver) unmappedValue16() uint16 {
	switch r.unmapped {
	case UnmappedOnes:
		return 0xFFFF
	case UnmappedZeroes:
		return 0
	default:
		return r.latch
	}
}

func (r *Resolver) unmappedValue8() uint8 {
	switch r.unmapped {
	case UnmappedOnes:
		return 0xFF
	case UnmappedZeroes:
		return 0
	default:
		return uint8(r.latch)
	}
}

// Peek8 is the CPU accessor's byte read.
func (r *Resolver) Peek8(addr uint32) uint8 {
	return r.read8(true, addr)
}

// Peek16 is the CPU accessor's word read.
func (r *Resolver) Peek16(addr uint32) uint16 {
	return r.read16(true, addr)
}

// Poke8 is the CPU accessor's byte write.
func (r *Resolver) Poke8(addr uint32, v uint8) {
	r.write8(true, addr, v)
}

// Poke16 is the CPU accessor's word write.
func (r *Resolver) Poke16(addr uint32, v uint16) {
	r.write16(true, addr, v)
}

// Peek16Agnus is the DMA accessor's word read.
func (r *Resolver) Peek16Agnus(addr uint32) uint16 {
	return r.read16(false, addr)
}

// Poke16Agnus is the DMA accessor's word write.
func (r *Resolver) Poke16Agnus(addr uint32, v uint16) {
	r.write16(false, addr, v)
}

// SpyPeek8 / SpyPeek16 read through the CPU accessor's table without
// pacing the bus or disturbing the data-bus latch.
func (r *Resolver) SpyPeek8(addr uint32) uint8 {
	region := r.regionFor(true, addr)
	h := r.handlerFor(region)
	if h == nil {
		return r.unmappedValue8()
	}
	return h.SpyRead8(addr)
}

func (r *Resolver) SpyPeek16(addr uint32) uint16 {
	region := r.regionFor(true, addr)
	h := r.handlerFor(region)
	if h == nil {
		return r.unmappedValue16()
	}
	return h.SpyRead16(addr)
}

func (r *Resolver) read8(cpu bool, addr uint32) uint8 {
	region := r.regionFor(cpu, addr)
	if paces(region) {
		r.bus.AwaitBusFree()
	}
	h := r.handlerFor(region)
	if h == nil {
		v := r.unmappedValue8()
		r.latch = uint16(v)
		return v
	}
	v := h.Read8(addr)
	r.latch = uint16(v)
	return v
}

func (r *Resolver) read16(cpu bool, addr uint32) uint16 {
	region := r.regionFor(cpu, addr)
	if paces(region) {
		r.bus.AwaitBusFree()
	}
	h := r.handlerFor(region)
	if h == nil {
		v := r.unmappedValue16()
		r.latch = v
		return v
	}
	v := h.Read16(addr)
	r.latch = v
	return v
}

func (r *Resolver) write8(cpu bool, addr uint32, v uint8) {
	region := r.regionFor(cpu, addr)
	if paces(region) {
		r.bus.AwaitBusFree()
	}
	r.latch = uint16(v)
	if region == RegionWom {
		r.noteRomMirrorWrite()
	}
	if h := r.handlerFor(region); h != nil {
		h.Write8(addr, v)
	}
}

func (r *Resolver) write16(cpu bool, addr uint32, v uint16) {
	region := r.regionFor(cpu, addr)
	if paces(region) {
		r.bus.AwaitBusFree()
	}
	r.latch = v
	if region == RegionWom {
		r.noteRomMirrorWrite()
	}
	if h := r.handlerFor(region); h != nil {
		h.Write16(addr, v)
	}
}
