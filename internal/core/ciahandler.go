package core

import "github.com/dirkwhoffmann/vAmiga-sub001/pkg/cia"

// ciaPort is the subset of *cia.CIA the region handler needs: register
// peek/poke only, not the chip's own scheduling or callback wiring.
type ciaPort interface {
	Peek(reg int) uint8
	Poke(reg int, v uint8)
}

// irdSource supplies the CPU's current instruction register, the value
// real hardware leaves floating on a CIA data line the addressed chip
// doesn't drive.
type irdSource interface {
	IR() uint16
}

// ciaHandler implements pkg/mem.Handler over both CIA instances,
// reproducing the address decode of original_source/Memory.cpp's
// peekCIA8/16 and pokeCIA8/16: register number is bits 8-11, and which
// chip(s) respond is selected by bits 12/13 (reads) or independently by
// bit 12 and bit 13 (writes, which may hit both chips at once on a
// 16-bit access).
type ciaHandler struct {
	ciaA, ciaB ciaPort
	ird        irdSource
}

func newCIAHandler(ciaA, ciaB *cia.CIA, ird irdSource) *ciaHandler {
	return &ciaHandler{ciaA: ciaA, ciaB: ciaB, ird: ird}
}

func ciaReg(addr uint32) int {
	return int((addr >> 8) & 0xF)
}

func (h *ciaHandler) Read8(addr uint32) uint8 {
	reg := ciaReg(addr)
	sel := (addr >> 12) & 0b11
	a0 := addr&1 != 0
	switch sel {
	case 0b00:
		if a0 {
			return h.ciaA.Peek(reg)
		}
		return h.ciaB.Peek(reg)
	case 0b01:
		if a0 {
			return uint8(h.ird.IR())
		}
		return h.ciaB.Peek(reg)
	case 0b10:
		if a0 {
			return h.ciaA.Peek(reg)
		}
		return uint8(h.ird.IR() >> 8)
	default:
		if a0 {
			return uint8(h.ird.IR())
		}
		return uint8(h.ird.IR() >> 8)
	}
}

func (h *ciaHandler) SpyRead8(addr uint32) uint8 {
	return h.Read8(addr)
}

func (h *ciaHandler) Read16(addr uint32) uint16 {
	reg := ciaReg(addr)
	sel := (addr >> 12) & 0b11
	switch sel {
	case 0b00:
		return uint16(h.ciaB.Peek(reg))<<8 | uint16(h.ciaA.Peek(reg))
	case 0b01:
		return uint16(h.ciaB.Peek(reg))<<8 | 0xFF
	case 0b10:
		return 0xFF00 | uint16(h.ciaA.Peek(reg))
	default:
		return h.ird.IR()
	}
}

func (h *ciaHandler) SpyRead16(addr uint32) uint16 {
	return h.Read16(addr)
}

func (h *ciaHandler) Write8(addr uint32, v uint8) {
	reg := ciaReg(addr)
	selA := addr&0x1000 == 0
	selB := addr&0x2000 == 0
	if selA {
		h.ciaA.Poke(reg, v)
	}
	if selB {
		h.ciaB.Poke(reg, v)
	}
}

func (h *ciaHandler) Write16(addr uint32, v uint16) {
	reg := ciaReg(addr)
	selA := addr&0x1000 == 0
	selB := addr&0x2000 == 0
	if selA {
		h.ciaA.Poke(reg, uint8(v))
	}
	if selB {
		h.ciaB.Poke(reg, uint8(v>>8))
	}
}
