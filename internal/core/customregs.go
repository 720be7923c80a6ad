package core

// Custom chip register word offsets from 0xDFF000, standard across every
// Amiga chipset revision this core targets. Only the registers backed by
// a real subsystem in this core (the interrupt unit, the disk
// controller, the four audio-channel DMA state machines, the serial
// port, and the paddle counters) are bound; every other documented
// register — bitplane/sprite/copper/blitter pointers, the color
// palette, the display-window and sync-position registers — has no
// backing component in this core (pkg/dmabus's own doc comment notes it
// "does not fetch bitplane data, execute copper instructions, or
// perform blitter operations"), so those indices stay unbound and fall
// through to CustomRegs' own unbound-register behavior: writes silently
// absorbed, reads echo the last bus value, matching spec.md's "Unknown
// registers" clause exactly.
const (
	regDMACONR = 0x002
	regADKCONR = 0x010
	regPOT0DAT = 0x012
	regPOT1DAT = 0x014
	regPOTGOR  = 0x016
	regSERDATR = 0x018
	regINTENAR = 0x01C
	regINTREQR = 0x01E
	regDSKPTH  = 0x020
	regDSKPTL  = 0x022
	regDSKLEN  = 0x024
	regSERDAT  = 0x030
	regSERPER  = 0x032
	regPOTGO   = 0x034
	regDMACON  = 0x096
	regINTENA  = 0x09A
	regINTREQ  = 0x09C
	regADKCON  = 0x09E
	regDSKSYNC = 0x07E
	regAud0Len = 0x0A4
	regAud0Per = 0x0A6
	regAud0Vol = 0x0A8
	regAud0Dat = 0x0AA
	audChanStride = 0x10
)

func regIdx(offset int) int { return offset / 2 }

// bindCustomRegisters wires the chipset register file to the
// components it actually backs.
func (c *Core) bindCustomRegisters() {
	reg := c.custom

	reg.Bind(regIdx(regDMACONR), func(uint32) uint16 { return c.dmacon }, nil)
	reg.Bind(regIdx(regDMACON), nil, func(_ uint32, v uint16) { c.writeDmacon(v) })

	reg.Bind(regIdx(regINTENAR), func(uint32) uint16 { return uint16(c.adi.Enable()) }, nil)
	reg.Bind(regIdx(regINTENA), nil, func(_ uint32, v uint16) { c.adi.SetEnable(v) })
	reg.Bind(regIdx(regINTREQR), func(uint32) uint16 { return uint16(c.adi.Request()) }, nil)
	reg.Bind(regIdx(regINTREQ), nil, func(_ uint32, v uint16) { c.adi.SetRequest(v) })

	reg.Bind(regIdx(regADKCONR), func(uint32) uint16 { return c.adkcon }, nil)
	reg.Bind(regIdx(regADKCON), nil, func(_ uint32, v uint16) { c.writeAdkcon(v) })

	reg.Bind(regIdx(regDSKPTH), nil, func(_ uint32, v uint16) { c.disk.WriteDskpth(v) })
	reg.Bind(regIdx(regDSKPTL), nil, func(_ uint32, v uint16) { c.disk.WriteDskptl(v) })
	reg.Bind(regIdx(regDSKLEN), nil, func(_ uint32, v uint16) { c.disk.WriteDsklen(v) })
	reg.Bind(regIdx(regDSKSYNC), nil, func(_ uint32, v uint16) {
		if c.cfg.LockDskSync {
			return
		}
		c.disk.WriteDsksync(v)
	})

	reg.Bind(regIdx(regSERDATR), func(uint32) uint16 { return c.readSerdatr() }, nil)
	reg.Bind(regIdx(regSERDAT), nil, func(_ uint32, v uint16) { c.writeSerdat(v) })
	reg.Bind(regIdx(regSERPER), nil, func(_ uint32, v uint16) { c.uartPeriod = v })

	reg.Bind(regIdx(regPOT0DAT), func(uint32) uint16 { return c.potDat(0) }, nil)
	reg.Bind(regIdx(regPOT1DAT), func(uint32) uint16 { return c.potDat(1) }, nil)
	reg.Bind(regIdx(regPOTGOR), func(uint32) uint16 { return c.potgo }, nil)
	reg.Bind(regIdx(regPOTGO), nil, func(_ uint32, v uint16) { c.writePotgo(v) })

	for ch := 0; ch < 4; ch++ {
		ch := ch
		base := ch * audChanStride
		reg.Bind(regIdx(regAud0Len+base), nil, func(_ uint32, v uint16) { c.adi.Audio(ch).SetLength(v) })
		reg.Bind(regIdx(regAud0Per+base), nil, func(_ uint32, v uint16) { c.adi.Audio(ch).SetPeriod(v) })
		reg.Bind(regIdx(regAud0Vol+base), nil, func(_ uint32, v uint16) { c.adi.Audio(ch).SetVolume(uint8(v)) })
		reg.Bind(regIdx(regAud0Dat+base), nil, func(_ uint32, v uint16) { c.adi.Audio(ch).FeedWord(v) })
	}
}

// writeDmacon applies a set/clear write to the DMA control register.
// Only the per-channel audio enable bits (0-3) and the master DMA
// enable bit (9) are backed by a real subsystem in this core; the
// bitplane/copper/blitter/sprite enable bits this register also carries
// on real hardware are stored but have no DMA engine to gate.
func (c *Core) writeDmacon(v uint16) {
	if v&0x8000 != 0 {
		c.dmacon |= v &^ 0x8000
	} else {
		c.dmacon &^= v &^ 0x8000
	}
	master := c.dmacon&0x0200 != 0
	for ch := 0; ch < 4; ch++ {
		c.adi.Audio(ch).SetDMAEnabled(master && c.dmacon&(1<<uint(ch)) != 0)
	}
}

// ADKCON bits this core backs: bit 15 is the set/clear direction shared
// by every Paula register that uses it; bit 10 arms the disk sync
// watchdog (pkg/disk's AutoSync) and bit 9 selects word-sync gating
// (pkg/disk's WordSyncMode), matching the chipset's documented WORDSYNC/
// FAST bit positions.
const (
	adkconWordSync = 1 << 9
	adkconAutoSync = 1 << 10
)

func (c *Core) writeAdkcon(v uint16) {
	if v&0x8000 != 0 {
		c.adkcon |= v &^ 0x8000
	} else {
		c.adkcon &^= v &^ 0x8000
	}
	c.disk.SetWordSyncMode(c.adkcon&adkconWordSync != 0)
	c.disk.SetAutoSync(c.adkcon&adkconAutoSync != 0)
}

func (c *Core) readSerdatr() uint16 {
	u := c.adi.Uart()
	var v uint16
	if u.TxEmpty() {
		v |= 1 << 13
	}
	if u.RxFull() {
		v |= 1 << 14
	}
	v |= uint16(u.ReadRx())
	return v
}

func (c *Core) writeSerdat(v uint16) {
	if c.adi.Uart().WriteTx(uint8(v)) {
		c.adi.Uart().CompleteTx()
	}
}

// potDat reads back the ch'th paddle counter's accumulated value in its
// low byte, matching POT0DAT/POT1DAT's documented layout (the high byte
// carries the second axis of the same connector, not modeled here).
func (c *Core) potDat(ch int) uint16 {
	return uint16(c.adi.Pot(ch).Value())
}

// writePotgo starts all four paddle counters together when the START
// bit (bit 0) is set, matching spec.md's pot-go description: a single
// write arms every counter's discharge-then-charge sequence at once.
func (c *Core) writePotgo(v uint16) {
	c.potgo = v
	if v&0x01 != 0 {
		for ch := 0; ch < 4; ch++ {
			c.adi.Pot(ch).Start()
		}
	}
}
