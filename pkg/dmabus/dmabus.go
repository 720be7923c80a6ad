// Package dmabus arbitrates ownership of each DMA bus cycle among the
// fixed-priority consumers of the Amiga chipset: bitplane fetch, the
// disk/audio/sprite group, the copper, the blitter, and the CPU. It
// implements only the bus-ownership contract the CPU Bus Adapter and the
// Disk Controller depend on — it does not fetch bitplane data, execute
// copper instructions, or perform blitter operations; those pixel and
// sample pipelines are an external collaborator this package never models.
package dmabus

// Channel identifies one DMA consumer, in descending priority order.
type Channel int

const (
	ChannelBitplane Channel = iota
	ChannelDisk
	ChannelAudio
	ChannelSprite
	ChannelCopper
	ChannelBlitter
	ChannelCPU

	channelCount
)

var priorityOrder = []Channel{
	ChannelBitplane, ChannelDisk, ChannelAudio, ChannelSprite,
	ChannelCopper, ChannelBlitter, ChannelCPU,
}

// Arbiter tracks, for the current DMA cycle, which channels are
// requesting the bus and which one (if any) currently owns it.
type Arbiter struct {
	requested [channelCount]bool
	cycle     uint64
	owner     Channel
	hasOwner  bool
}

// New creates an arbiter with no channel requesting the bus.
func New() *Arbiter {
	return &Arbiter{}
}

// Request marks ch as wanting the bus starting this cycle. It stays
// pending until Release is called, even across cycle boundaries — the
// caller owns the higher-level protocol of when a request is withdrawn.
func (a *Arbiter) Request(ch Channel) {
	a.requested[ch] = true
}

// Release withdraws ch's bus request.
func (a *Arbiter) Release(ch Channel) {
	a.requested[ch] = false
	if a.hasOwner && a.owner == ch {
		a.hasOwner = false
	}
}

// Claim grants the bus for the given cycle to the highest-priority
// requesting channel and returns it. If no channel is requesting, the
// bus is free and ok is false.
func (a *Arbiter) Claim(cycle uint64) (ch Channel, ok bool) {
	a.cycle = cycle
	for _, c := range priorityOrder {
		if a.requested[c] {
			a.owner = c
			a.hasOwner = true
			return c, true
		}
	}
	a.hasOwner = false
	return 0, false
}

// Owner returns the channel currently owning the bus, if any.
func (a *Arbiter) Owner() (Channel, bool) {
	return a.owner, a.hasOwner
}

// BusFree reports whether the given channel may use the current DMA
// cycle: either nothing owns it yet, or ch itself is the current owner.
// A lower-priority channel calls this before consuming a cycle it has
// requested; a higher-priority channel's pending request always wins on
// the next Claim.
func (a *Arbiter) BusFree(cycle uint64, ch Channel) bool {
	if cycle != a.cycle {
		return true
	}
	if !a.hasOwner {
		return true
	}
	return a.owner == ch
}
