// Package sched implements the master event scheduler: a three-tier table
// of event slots driven by a single DMA-cycle counter. Every time-driven
// component (CIAs, disk controller, audio channels, interrupt controller)
// owns one or more slots and is serviced by walking the tiers in order.
package sched

import "log"

// Never marks a slot as having no pending event.
const Never uint64 = ^uint64(0)

// Slot identifies one event slot in the scheduler table.
type Slot int

// Primary tier: serviced on every call to ExecuteUntil. SlotSec is the
// wakeup slot — when it fires, the secondary tier is walked.
const (
	SlotCiaA Slot = iota
	SlotCiaB
	SlotReg
	SlotBpl
	SlotDas
	SlotCop
	SlotBlt
	SlotSec

	// Secondary tier: serviced only when SlotSec fires. SlotTert is this
	// tier's wakeup slot — when it fires, the tertiary tier is walked.
	SlotCh0
	SlotCh1
	SlotCh2
	SlotCh3
	SlotDsk
	SlotDch
	SlotVbl
	SlotIrq
	SlotIpl
	SlotPot
	SlotEol
	SlotTert

	// Tertiary tier: per-paddle discharge/charge sub-events, serviced only
	// when SlotTert fires. Four potentiometer channels, one slot each.
	SlotPot0
	SlotPot1
	SlotPot2
	SlotPot3

	slotCount
)

var primaryTier = []Slot{SlotCiaA, SlotCiaB, SlotReg, SlotBpl, SlotDas, SlotCop, SlotBlt, SlotSec}
var secondaryTier = []Slot{SlotCh0, SlotCh1, SlotCh2, SlotCh3, SlotDsk, SlotDch, SlotVbl, SlotIrq, SlotIpl, SlotPot, SlotEol, SlotTert}
var tertiaryTier = []Slot{SlotPot0, SlotPot1, SlotPot2, SlotPot3}

// EventID identifies which sub-event is pending in a slot. Each slot owner
// defines its own small set of IDs; the scheduler only compares triggers.
type EventID int

// Handler is invoked when a slot's trigger cycle has been reached.
// data carries whatever payload the owner scheduled alongside the event.
type Handler func(cycle uint64, id EventID, data uint64)

// Scheduler owns the event table and the master cycle counter.
type Scheduler struct {
	cycle    uint64
	trigger  [slotCount]uint64
	id       [slotCount]EventID
	data     [slotCount]uint64
	handlers [slotCount]Handler
}

// New creates a scheduler with every slot disarmed.
func New() *Scheduler {
	s := &Scheduler{}
	for i := range s.trigger {
		s.trigger[i] = Never
	}
	return s
}

// SetHandler registers the callback invoked when the given slot fires.
func (s *Scheduler) SetHandler(slot Slot, h Handler) {
	s.handlers[slot] = h
}

// Cycle returns the current master cycle count.
func (s *Scheduler) Cycle() uint64 {
	return s.cycle
}

// ScheduleAbs arms slot to fire at the given absolute cycle.
func (s *Scheduler) ScheduleAbs(slot Slot, cycle uint64, id EventID, data uint64) {
	s.trigger[slot] = cycle
	s.id[slot] = id
	s.data[slot] = data
	s.ensureWakeup(slot, cycle)
}

// ScheduleRel arms slot to fire `delta` cycles after the current cycle.
func (s *Scheduler) ScheduleRel(slot Slot, delta uint64, id EventID, data uint64) {
	s.ScheduleAbs(slot, s.cycle+delta, id, data)
}

// ScheduleInc arms slot to fire `delta` cycles after its own current
// trigger (used by periodic events to avoid jitter accumulation). If the
// slot has no pending trigger, it schedules relative to the current cycle.
func (s *Scheduler) ScheduleInc(slot Slot, delta uint64, id EventID, data uint64) {
	base := s.trigger[slot]
	if base == Never {
		base = s.cycle
	}
	s.ScheduleAbs(slot, base+delta, id, data)
}

// RescheduleAbs changes an already-armed slot's trigger without touching
// its id/data payload.
func (s *Scheduler) RescheduleAbs(slot Slot, cycle uint64) {
	s.trigger[slot] = cycle
	s.ensureWakeup(slot, cycle)
}

// RescheduleInc shifts an already-armed slot's trigger by delta cycles.
func (s *Scheduler) RescheduleInc(slot Slot, delta uint64) {
	if s.trigger[slot] == Never {
		return
	}
	s.RescheduleAbs(slot, s.trigger[slot]+delta)
}

// Cancel disarms a slot.
func (s *Scheduler) Cancel(slot Slot) {
	s.trigger[slot] = Never
}

// IsPending reports whether slot has an armed trigger.
func (s *Scheduler) IsPending(slot Slot) bool {
	return s.trigger[slot] != Never
}

// Trigger returns the slot's current trigger cycle, or Never.
func (s *Scheduler) Trigger(slot Slot) uint64 {
	return s.trigger[slot]
}

// ensureWakeup keeps the invariant that a tier's wakeup slot fires no
// later than the earliest event scheduled within that tier. Scheduling a
// secondary- or tertiary-tier slot must pull in its tier's wakeup slot
// (and transitively the tier above) if the new trigger is earlier.
func (s *Scheduler) ensureWakeup(slot Slot, cycle uint64) {
	switch {
	case containsSlot(secondaryTier, slot):
		if cycle < s.trigger[SlotSec] {
			s.trigger[SlotSec] = cycle
		}
	case containsSlot(tertiaryTier, slot):
		if cycle < s.trigger[SlotTert] {
			s.trigger[SlotTert] = cycle
		}
		if cycle < s.trigger[SlotSec] {
			s.trigger[SlotSec] = cycle
		}
	}
}

func containsSlot(tier []Slot, slot Slot) bool {
	for _, sl := range tier {
		if sl == slot {
			return true
		}
	}
	return false
}

// tier identifies which of the three slot tiers is being walked, and what
// (if any) wakeup slot gates the tier below it.
type tier int

const (
	tierPrimary tier = iota
	tierSecondary
	tierTertiary
)

func (t tier) slots() []Slot {
	switch t {
	case tierPrimary:
		return primaryTier
	case tierSecondary:
		return secondaryTier
	default:
		return tertiaryTier
	}
}

func (t tier) wakeup() (Slot, bool) {
	switch t {
	case tierPrimary:
		return SlotSec, true
	case tierSecondary:
		return SlotTert, true
	default:
		return 0, false
	}
}

// ExecuteUntil advances the master cycle counter to target, dispatching
// every slot whose trigger has been reached. Each pending trigger that
// falls before target is dispatched at its own cycle, so an event that a
// handler reschedules inside the span fires again within the same call.
// Tiers below the primary are only walked when their tier's wakeup slot
// actually fires, per the three-tier slot model: most cycles touch only
// a handful of primary slots (CIAs, DMA registers, blitter), and the
// secondary/tertiary tiers stay cold until something schedules into them.
func (s *Scheduler) ExecuteUntil(target uint64) {
	for {
		next := Never
		for _, t := range s.trigger {
			if t > s.cycle && t < next {
				next = t
			}
		}
		if next >= target {
			break
		}
		s.cycle = next
		s.walk(tierPrimary)
	}
	s.cycle = target
	s.walk(tierPrimary)
}

func (s *Scheduler) walk(t tier) {
	slots := t.slots()
	wakeup, hasWakeup := t.wakeup()
	fired := false
	for _, sl := range slots {
		trig := s.trigger[sl]
		if trig == Never || trig > s.cycle {
			continue
		}
		id, data := s.id[sl], s.data[sl]
		if sl == wakeup {
			fired = true
		}
		if h := s.handlers[sl]; h != nil {
			h(s.cycle, id, data)
		} else {
			log.Printf("[sched] slot %d fired with no handler registered", sl)
		}
	}
	if !hasWakeup {
		return
	}
	if fired {
		s.walk(t + 1)
		// The wakeup slot's own event has just been serviced. Recompute it
		// as the minimum trigger among the slots it gates, so it reflects
		// whatever is now the earliest pending event down there instead of
		// going stale.
		s.recompute((t + 1).slots(), wakeup)
	}
}

func (s *Scheduler) recompute(gated []Slot, wakeup Slot) {
	min := Never
	for _, sl := range gated {
		if s.trigger[sl] < min {
			min = s.trigger[sl]
		}
	}
	s.trigger[wakeup] = min
}

