package cia

// TOD is the time-of-day counter: a BCD tenths/seconds/minutes/hours
// chain driven by a fixed divider off the chip's own E-clock, with an
// alarm register and the write/read freeze behavior real 6526 software
// relies on: writing the hours register stops the counter until tenths
// is written back; reading hours latches seconds/minutes/tenths so a
// multi-byte read can't observe a carry mid-read.
//
// tenthPeriod approximates the real 10Hz tick derived from the 6526's
// crystal input in E-clock units; it is not cycle-exact (the true
// divider depends on the TOD pin's external oscillator, which this
// emulator does not separately model).
const tenthPeriod = 71590

type TOD struct {
	cia *CIA

	tenths, seconds, minutes, hours uint8 // each a BCD byte; hours bit7 = PM

	alarmTenths, alarmSeconds, alarmMinutes, alarmHours uint8

	latched                                            bool
	latchTenths, latchSeconds, latchMinutes, latchHours uint8

	stopped   bool // true between a write to hours and the matching write to tenths
	writeMode bool // crb bit7 at the time of the last write: true selects the alarm regs

	tickAccum uint64
	todBug    bool
}

func (t *TOD) bind(c *CIA) { t.cia = c }

func (t *TOD) reset() {
	t.tenths, t.seconds, t.minutes, t.hours = 0, 0, 0, 0
	t.alarmTenths, t.alarmSeconds, t.alarmMinutes, t.alarmHours = 0, 0, 0, 0
	t.latched = false
	t.stopped = false
	t.tickAccum = 0
}

// SetTodBug sets the TOD erratum flag. The flag is saved and restored
// with the TOD state, but the counter and alarm logic do not consult it:
// carries and alarm matches behave the same whether it is set or not.
func (t *TOD) SetTodBug(on bool) { t.todBug = on }

func (t *TOD) snapshot() (tenths, seconds, minutes, hours uint8) {
	if t.latched {
		return t.latchTenths, t.latchSeconds, t.latchMinutes, t.latchHours
	}
	return t.tenths, t.seconds, t.minutes, t.hours
}

func (t *TOD) peekTenths() uint8 {
	tenths, _, _, _ := t.snapshot()
	t.latched = false
	return tenths
}

func (t *TOD) peekSeconds() uint8 {
	_, seconds, _, _ := t.snapshot()
	return seconds
}

func (t *TOD) peekMinutes() uint8 {
	_, _, minutes, _ := t.snapshot()
	return minutes
}

func (t *TOD) peekHours() uint8 {
	t.latchTenths, t.latchSeconds, t.latchMinutes, t.latchHours = t.tenths, t.seconds, t.minutes, t.hours
	t.latched = true
	return t.latchHours
}

func (t *TOD) pokeTenths(v uint8, alarmMode bool) {
	if alarmMode {
		t.alarmTenths = v & 0x0F
		return
	}
	t.tenths = v & 0x0F
	t.stopped = false
}

func (t *TOD) pokeSeconds(v uint8, alarmMode bool) {
	if alarmMode {
		t.alarmSeconds = v & 0x7F
		return
	}
	t.seconds = v & 0x7F
}

func (t *TOD) pokeMinutes(v uint8, alarmMode bool) {
	if alarmMode {
		t.alarmMinutes = v & 0x7F
		return
	}
	t.minutes = v & 0x7F
}

func (t *TOD) pokeHours(v uint8, alarmMode bool) {
	if alarmMode {
		t.alarmHours = v & 0x9F
		return
	}
	t.hours = v & 0x9F
	t.stopped = true
}

// advance folds n whole E-clock ticks into the counter without
// evaluating the alarm; used to fast-forward through a sleep gap.
func (t *TOD) advance(n uint64) {
	if t.stopped {
		return
	}
	t.tickAccum += n
	for t.tickAccum >= tenthPeriod {
		t.tickAccum -= tenthPeriod
		t.incrementTenths()
	}
}

// tickedInterrupt folds in a single E-clock tick and reports whether the
// counter just reached its alarm value.
func (t *TOD) tickedInterrupt() bool {
	if t.stopped {
		return false
	}
	t.tickAccum++
	if t.tickAccum < tenthPeriod {
		return false
	}
	t.tickAccum -= tenthPeriod
	t.incrementTenths()
	return t.matchesAlarm()
}

func (t *TOD) incrementTenths() {
	t.tenths = bcdInc(t.tenths, 9)
	if t.tenths != 0 {
		return
	}
	t.seconds = bcdInc(t.seconds, 0x59)
	if t.seconds != 0 {
		return
	}
	t.minutes = bcdInc(t.minutes, 0x59)
	if t.minutes != 0 {
		return
	}
	t.incrementHours()
}

func (t *TOD) incrementHours() {
	pm := t.hours & 0x80
	h := t.hours & 0x1F
	h = bcdInc(h, 0x12)
	if h == 0 {
		h = 1
		pm ^= 0x80 // crossing 12 toggles AM/PM
	}
	t.hours = h | pm
}

// bcdInc increments a BCD byte by one, wrapping to 0 after max (a BCD
// value such as 0x59 or 0x09).
func bcdInc(v, max uint8) uint8 {
	if v == max {
		return 0
	}
	lo := v & 0x0F
	if lo == 9 {
		return (v &^ 0x0F) + 0x10
	}
	return v + 1
}

func (t *TOD) matchesAlarm() bool {
	return t.tenths == t.alarmTenths &&
		t.seconds == t.alarmSeconds &&
		t.minutes == t.alarmMinutes &&
		t.hours == t.alarmHours
}
