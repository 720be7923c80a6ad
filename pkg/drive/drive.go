// Package drive implements the mechanical timing of a single floppy
// drive: head stepping, motor spin-up/spin-down, disk insertion and
// ejection, the polling-detector heuristic, and the disk-change latch.
// Physical signal lines (motor, step direction, disk-change) are exposed
// as periph.io GPIO pins so the drive can be wired to the same
// conn/gpio.PinIO abstraction the rest of the pack uses for hardware I/O.
package drive

import (
	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/sched"
	"periph.io/x/periph/conn/gpio"
)

const (
	maxCylinder  = 83
	historyDepth = 8
)

// signalPin is the narrow surface of gpio.PinIO this package actually
// drives; any real gpio.PinIO value satisfies it.
type signalPin interface {
	Read() gpio.Level
	Out(l gpio.Level) error
}

// speedCurve is a piecewise-linear spin-up/spin-down ramp: 0% at cycle 0,
// 100% at startDelay, back to 0% startDelay+stopDelay after motor-off.
type speedCurve struct {
	startDelay uint64
	stopDelay  uint64
}

// Disk is the minimal track-image surface the drive reads bytes from.
type Disk interface {
	ReadByteAt(cylinder, side int, offset int) uint8
	TrackLength(cylinder, side int) int
}

// Mechanism is one floppy drive's mechanical state machine.
type Mechanism struct {
	sched *sched.Scheduler
	curve speedCurve

	disk Disk

	cylinder int
	side     int
	offset   int

	motorOn       bool
	motorSwitchAt uint64

	lastStepUp   uint64
	lastStepDown uint64
	steppedUp    bool
	steppedDown  bool
	stepDelay    uint64
	reverseDelay uint64

	history    [historyDepth]int
	historyLen int
	polling    bool

	diskChange       bool
	pendingChangeArm bool
	pendingDisk      Disk

	motorLine  signalPin
	stepLine   signalPin
	changeLine signalPin
}

// New creates a drive mechanism with no disk inserted and the motor off.
func New(s *sched.Scheduler, stepDelay, reverseDelay, motorStart, motorStop uint64) *Mechanism {
	return &Mechanism{
		sched:        s,
		curve:        speedCurve{startDelay: motorStart, stopDelay: motorStop},
		stepDelay:    stepDelay,
		reverseDelay: reverseDelay,
	}
}

// WireSignals attaches the physical GPIO lines other components observe.
// Any may be nil to leave that line unconnected.
func (m *Mechanism) WireSignals(motor, step, change signalPin) {
	m.motorLine, m.stepLine, m.changeLine = motor, step, change
}

// Step moves the head one cylinder toward direction (+1 or -1) if the
// step-pulse delay has elapsed since the last step, and — if this step
// reverses the previous direction — if the reverse-direction delay has
// also elapsed.
func (m *Mechanism) Step(direction int) {
	now := m.sched.Cycle()

	if direction > 0 {
		if m.steppedUp && now-m.lastStepUp < m.stepDelay {
			return
		}
		if m.steppedDown && m.lastStepDown > m.lastStepUp && now-m.lastStepDown < m.reverseDelay {
			return
		}
		m.lastStepUp = now
		m.steppedUp = true
	} else {
		if m.steppedDown && now-m.lastStepDown < m.stepDelay {
			return
		}
		if m.steppedUp && m.lastStepUp > m.lastStepDown && now-m.lastStepUp < m.reverseDelay {
			return
		}
		m.lastStepDown = now
		m.steppedDown = true
	}

	next := m.cylinder + direction
	if next < 0 {
		next = 0
	}
	if next > maxCylinder {
		next = maxCylinder
	}
	m.cylinder = next
	m.offset = 0
	m.pushHistory(next)

	if m.diskChangeArmed() {
		m.diskChange = true
		m.setChangeLine(true)
	}

	if m.stepLine != nil {
		m.stepLine.Out(gpio.High)
	}
}

// diskChangeArmed is set by InsertDisk and cleared the first time Step
// fires afterward, matching the hardware latch: the disk-change line
// re-asserts on insertion *and* on the first step after insertion.
func (m *Mechanism) diskChangeArmed() bool {
	armed := m.pendingChangeArm
	m.pendingChangeArm = false
	return armed
}

func (m *Mechanism) pushHistory(cyl int) {
	copy(m.history[1:], m.history[:historyDepth-1])
	m.history[0] = cyl
	if m.historyLen < historyDepth {
		m.historyLen++
	}
	m.polling = m.looksLikePolling()
}

// looksLikePolling detects the two documented patterns: an alternating
// 0,1,0,1... sweep, or a monotonic 0,1,2,3... sweep.
func (m *Mechanism) looksLikePolling() bool {
	if m.historyLen < 4 {
		return false
	}
	alt, mono := true, true
	for i := 0; i < 3; i++ {
		if m.history[i] != m.history[i+2] {
			alt = false
		}
		if m.history[i] != m.history[i+1]+1 && m.history[i+1] != 0 {
			mono = false
		}
	}
	return alt || mono
}

// Polling reports whether the last few steps match a known polling
// pattern; a caller should log a "poll" rather than a "step" message.
func (m *Mechanism) Polling() bool {
	return m.polling
}

// SetMotor turns the spindle motor on or off, capturing the cycle and
// instantaneous speed at the moment of the switch.
func (m *Mechanism) SetMotor(on bool) {
	if m.motorOn == on {
		return
	}
	m.motorOn = on
	m.motorSwitchAt = m.sched.Cycle()
	if m.motorLine != nil {
		m.motorLine.Out(gpio.Level(on))
	}
}

// Speed returns the motor's current speed as a percentage (0-100),
// following the piecewise-linear spin-up/spin-down ramp.
func (m *Mechanism) Speed() int {
	elapsed := m.sched.Cycle() - m.motorSwitchAt
	if m.motorOn {
		if elapsed >= m.curve.startDelay {
			return 100
		}
		if m.curve.startDelay == 0 {
			return 100
		}
		return int(elapsed * 100 / m.curve.startDelay)
	}
	if elapsed >= m.curve.stopDelay || m.curve.stopDelay == 0 {
		return 0
	}
	return 100 - int(elapsed*100/m.curve.stopDelay)
}

// InsertDisk schedules a disk insertion after delay cycles.
func (m *Mechanism) InsertDisk(d Disk, delay uint64) {
	m.sched.ScheduleRel(sched.SlotDch, delay, sched.EventID(1), 0)
	m.pendingDisk = d
	m.sched.SetHandler(sched.SlotDch, m.onDiskChangeEvent)
}

// EjectDisk schedules a disk ejection after delay cycles.
func (m *Mechanism) EjectDisk(delay uint64) {
	m.sched.ScheduleRel(sched.SlotDch, delay, sched.EventID(0), 0)
	m.pendingDisk = nil
	m.sched.SetHandler(sched.SlotDch, m.onDiskChangeEvent)
}

func (m *Mechanism) onDiskChangeEvent(cycle uint64, id sched.EventID, data uint64) {
	if id == 1 {
		m.disk = m.pendingDisk
		m.diskChange = true
		m.pendingChangeArm = true
		m.setChangeLine(true)
	} else {
		m.disk = nil
		m.diskChange = false
		m.pendingChangeArm = false
		m.setChangeLine(false)
	}
}

func (m *Mechanism) setChangeLine(asserted bool) {
	if m.changeLine != nil {
		m.changeLine.Out(gpio.Level(asserted))
	}
}

// HasDisk reports whether a disk is currently inserted.
func (m *Mechanism) HasDisk() bool {
	return m.disk != nil
}

// DiskChanged reports the current state of the disk-change latch.
func (m *Mechanism) DiskChanged() bool {
	return m.diskChange
}

// Cylinder reports the head's current cylinder (0-83). The owning core
// compares this against 0 to drive the track-0 sensor line.
func (m *Mechanism) Cylinder() int {
	return m.cylinder
}

// SetSide selects the active head (0 or 1), driven from the CIA's side
// select line.
func (m *Mechanism) SetSide(side int) {
	m.side = side
}

// ReadByte returns 0xFF if no disk is present, a value derived from the
// cylinder (standing in for a pseudo-random byte) while a step is still
// settling, or the byte at the current head position otherwise.
func (m *Mechanism) ReadByte() uint8 {
	if m.disk == nil {
		return 0xFF
	}
	if (m.steppedUp && m.sched.Cycle()-m.lastStepUp < m.stepDelay) ||
		(m.steppedDown && m.sched.Cycle()-m.lastStepDown < m.stepDelay) {
		return pseudoRandomByte(m.sched.Cycle())
	}
	length := m.disk.TrackLength(m.cylinder, m.side)
	if length == 0 {
		return 0xFF
	}
	b := m.disk.ReadByteAt(m.cylinder, m.side, m.offset)
	m.offset = (m.offset + 1) % length
	return b
}

func pseudoRandomByte(cycle uint64) uint8 {
	x := cycle*2654435761 + 1
	return uint8(x >> 24)
}
