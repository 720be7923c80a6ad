package cia

// The timer chip pipelines several internal signals by one or more chip
// cycles: a counter underflow doesn't reload the counter or raise an
// interrupt until a fixed number of cycles later. The hardware emulator
// this package is grounded on (CIA::executeOneCycle in CIA.cpp) models
// that pipelining with a single 64-bit word, shifted left by one bit
// every cycle, where each named signal occupies a fixed bit position
// ("stageN" meaning N cycles after the signal was first raised).
//
// CIA.cpp references these bit names directly (CIACountA0..CIACountA3,
// CIALoadA1, CIAOneShotA0, CIASsrToSdr0..3, and so on) but their exact
// bit positions are defined in a header that isn't part of this
// retrieval pack. The assignment below is this package's own, chosen to
// preserve the stage count and read/write pattern CIA.cpp exercises
// (e.g. CountA is read at stage 3, three cycles after being fed at stage
// 0). A one-bit gap is inserted after every chain so a stage shifting
// past its last defined position lands on a masked-off bit instead of
// colliding with the next chain's stage 0 -- delayMask clears those gaps
// on every shift.
const (
	delayCountA0 = uint64(1) << iota
	delayCountA1
	delayCountA2
	delayCountA3
	_gapA

	delayCountB0
	delayCountB1
	delayCountB2
	delayCountB3
	_gapB

	delayLoadA0
	delayLoadA1
	_gapLoadA

	delayLoadB0
	delayLoadB1
	_gapLoadB

	delayOneShotA0
	delayOneShotB0
	_gapOneShot

	delaySsrToSdr0
	delaySsrToSdr1
	delaySsrToSdr2
	delaySsrToSdr3
	_gapSsrToSdr

	delaySdrToSsr0
	delaySdrToSsr1
	_gapSdrToSsr

	delaySerClk0
	delaySerClk1
	delaySerClk2
	_gapSerClk

	delaySerInt0
	delaySerInt1
	delaySerInt2
	_gapSerInt

	delayPB6Low0
	delayPB6Low1
	_gapPB6Low

	delayPB7Low0
	delayPB7Low1
	_gapPB7Low

	delayTODInt0
	_gapTODInt

	delaySetInt0
	delaySetInt1
	_gapSetInt

	delaySetIcr0
	delaySetIcr1
	_gapSetIcr

	delayClearIcr0
	delayClearIcr1
	_gapClearIcr

	delayAckIcr0
	delayAckIcr1
	_gapAckIcr

	delayClearInt0
	delayClearInt1
	_gapClearInt

	delayReadIcr0
	delayReadIcr1
)

// delayMask keeps every named stage bit and clears every gap bit, so a
// chain's terminal stage shifting one bit further never bleeds into the
// next chain's stage 0.
const delayMask = delayCountA0 | delayCountA1 | delayCountA2 | delayCountA3 |
	delayCountB0 | delayCountB1 | delayCountB2 | delayCountB3 |
	delayLoadA0 | delayLoadA1 |
	delayLoadB0 | delayLoadB1 |
	delayOneShotA0 | delayOneShotB0 |
	delaySsrToSdr0 | delaySsrToSdr1 | delaySsrToSdr2 | delaySsrToSdr3 |
	delaySdrToSsr0 | delaySdrToSsr1 |
	delaySerClk0 | delaySerClk1 | delaySerClk2 |
	delaySerInt0 | delaySerInt1 | delaySerInt2 |
	delayPB6Low0 | delayPB6Low1 |
	delayPB7Low0 | delayPB7Low1 |
	delayTODInt0 |
	delaySetInt0 | delaySetInt1 |
	delaySetIcr0 | delaySetIcr1 |
	delayClearIcr0 | delayClearIcr1 |
	delayAckIcr0 | delayAckIcr1 |
	delayClearInt0 | delayClearInt1 |
	delayReadIcr0 | delayReadIcr1
