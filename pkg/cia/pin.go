package cia

import "periph.io/x/periph/conn/gpio"

// Port identifies which of the two 8-bit ports a Pin reads and drives.
type Port int

const (
	PortA Port = iota
	PortB
)

// Pin is a single bit of a CIA port, satisfying the same narrow
// gpio.PinIO-compatible surface pkg/drive uses: Read returns what the
// chip currently drives onto the line, Out drives a value from an
// external device back onto it.
type Pin struct {
	cia  *CIA
	port Port
	bit  int
}

// PinA returns a handle to bit of port A.
func (c *CIA) PinA(bit int) *Pin { return &Pin{cia: c, port: PortA, bit: bit} }

// PinB returns a handle to bit of port B.
func (c *CIA) PinB(bit int) *Pin { return &Pin{cia: c, port: PortB, bit: bit} }

// Read returns the line's current level as driven by the chip.
func (p *Pin) Read() gpio.Level {
	var v uint8
	if p.port == PortA {
		v = p.cia.PA()
	} else {
		v = p.cia.PB()
	}
	return gpio.Level(v&(1<<uint(p.bit)) != 0)
}

// Out drives the line from the external side; the chip observes it the
// next time it computes the port's external input.
func (p *Pin) Out(l gpio.Level) error {
	if p.port == PortA {
		p.cia.SetExternalPA(p.bit, bool(l))
	} else {
		p.cia.SetExternalPB(p.bit, bool(l))
	}
	return nil
}
