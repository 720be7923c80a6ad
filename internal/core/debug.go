package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Execute implements pkg/remote.Executor for the line-buffered terminal
// protocol: a small set of space-separated commands operating directly
// on the running core, in the spirit of the teacher's own debug-console
// commands.
func (c *Core) Execute(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	switch fields[0] {
	case "step":
		n := 1
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return "", fmt.Errorf("step: %w", err)
			}
			n = v
		}
		var cycles int
		for i := 0; i < n; i++ {
			cycles += c.Step()
		}
		return fmt.Sprintf("stepped %d instruction(s), %d cycles, PC=%06x", n, cycles, c.cpu.Registers().PC), nil

	case "reset":
		c.HardReset()
		return "reset", nil

	case "cycle":
		return fmt.Sprintf("%d", c.Cycle()), nil

	case "regs":
		r := c.cpu.Registers()
		return fmt.Sprintf("PC=%06x SR=%04x D0-7=%08x,%08x,%08x,%08x,%08x,%08x,%08x,%08x A0-7=%08x,%08x,%08x,%08x,%08x,%08x,%08x,%08x",
			r.PC, r.SR, r.D[0], r.D[1], r.D[2], r.D[3], r.D[4], r.D[5], r.D[6], r.D[7],
			r.A[0], r.A[1], r.A[2], r.A[3], r.A[4], r.A[5], r.A[6], r.A[7]), nil

	case "peek8":
		addr, err := parseAddr(fields)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%02x", c.Peek8(addr)), nil

	case "peek16":
		addr, err := parseAddr(fields)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%04x", c.Peek16(addr)), nil

	case "poke8":
		addr, val, err := parseAddrVal(fields)
		if err != nil {
			return "", err
		}
		c.Poke8(addr, uint8(val))
		return "ok", nil

	case "poke16":
		addr, val, err := parseAddrVal(fields)
		if err != nil {
			return "", err
		}
		c.Poke16(addr, uint16(val))
		return "ok", nil

	default:
		return "", fmt.Errorf("unrecognized command %q", fields[0])
	}
}

func parseAddr(fields []string) (uint32, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("missing address")
	}
	v, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address: %w", err)
	}
	return uint32(v), nil
}

func parseAddrVal(fields []string) (uint32, uint64, error) {
	if len(fields) < 3 {
		return 0, 0, fmt.Errorf("missing address/value")
	}
	addr, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad address: %w", err)
	}
	val, err := strconv.ParseUint(fields[2], 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad value: %w", err)
	}
	return uint32(addr), val, nil
}

// gdbRegCount is the number of registers in a 'g' reply, in the order
// the m68k GDB target description expects: D0-D7, A0-A7, SR, PC, each
// 32 bits.
const gdbRegCount = 18

// HandlePacket implements pkg/remote.GdbHandler, answering the small
// subset of the GDB remote-serial protocol this core supports: register
// read ('g'), memory read/write ('m'/'M'), single step ('s'), continue
// ('c', which this core treats as "run one instruction" since it has no
// free-running host loop to hand control to), and the stop-reply query
// ('?').
func (c *Core) HandlePacket(payload string) (string, error) {
	if payload == "" {
		return "", nil
	}
	switch payload[0] {
	case '?':
		return "S05", nil

	case 'g':
		return c.gdbReadRegs(), nil

	case 'G':
		return "OK", c.gdbWriteRegs(payload[1:])

	case 'm':
		return c.gdbReadMem(payload[1:])

	case 'M':
		return c.gdbWriteMem(payload[1:])

	case 's':
		c.Step()
		return "S05", nil

	case 'c':
		c.Step()
		return "S05", nil

	default:
		return "", nil
	}
}

// Interrupt implements pkg/remote.GdbHandler: a bare Ctrl-C byte outside
// packet framing halts the currently free-running execution. Since
// Execute/HandlePacket never run the core unbounded on a background
// goroutine, there is nothing in flight to stop; this core has no state
// to change.
func (c *Core) Interrupt() {}

func (c *Core) gdbReadRegs() string {
	r := c.cpu.Registers()
	var sb strings.Builder
	for _, v := range r.D {
		fmt.Fprintf(&sb, "%08x", v)
	}
	for _, v := range r.A {
		fmt.Fprintf(&sb, "%08x", v)
	}
	fmt.Fprintf(&sb, "%08x", uint32(r.SR))
	fmt.Fprintf(&sb, "%08x", r.PC)
	return sb.String()
}

func (c *Core) gdbWriteRegs(hex string) error {
	if len(hex) < gdbRegCount*8 {
		return fmt.Errorf("gdb: short register payload")
	}
	r := c.cpu.Registers()
	read := func(i int) uint32 {
		v, _ := strconv.ParseUint(hex[i*8:i*8+8], 16, 32)
		return uint32(v)
	}
	for i := 0; i < 8; i++ {
		r.D[i] = read(i)
	}
	for i := 0; i < 8; i++ {
		r.A[i] = read(8 + i)
	}
	r.SR = uint16(read(16))
	r.PC = read(17)
	c.cpu.SetState(r)
	return nil
}

func (c *Core) gdbReadMem(arg string) (string, error) {
	addrStr, lenStr, ok := strings.Cut(arg, ",")
	if !ok {
		return "", fmt.Errorf("gdb: malformed m packet")
	}
	addr, err := strconv.ParseUint(addrStr, 16, 32)
	if err != nil {
		return "", fmt.Errorf("gdb: bad address: %w", err)
	}
	n, err := strconv.ParseUint(lenStr, 16, 32)
	if err != nil {
		return "", fmt.Errorf("gdb: bad length: %w", err)
	}
	var sb strings.Builder
	for i := uint64(0); i < n; i++ {
		fmt.Fprintf(&sb, "%02x", c.Peek8(uint32(addr)+uint32(i)))
	}
	return sb.String(), nil
}

func (c *Core) gdbWriteMem(arg string) (string, error) {
	head, data, ok := strings.Cut(arg, ":")
	if !ok {
		return "", fmt.Errorf("gdb: malformed M packet")
	}
	addrStr, lenStr, ok := strings.Cut(head, ",")
	if !ok {
		return "", fmt.Errorf("gdb: malformed M packet")
	}
	addr, err := strconv.ParseUint(addrStr, 16, 32)
	if err != nil {
		return "", fmt.Errorf("gdb: bad address: %w", err)
	}
	n, err := strconv.ParseUint(lenStr, 16, 32)
	if err != nil {
		return "", fmt.Errorf("gdb: bad length: %w", err)
	}
	for i := uint64(0); i < n && 2*i+2 <= uint64(len(data)); i++ {
		b, err := strconv.ParseUint(data[2*i:2*i+2], 16, 8)
		if err != nil {
			return "", fmt.Errorf("gdb: bad byte: %w", err)
		}
		c.Poke8(uint32(addr)+uint32(i), uint8(b))
	}
	return "OK", nil
}
