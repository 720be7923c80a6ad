package remote

import (
	"bufio"
	"fmt"
	"io"
)

// interruptByte is Ctrl-C, used outside packet framing as an
// interrupt request per spec.md §6.
const interruptByte = 0x03

// runGdbStub implements the GDB remote-serial-protocol framer:
// `$payload#cc` packets, `+`/`-` acknowledgments (until the client
// negotiates QStartNoAckMode), and a bare Ctrl-C byte outside any
// packet as an interrupt request. Grounded on GdbServer.cpp's
// reply/computeChecksum/verifyChecksum and didConnect (ackMode starts
// true on every new connection).
func runGdbStub(sess *Session, r *bufio.Reader) {
	w := sess.conn
	h := sess.server.Gdb
	ackMode := true

	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}

		switch {
		case b == interruptByte:
			if h != nil {
				h.Interrupt()
			}

		case b == '$':
			payload, err := r.ReadString('#')
			if err != nil {
				return
			}
			payload = payload[:len(payload)-1] // drop the trailing '#'

			chk := make([]byte, 2)
			if _, err := io.ReadFull(r, chk); err != nil {
				return
			}

			if string(chk) != checksum(payload) {
				if ackMode {
					fmt.Fprint(w, "-")
				}
				continue
			}
			if ackMode {
				fmt.Fprint(w, "+")
			}

			if payload == "QStartNoAckMode" {
				ackMode = false
				sendPacket(w, "OK")
				continue
			}

			if h == nil {
				sendPacket(w, "")
				continue
			}
			reply, err := h.HandlePacket(payload)
			if err != nil {
				sendPacket(w, "E01")
				continue
			}
			sendPacket(w, reply)

		default:
			// Stray byte outside any packet frame; ignored.
		}
	}
}

func sendPacket(w io.Writer, payload string) {
	fmt.Fprintf(w, "$%s#%s", payload, checksum(payload))
}

// checksum is the mod-256 sum of payload's bytes, two lowercase hex
// digits, matching GdbServer::computeChecksum.
func checksum(payload string) string {
	var sum uint8
	for i := 0; i < len(payload); i++ {
		sum += payload[i]
	}
	return fmt.Sprintf("%02x", sum)
}
