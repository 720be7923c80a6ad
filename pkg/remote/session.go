package remote

import (
	"bufio"
	"log"
	"net"
	"time"
)

// Session owns one accepted connection: a bidirectional byte stream
// that guarantees delivery order (TCP already does) and surfaces a
// clean-close signal through Close, matching spec.md §3's "Connection
// listener / socket / session" entry.
type Session struct {
	server *Server
	conn   net.Conn
}

func newSession(s *Server, conn net.Conn) *Session {
	return &Session{server: s, conn: conn}
}

// Close unblocks the session's reader goroutine by closing the
// underlying socket; safe to call from any goroutine, matching
// spec.md §5/§8's asynchronous-close requirement.
func (sess *Session) Close() {
	sess.conn.Close()
}

// serve waits briefly for the first byte to decide which protocol this
// connection speaks, then hands off to the matching framer. A client
// that sends nothing within that window gets the terminal, which
// greets it with the banner. Per RemoteServer.cpp's single-listener
// model, the choice is made once, per connection, not re-evaluated
// mid-session.
func (sess *Session) serve() {
	defer sess.conn.Close()

	r := bufio.NewReader(sess.conn)
	sess.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	first, err := r.Peek(1)
	sess.conn.SetReadDeadline(time.Time{})
	if err != nil {
		if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
			return
		}
		first = nil
	}

	if sess.server.Verbose {
		log.Printf("[remote] connection from %s", sess.conn.RemoteAddr())
	}

	if len(first) > 0 && first[0] == '$' {
		runGdbStub(sess, r)
	} else {
		runTerminal(sess, r)
	}

	if sess.server.Verbose {
		log.Printf("[remote] connection from %s closed", sess.conn.RemoteAddr())
	}
}
