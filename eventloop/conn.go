package eventloop

// outboundCapBytes is the hard cap on a connection's outbound buffer
// that implements backpressure (spec §4.5): once reached, the
// connection stops being read from until it drains back below the cap.
const outboundCapBytes = 2 * 1024 * 1024

// Conn is per-client state, owned exclusively by the loop that created
// it. Grounded on other_examples/manh119-Redis__miniredis.go's ConnBuf,
// extended with an outbound buffer and the write-interest bookkeeping
// that skeleton has no concept of.
type Conn struct {
	fd       int
	inbound  []byte
	outbound []byte
	closed   bool

	// wantRead mirrors the fd's current EPOLLIN registration so the
	// interest-update step only issues EpollCtl(MOD) when read-interest
	// actually changes. The write-interest half of that same comparison
	// is answered by the loop's writeInterest set, not a field here.
	wantRead bool
}

func newConn(fd int) *Conn {
	return &Conn{fd: fd, wantRead: true}
}

// wantsRead reports whether this connection should stay registered for
// EPOLLIN: the backpressure rule in spec §4.5 refuses to read more once
// outbound backlog reaches the cap.
func (c *Conn) wantsRead() bool {
	return len(c.outbound) < outboundCapBytes
}

// wantsWrite reports whether this connection has anything queued.
func (c *Conn) wantsWrite() bool {
	return len(c.outbound) > 0
}

func (c *Conn) enqueue(b []byte) {
	c.outbound = append(c.outbound, b...)
}
