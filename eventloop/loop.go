// Package eventloop implements the single-threaded, readiness-based
// connection multiplexer: one epoll instance covering the listening
// socket and every connected client, driving accept/read/parse/
// dispatch/write and periodic maintenance with no locks and no second
// thread anywhere in its state.
//
// Grounded on other_examples/manh119-Redis__miniredis.go's EpollServer
// (accept-drain loop, non-blocking client sockets, EPOLLIN|EPOLLRDHUP
// registration), extended with the interest-set recomputation, write
// budget, and backpressure cap that skeleton does not have, and with
// the connsLock/sync.Mutex it uses for its conns map removed entirely —
// this loop has exactly one caller, so there is nothing to protect
// against.
package eventloop

import (
	"log"
	"syscall"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"redisloop/aof"
	"redisloop/command"
	"redisloop/metrics"
	"redisloop/resp"
	"redisloop/store"
)

const (
	maxEpollEvents        = 128
	readChunkBytes        = 4096
	writeBudgetBytes      = 64 * 1024
	pollTimeoutMs         = 1000
	maintenanceIntervalMs = 5000
)

// Loop owns the listening socket, every Conn, the keyspace, the AOF
// writer, and the optional metrics registry. All of it is touched only
// from Run's goroutine.
type Loop struct {
	epfd     int
	listenFd int

	conns []*Conn
	byFd  map[int]*Conn

	// writeInterest is the set of fds currently registered for
	// EPOLLOUT. updateInterest queries Contains against it to decide
	// whether a connection's write-registration actually changed before
	// paying for an EpollCtl(MOD) call. Grounded on the pack's
	// github.com/deckarep/golang-set/v2 dependency: this is
	// single-threaded set-membership bookkeeping, not a concurrency
	// primitive, so the thread-unsafe variant is the right one — the
	// loop is its only reader and writer.
	writeInterest mapset.Set[int]

	ks      *store.Keyspace
	handler *command.Handler
	writer  *aof.Writer
	metrics *metrics.Registry

	lastMaintenanceMs int64
	nowMs             func() int64
}

// New builds a Loop around an already-listening, non-blocking fd (see
// Listen) and the components it drives commands against.
func New(listenFd int, ks *store.Keyspace, handler *command.Handler, writer *aof.Writer, m *metrics.Registry) (*Loop, error) {
	epfd, err := syscall.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	l := &Loop{
		epfd:          epfd,
		listenFd:      listenFd,
		byFd:          make(map[int]*Conn),
		writeInterest: mapset.NewThreadUnsafeSet[int](),
		ks:            ks,
		handler:       handler,
		writer:        writer,
		metrics:       m,
		nowMs:         func() int64 { return time.Now().UnixMilli() },
	}
	if err := syscall.EpollCtl(epfd, syscall.EPOLL_CTL_ADD, listenFd, &syscall.EpollEvent{
		Events: syscall.EPOLLIN,
		Fd:     int32(listenFd),
	}); err != nil {
		syscall.Close(epfd)
		return nil, err
	}
	return l, nil
}

// Run drives the loop body from spec §4.5 until an unrecoverable error
// occurs. It never returns nil; callers exit the process on error.
func (l *Loop) Run() error {
	events := make([]syscall.EpollEvent, maxEpollEvents)
	l.lastMaintenanceMs = l.nowMs()

	for {
		l.updateInterest()

		n, err := syscall.EpollWait(l.epfd, events, pollTimeoutMs)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return err
		}

		l.maintainIfDue(l.nowMs())

		budget := writeBudgetBytes
		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)

			if fd == l.listenFd {
				l.acceptDrain()
				continue
			}

			c, ok := l.byFd[fd]
			if !ok {
				continue
			}
			if ev.Events&(syscall.EPOLLHUP|syscall.EPOLLERR) != 0 {
				l.destroyConn(c)
				continue
			}
			if ev.Events&(syscall.EPOLLIN|syscall.EPOLLRDHUP) != 0 {
				l.readDrain(c)
			}
			if c.closed {
				continue
			}
			if ev.Events&syscall.EPOLLOUT != 0 {
				l.writeDrain(c, &budget)
			}
		}
	}
}

// acceptDrain accepts every pending connection until EAGAIN, per spec
// §4.5's acceptance rule.
func (l *Loop) acceptDrain() {
	for {
		fd, _, err := syscall.Accept(l.listenFd)
		if err != nil {
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				return
			}
			log.Printf("eventloop: accept: %v", err)
			return
		}
		if err := syscall.SetNonblock(fd, true); err != nil {
			log.Printf("eventloop: setnonblock on accepted conn: %v", err)
			syscall.Close(fd)
			continue
		}
		if err := syscall.EpollCtl(l.epfd, syscall.EPOLL_CTL_ADD, fd, &syscall.EpollEvent{
			Events: syscall.EPOLLIN | syscall.EPOLLRDHUP,
			Fd:     int32(fd),
		}); err != nil {
			log.Printf("eventloop: epoll add: %v", err)
			syscall.Close(fd)
			continue
		}
		c := newConn(fd)
		l.conns = append(l.conns, c)
		l.byFd[fd] = c
	}
}

// readDrain reads until EAGAIN, feeding each chunk to the incremental
// parser and dispatching every complete frame it yields, per spec
// §4.5's read-drain rule.
func (l *Loop) readDrain(c *Conn) {
	buf := make([]byte, readChunkBytes)
	for {
		n, err := syscall.Read(c.fd, buf)
		if err != nil {
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				return
			}
			l.destroyConn(c)
			return
		}
		if n == 0 {
			l.destroyConn(c)
			return
		}
		c.inbound = append(c.inbound, buf[:n]...)
		l.drainFrames(c)
		if c.closed {
			return
		}
	}
}

// drainFrames parses and executes as many complete frames as the
// connection's inbound buffer currently holds.
func (l *Loop) drainFrames(c *Conn) {
	for len(c.inbound) > 0 {
		consumed, value, status, err := resp.TryParse(c.inbound)
		switch status {
		case resp.Incomplete:
			return
		case resp.ProtocolError:
			c.enqueue(resp.Serialize(resp.NewError("ERR Protocol error: " + err.Error())))
			// Erase at least one byte to guarantee forward progress,
			// per spec §4.5 and §7.
			erase := consumed
			if erase < 1 {
				erase = 1
			}
			if erase > len(c.inbound) {
				erase = len(c.inbound)
			}
			c.inbound = c.inbound[erase:]
		case resp.Complete:
			c.inbound = c.inbound[consumed:]
			reply := l.handler.Execute(value, l.nowMs())
			c.enqueue(resp.Serialize(reply))
		}
	}
}

// writeDrain writes as much of c's outbound buffer as the remaining
// global budget allows, per spec §4.5's write-drain rule.
func (l *Loop) writeDrain(c *Conn, budget *int) {
	for len(c.outbound) > 0 && *budget > 0 {
		chunk := len(c.outbound)
		if chunk > *budget {
			chunk = *budget
		}
		n, err := syscall.Write(c.fd, c.outbound[:chunk])
		if err != nil {
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				return
			}
			l.destroyConn(c)
			return
		}
		c.outbound = c.outbound[n:]
		*budget -= n
	}
}

// updateInterest recomputes each live connection's epoll registration
// per spec §4.5's interest-update rule, only issuing EpollCtl(MOD) when
// the wanted interest set actually changed. writeInterest.Contains is
// the prior write-registration state this compares against; it is the
// same set Add/Remove below keep current, not a bookkeeping side effect.
func (l *Loop) updateInterest() {
	for _, c := range l.conns {
		if c.closed {
			continue
		}
		wantRead := c.wantsRead()
		wantWrite := c.wantsWrite()
		if wantRead == c.wantRead && wantWrite == l.writeInterest.Contains(c.fd) {
			continue
		}
		events := uint32(syscall.EPOLLRDHUP)
		if wantRead {
			events |= syscall.EPOLLIN
		}
		if wantWrite {
			events |= syscall.EPOLLOUT
		}
		if err := syscall.EpollCtl(l.epfd, syscall.EPOLL_CTL_MOD, c.fd, &syscall.EpollEvent{
			Events: events,
			Fd:     int32(c.fd),
		}); err != nil {
			log.Printf("eventloop: epoll mod fd=%d: %v", c.fd, err)
			l.destroyConn(c)
			continue
		}
		c.wantRead = wantRead
		if wantWrite {
			l.writeInterest.Add(c.fd)
		} else {
			l.writeInterest.Remove(c.fd)
		}
	}
	l.compact()
}

// maintainIfDue runs the AOF fsync check on every call (the writer
// itself gates it to once a second), then the periodic keyspace sweep
// and metrics publish if their interval has elapsed, per spec §4.5.
func (l *Loop) maintainIfDue(nowMs int64) {
	if err := l.writer.MaintainFsync(nowMs); err != nil {
		log.Printf("eventloop: AOF fsync failed, disabling AOF: %v", err)
		l.writer.Disable()
	}
	if nowMs-l.lastMaintenanceMs < maintenanceIntervalMs {
		return
	}
	l.lastMaintenanceMs = nowMs
	l.ks.Sweep(nowMs)
	l.metrics.PublishMemoryStats(l.ks.EstimatedBytes(), l.ks.MaxBytes(), l.ks.EvictionsTotal(), l.ks.Len())
}

// destroyConn tears down a connection: closes its socket, removes it
// from epoll interest implicitly (close does this on Linux), drops it
// from l.byFd and writeInterest, and marks it closed so the current
// iteration's remaining steps skip it. Removal from l.conns happens in
// compact, called from updateInterest, so destroying a connection
// mid-iteration over l.conns never invalidates that loop's indices.
func (l *Loop) destroyConn(c *Conn) {
	if c.closed {
		return
	}
	c.closed = true
	syscall.Close(c.fd)
	delete(l.byFd, c.fd)
	l.writeInterest.Remove(c.fd)
}

// compact drops closed connections from l.conns. Grounded on spec
// §4.5's "removal is safe during iteration because the loop iterates
// connections in reverse and uses swap-remove semantics": order among
// live connections is not meaningful, so a closed slot is filled by
// the last live slot instead of shifting the whole tail down.
func (l *Loop) compact() {
	for i := len(l.conns) - 1; i >= 0; i-- {
		if !l.conns[i].closed {
			continue
		}
		last := len(l.conns) - 1
		l.conns[i] = l.conns[last]
		l.conns[last] = nil
		l.conns = l.conns[:last]
	}
}

// Close shuts the loop down: every connection socket, the listening
// socket, and the epoll instance itself.
func (l *Loop) Close() {
	for _, c := range l.conns {
		if !c.closed {
			syscall.Close(c.fd)
		}
	}
	syscall.Close(l.listenFd)
	syscall.Close(l.epfd)
}
