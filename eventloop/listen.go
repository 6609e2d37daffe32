package eventloop

import (
	"fmt"
	"syscall"
)

// Listen builds a non-blocking IPv4 TCP listening socket bound to
// 0.0.0.0:port with SO_REUSEADDR and a backlog of 128, per spec §6.
// Grounded on other_examples/manh119-Redis__miniredis.go's Start,
// which gets a socket fd via net.Listen plus a *net.TCPListener.File()
// round trip; this system builds the fd directly with syscall.Socket so
// SO_REUSEADDR and the exact backlog are guaranteed rather than left to
// net.Listen's OS defaults.
func Listen(port int) (int, error) {
	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("eventloop: socket: %w", err)
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("eventloop: setsockopt SO_REUSEADDR: %w", err)
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("eventloop: setnonblock: %w", err)
	}
	addr := &syscall.SockaddrInet4{Port: port}
	if err := syscall.Bind(fd, addr); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("eventloop: bind :%d: %w", port, err)
	}
	if err := syscall.Listen(fd, 128); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("eventloop: listen: %w", err)
	}
	return fd, nil
}
