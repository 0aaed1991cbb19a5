//go:build linux

package controlplane

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// unixConn wraps a connected AF_UNIX/SOCK_STREAM socket fd, implementing
// fdReadWriter via unix.Sendmsg/Recvmsg so Client can carry SCM_RIGHTS
// ancillary data (the doorbell/flexnic fds, or the evfd sent with each
// newctx request).
type unixConn struct {
	fd int
}

func (u *unixConn) ReadMsg(p []byte) (int, []int, error) {
	n, oob, _, _, err := unix.Recvmsg(u.fd, p, make([]byte, unix.CmsgSpace(maxFDBatch*4)), 0)
	if err != nil {
		return 0, nil, err
	}
	fds, err := parseFDs(oob)
	if err != nil {
		return n, nil, err
	}
	return n, fds, nil
}

func (u *unixConn) WriteMsg(p []byte, fds []int) error {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	return unix.Sendmsg(u.fd, p, oob, nil, 0)
}

func (u *unixConn) Close() error { return unix.Close(u.fd) }

func parseFDs(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	var fds []int
	for _, m := range msgs {
		batch, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue
		}
		fds = append(fds, batch...)
	}
	return fds, nil
}

// Dial connects to the control socket at path (DefaultSocketPath if
// empty), performs the welcome handshake and returns a ready Client.
//
// Grounded on flextcp_kernel_connect: socket(AF_UNIX, SOCK_STREAM |
// SOCK_CLOEXEC) -> connect -> recvmsg for a welcome message carrying the
// kernel doorbell eventfd, followed by a loop of further recvmsg calls
// (up to maxFDBatch fds each) draining the per-core flexnic fds the
// welcome message announces a count for.
func Dial(path string) (*Client, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("controlplane: socket: %w", err)
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Connect(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("controlplane: connect %s: %w", path, err)
	}

	conn := &unixConn{fd: fd}

	welcome := make([]byte, 4)
	n, fds, err := conn.ReadMsg(welcome)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("controlplane: welcome recv: %w", err)
	}
	if n != len(welcome) || len(fds) == 0 {
		conn.Close()
		return nil, fmt.Errorf("controlplane: welcome message missing kernel eventfd")
	}
	kernelEvfd := fds[0]
	numFlexnic := int(welcome[0]) | int(welcome[1])<<8 | int(welcome[2])<<16 | int(welcome[3])<<24

	flexnicFDs := make([]int, 0, numFlexnic)
	for len(flexnicFDs) < numFlexnic {
		batch := make([]byte, 4)
		_, bfds, err := conn.ReadMsg(batch)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("controlplane: flexnic fd batch recv: %w", err)
		}
		if len(bfds) == 0 {
			conn.Close()
			return nil, fmt.Errorf("controlplane: expected flexnic fds, got none")
		}
		flexnicFDs = append(flexnicFDs, bfds...)
	}

	return &Client{conn: conn, KernelEvfd: kernelEvfd, FlexnicFDs: flexnicFDs}, nil
}
