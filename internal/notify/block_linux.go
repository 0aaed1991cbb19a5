//go:build linux

package notify

import (
	"golang.org/x/sys/unix"
)

// Blocker wraps an epoll set containing exactly one interest: a context's
// wake eventfd. Block implements flextcp_block's epoll_wait/EINTR-retry
// loop, draining the eventfd's counter on wakeup (the doorbell write is a
// pure signal; its value carries no information).
//
// Grounded on the teacher's internal/concurrency/poller_linux.go
// (EpollCreate1/EpollCtl/EpollWait usage), generalized from the raw
// syscall package to golang.org/x/sys/unix per SPEC_FULL.md §11.
type Blocker struct {
	epfd  int
	evfd  int
	event [1]unix.EpollEvent
}

// NewBlocker creates the epoll set and registers evfd for readability.
func NewBlocker(evfd int) (*Blocker, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(evfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, evfd, &ev); err != nil {
		unix.Close(epfd)
		return nil, err
	}
	return &Blocker{epfd: epfd, evfd: evfd}, nil
}

// Block waits up to timeoutMs milliseconds for the eventfd to become
// readable, retrying across EINTR, then drains its counter. timeoutMs<0
// blocks indefinitely, matching epoll_wait's own convention.
func (b *Blocker) Block(timeoutMs int) error {
	for {
		n, err := unix.EpollWait(b.epfd, b.event[:], timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			var val [8]byte
			unix.Read(int(b.evfd), val[:])
		}
		return nil
	}
}

// Close releases the epoll set. The eventfd itself is owned by the
// Context, not the Blocker.
func (b *Blocker) Close() error {
	return unix.Close(b.epfd)
}
