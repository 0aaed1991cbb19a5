//go:build !linux

package notify

import "errors"

// Blocker is unsupported outside Linux: the notify discipline's blocking
// path relies on epoll, which has no portable equivalent here (spec.md's
// fast path itself is Linux/DPDK-only).
type Blocker struct{}

func NewBlocker(evfd int) (*Blocker, error) {
	return nil, errors.New("notify: epoll-backed blocking is only supported on linux")
}

func (b *Blocker) Block(timeoutMs int) error { return errors.New("notify: unsupported on this platform") }

func (b *Blocker) Close() error { return nil }
