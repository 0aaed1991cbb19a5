//go:build !linux

package notify

import "errors"

// NewEventFD is unsupported outside Linux (see block_stub.go).
func NewEventFD() (int, error) {
	return 0, errors.New("notify: eventfd is only supported on linux")
}

// Kick is unsupported outside Linux.
func Kick(fd int) error {
	return errors.New("notify: unsupported on this platform")
}
