//go:build !linux

package controlplane

import "errors"

// Dial is unsupported outside Linux: the control socket handshake relies
// on SCM_RIGHTS fd-passing over AF_UNIX, which golang.org/x/sys/unix only
// exposes on Linux in the form this package needs.
func Dial(path string) (*Client, error) {
	return nil, errors.New("controlplane: only supported on linux")
}
