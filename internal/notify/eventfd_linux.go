//go:build linux

package notify

import "golang.org/x/sys/unix"

// NewEventFD creates the library-owned wake eventfd (ctx->evfd in
// flextcp_kernel_newctx: `eventfd(0, EFD_CLOEXEC)`), later handed to the
// control plane as SCM_RIGHTS ancillary data during Negotiate so the
// kernel/dataplane can ring it.
func NewEventFD() (int, error) {
	return unix.Eventfd(0, unix.EFD_CLOEXEC)
}

// Kick rings the eventfd at fd, matching flextcp_kernel_kick's `write(fd,
// &val, 8)` with val=1. client.Open's kick closure calls it whenever its
// KickLimiter allows a kick.
func Kick(fd int) error {
	var val [8]byte
	val[0] = 1
	_, err := unix.Write(fd, val[:])
	return err
}
