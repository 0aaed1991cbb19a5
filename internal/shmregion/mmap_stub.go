//go:build !linux
// +build !linux

package shmregion

import "fmt"

// PosixBackend on non-Linux platforms has no shared-memory mapping to
// perform; the TAS fast path itself is Linux-only (it requires the NIC
// driver and the control-plane process), so this backend exists only to
// keep the package buildable elsewhere for tests that substitute MemBackend.
type PosixBackend struct{}

func (PosixBackend) Open(name string, length int) ([]byte, error) {
	return nil, fmt.Errorf("shmregion: POSIX shared memory not supported on this platform")
}

func (PosixBackend) Close(b []byte) error { return nil }

// HugePageBackend mirrors PosixBackend's non-Linux stub.
type HugePageBackend struct {
	Prefix string
}

func (HugePageBackend) Open(name string, length int) ([]byte, error) {
	return nil, fmt.Errorf("shmregion: huge-page shared memory not supported on this platform")
}

func (HugePageBackend) Close(b []byte) error { return nil }
