//go:build linux
// +build linux

package shmregion

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// shmDir is where POSIX shared-memory objects live on Linux; shm_open(3) is
// a glibc wrapper around opening a file here, there is no raw syscall for it.
const shmDir = "/dev/shm"

// PosixBackend maps named regions via an open() under /dev/shm plus
// mmap(MAP_SHARED|MAP_POPULATE), grounded on original_source/lib/tas/connect.c's
// map_region. It mirrors the teacher's internal/transport/transport_linux.go
// in reaching for golang.org/x/sys/unix directly rather than the stdlib
// syscall package.
type PosixBackend struct{}

// Open opens the POSIX shared-memory object name for read-write and maps
// length bytes.
func (PosixBackend) Open(name string, length int) ([]byte, error) {
	path := filepath.Join(shmDir, name)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer unix.Close(fd)

	b, err := unix.Mmap(fd, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %q: %w", name, err)
	}
	return b, nil
}

// Close unmaps previously mapped bytes.
func (PosixBackend) Close(b []byte) error {
	return unix.Munmap(b)
}

// HugePageBackend maps named regions as files under a huge-pages prefix
// directory, grounded on map_region_huge in the same source file.
type HugePageBackend struct {
	Prefix string
}

// Open opens Prefix/name for read-write and maps length bytes.
func (h HugePageBackend) Open(name string, length int) ([]byte, error) {
	prefix := h.Prefix
	if prefix == "" {
		prefix = HugePagePrefix
	}
	path := filepath.Join(prefix, name)

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer unix.Close(fd)

	b, err := unix.Mmap(fd, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %q: %w", path, err)
	}
	return b, nil
}

// Close unmaps previously mapped bytes.
func (HugePageBackend) Close(b []byte) error {
	return unix.Munmap(b)
}
