// Package shmregion maps and models the three named shared-memory regions
// of spec.md §6: <info>, <dma>, <internal>. It never hands out a raw
// pointer: every shared-memory reference is a (region, offset) pair with a
// bounds-checked accessor, per Design Note §9.
//
// Grounded on original_source/lib/tas/connect.c (map_region/map_region_huge)
// and tas/shm.c (region naming and sizing) for semantics, and on the
// teacher's internal/transport/transport_linux.go for the Go idiom of
// reaching for golang.org/x/sys/unix directly rather than the syscall
// package.
package shmregion

import (
	"fmt"
)

// Region is a bounds-checked view over one mapped shared-memory segment.
// Base holds the mapped bytes (via mmap on Linux, or a plain slice in the
// stub backend used off Linux / in tests); Offset-based access never
// escapes Base's bounds.
type Region struct {
	Name string
	Base []byte
}

// Ref is a (region, offset) pair: the safe-language replacement for a raw
// pointer into shared memory (Design Note §9). It never holds a pointer
// directly; dereferencing goes through Region's bounds-checked accessors.
type Ref struct {
	Off uint32
	Len uint32
}

// Bytes returns the byte slice backing ref, bounds-checked against r's
// length. Panics on out-of-range refs: a ref outside the mapped region can
// only originate from a corrupted peer (spec §7 taxon 3, fatal).
func (r *Region) Bytes(ref Ref) []byte {
	end := uint64(ref.Off) + uint64(ref.Len)
	if end > uint64(len(r.Base)) {
		panic(fmt.Sprintf("shmregion: ref %+v out of bounds for region %q (len %d)", ref, r.Name, len(r.Base)))
	}
	return r.Base[ref.Off:end]
}

// Slice is a convenience constructor for a Ref spanning [off, off+length).
func Slice(off, length uint32) Ref { return Ref{Off: off, Len: length} }

// Backend abstracts how a named region's bytes are obtained: POSIX shared
// memory (shm_open+mmap) or huge-pages-backed files under a configured
// prefix directory (spec §6).
type Backend interface {
	// Open maps the named region of the given length and returns its bytes.
	Open(name string, length int) ([]byte, error)
	// Close unmaps a previously opened region.
	Close(b []byte) error
}

// Open maps a named region through backend and wraps it as a Region.
func Open(backend Backend, name string, length int) (*Region, error) {
	b, err := backend.Open(name, length)
	if err != nil {
		return nil, fmt.Errorf("shmregion: open %q: %w", name, err)
	}
	return &Region{Name: name, Base: b}, nil
}

// Region names, matching FLEXNIC_NAME_INFO / FLEXNIC_NAME_DMA_MEM /
// FLEXNIC_NAME_INTERNAL_MEM in original_source/include/tas_memif.h.
const (
	NameInfo     = "/flexnic_info"
	NameDMA      = "/flexnic_dma"
	NameInternal = "/flexnic_internal"
)

// HugePagePrefix is the default directory prefix for huge-pages-backed
// region files, matching FLEXNIC_HUGE_PREFIX.
const HugePagePrefix = "/dev/hugepages/tas"
