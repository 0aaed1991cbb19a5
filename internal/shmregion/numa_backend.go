package shmregion

import "github.com/tcp-acceleration-service/tas-sub001/pool"

// NUMABackend maps the <dma> region onto a NUMA-local buffer instead of a
// POSIX shared-memory file, for single-process deployments that want the
// receive/transmit buffers pinned to the NUMA node their fast-path cores
// run on (spec.md §4.2: FnCore assignment implies a core, and a core
// implies a node). It does not actually share memory across processes —
// PosixBackend/HugePageBackend remain the only backends usable by a real
// kernel/dataplane counterpart — but for the in-process fast path this
// port implements, NUMA locality matters more than shareability.
//
// Grounded on pool.NUMAPool (teacher's NUMA-aware allocator), wired here
// as the dma region's storage rather than left an unused general-purpose
// pool.
type NUMABackend struct {
	Node int
}

// Open allocates a single length-byte buffer from a NUMAPool pinned to
// b.Node. The pool itself is discarded after one Get, since a Region maps
// exactly one named segment for its lifetime; NUMAPool's Get/Put batching
// has no benefit at this granularity.
func (b NUMABackend) Open(name string, length int) ([]byte, error) {
	p := pool.NewNUMAPool(b.Node, length, true)
	return p.Get(), nil
}

// Close is a no-op: the NUMAPool backing the buffer was never shared, and
// releasing a NUMA-pinned allocation back to the OS has no portable
// equivalent this package depends on.
func (b NUMABackend) Close(buf []byte) error { return nil }
