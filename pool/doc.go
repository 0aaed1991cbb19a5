// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// NUMA-aware []byte allocation, used by internal/shmregion.NUMABackend to
// back a <dma> region with node-local memory. The fast path's actual
// buffer lifecycle is the shared-memory ring (internal/wire.Ring) and the
// flow table's bump/pos accounting, not a generic object pool — see
// DESIGN.md for the generic buffer-pool/slab/batch layer this package used
// to also contain and why it was trimmed.
package pool
