package flow

import "fmt"

// Table is a fixed-capacity, index-addressed arena of Flow records: the
// safe-language realization of Design Note §9's "arena-like tables
// addressed by small indices" for the flow/listener cyclic structures a raw
// pointer would otherwise express. Slots are reused via a freelist, mirroring
// the data-plane's fixed-size flow table (spec §6, the <internal> region).
type Table struct {
	flows []Flow
	free  []uint32
}

// NewTable allocates a table with room for capacity flows, all initially
// free.
func NewTable(capacity int) *Table {
	t := &Table{
		flows: make([]Flow, capacity),
		free:  make([]uint32, capacity),
	}
	for i := range t.free {
		t.free[i] = uint32(capacity - 1 - i)
	}
	return t
}

// Alloc reserves a slot and returns its index, with the Flow reset to
// CLOSED (connection_init). Returns ok=false if the table is exhausted —
// the library-side equivalent of the data plane's fixed flow table being
// full.
func (t *Table) Alloc() (idx uint32, ok bool) {
	if len(t.free) == 0 {
		return 0, false
	}
	idx = t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	t.flows[idx].reset(idx)
	return idx, true
}

// Free returns idx to the freelist. Callers must ensure the flow is fully
// CLOSED and unlinked from any bump list first.
func (t *Table) Free(idx uint32) {
	t.free = append(t.free, idx)
}

// Get returns a pointer to the flow at idx. Panics on out-of-range idx: an
// invalid index can only originate from a corrupted peer or a programming
// error, both fatal per spec §7 taxon 3.
func (t *Table) Get(idx uint32) *Flow {
	if int(idx) >= len(t.flows) {
		panic(fmt.Sprintf("flow: table index %d out of range (capacity %d)", idx, len(t.flows)))
	}
	return &t.flows[idx]
}

// Cap returns the table's fixed capacity.
func (t *Table) Cap() int { return len(t.flows) }

// Avail returns the number of currently-free slots.
func (t *Table) Avail() int { return len(t.free) }
