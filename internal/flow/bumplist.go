package flow

// BumpList is a context's bump-pending list (spec §3 Context, §4.3's
// "marking a bump"): flows needing an update pushed to the fast path,
// linked via Table indices rather than pointers (Design Note §9). It is
// singly rooted (first/last) and must only be walked by the owning
// context's thread, matching ctx->bump_pending_first/last in
// original_source/lib/tas/include/tas_ll.h.
type BumpList struct {
	table *Table
	first uint32
	last  uint32
}

// NewBumpList builds an empty bump list backed by table.
func NewBumpList(table *Table) *BumpList {
	return &BumpList{table: table, first: NoIndex, last: NoIndex}
}

// First returns the head index (NoIndex if empty), for walking the list.
func (b *BumpList) First() uint32 { return b.first }

// Empty reports whether the list has no pending flows.
func (b *BumpList) Empty() bool { return b.first == NoIndex }

// Mark appends idx to the list if not already present, matching
// conn_mark_bump's idempotent append (the bump_pending boolean guards
// against double-insertion — the coalescing invariant of spec §3/§8
// invariant 6: a flow appears in at most one context bump list at a time).
func (b *BumpList) Mark(idx uint32) {
	f := b.table.Get(idx)
	if f.BumpPending {
		return
	}

	prev := b.last
	f.BumpNext = NoIndex
	f.BumpPrev = prev
	if prev != NoIndex {
		b.table.Get(prev).BumpNext = idx
	} else {
		b.first = idx
	}
	b.last = idx
	f.BumpPending = true
}

// Unlink removes idx from the list. It is a no-op if idx is not currently
// marked. Mirrors flextcp_connection_close's bump-list removal in conn.c,
// which walks the list to find the predecessor; because BumpPrev/BumpNext
// are maintained directly on the Flow here, no walk is required.
func (b *BumpList) Unlink(idx uint32) {
	f := b.table.Get(idx)
	if !f.BumpPending {
		return
	}

	if f.BumpPrev != NoIndex {
		b.table.Get(f.BumpPrev).BumpNext = f.BumpNext
	} else {
		b.first = f.BumpNext
	}
	if f.BumpNext != NoIndex {
		b.table.Get(f.BumpNext).BumpPrev = f.BumpPrev
	} else {
		b.last = f.BumpPrev
	}

	f.BumpPending = false
	f.BumpNext = NoIndex
	f.BumpPrev = NoIndex
}

// PopFront removes and returns the head flow index, used by the dispatcher's
// bump-push step (§4.4 step 5, conns_bump). Returns ok=false if empty.
func (b *BumpList) PopFront() (idx uint32, ok bool) {
	if b.first == NoIndex {
		return 0, false
	}
	idx = b.first
	b.Unlink(idx)
	return idx, true
}
