// Package wire implements the ring primitive of spec §4.1: a fixed-capacity
// single-producer/single-consumer queue whose slots carry an explicit type
// tag as the first visible field. Zero means empty; any non-zero value means
// the slot holds a valid, fully-written payload.
//
// Grounded on the teacher's core/concurrency/ring.go (generic Ring[T],
// cache-padded indices) but replacing the Vyukov MPMC sequence-number
// protocol with the tag-write-last / tag-zero-on-consume discipline the
// original tas_ll.h rings use — these rings are SPSC by contract, not MPMC,
// so there is no CAS on the index: the producer owns tail, the consumer
// owns head, and only the tag word is shared.
package wire

import "sync/atomic"

// cachePad keeps producer-owned and consumer-owned cursors off the same
// cache line, same rationale as the teacher's ring.go padding.
type cachePad [64 - 8]byte

// slot is one ring entry. tag is read/written with atomic ops; payload is
// plain memory protected by the tag: the producer writes payload before the
// tag store (release), the consumer reads payload after the tag load
// (acquire) and before clearing it.
type slot[T any] struct {
	tag     atomic.Uint32
	payload T
}

// Ring is a fixed-capacity SPSC queue of tagged entries of type T.
// Capacity must be a positive number; callers that need power-of-two wrap
// masking (the fast path's hardware rings) should pass a power of two, but
// nothing here requires it — wrap is a plain modulo on the index.
type Ring[T any] struct {
	slots []slot[T]
	cap   uint32

	_    cachePad
	head uint32 // consumer-owned
	_    cachePad
	tail uint32 // producer-owned
	_    cachePad
}

// NewRing allocates a ring with the given capacity. All slots start empty
// (tag 0).
func NewRing[T any](capacity uint32) *Ring[T] {
	if capacity == 0 {
		panic("wire: ring capacity must be > 0")
	}
	return &Ring[T]{slots: make([]slot[T], capacity), cap: capacity}
}

// Cap returns the fixed slot count.
func (r *Ring[T]) Cap() int { return int(r.cap) }

// Enqueue attempts to hand off payload under the given tag. tag must be
// non-zero (zero is reserved for "empty"). Returns false if the slot at the
// current tail is still full (queue full, spec §7 taxon 1).
func (r *Ring[T]) Enqueue(tag uint32, payload T) bool {
	if tag == 0 {
		panic("wire: tag 0 is reserved for empty slots")
	}
	s := &r.slots[r.tail]
	if s.tag.Load() != 0 {
		return false
	}
	s.payload = payload
	s.tag.Store(tag) // release: payload must be visible before the tag is
	r.tail++
	if r.tail == r.cap {
		r.tail = 0
	}
	return true
}

// Dequeue reads the slot at the current head. Returns ok=false, and leaves
// the slot untouched, if the tag is zero (empty) — the payload of an empty
// slot is never inspected (spec §8 invariant 7). On success the tag is
// cleared and head advances.
func (r *Ring[T]) Dequeue() (tag uint32, payload T, ok bool) {
	s := &r.slots[r.head]
	tag = s.tag.Load()
	if tag == 0 {
		return 0, payload, false
	}
	payload = s.payload
	s.tag.Store(0)
	r.head++
	if r.head == r.cap {
		r.head = 0
	}
	return tag, payload, true
}

// Peek reports whether the slot at head holds a valid entry without
// consuming it, returning its tag.
func (r *Ring[T]) Peek() (tag uint32, ok bool) {
	tag = r.slots[r.head].tag.Load()
	return tag, tag != 0
}

// PeekPayload reads the tag and payload at head without consuming them.
// Callers that must decide whether they have room to act on an entry
// before committing to it (the kernel/fast-path drain loops of §4.4, which
// may abort mid-entry if the caller's output budget runs out) read via
// PeekPayload and only call Advance once the entry has actually been
// turned into output.
func (r *Ring[T]) PeekPayload() (tag uint32, payload T, ok bool) {
	s := &r.slots[r.head]
	tag = s.tag.Load()
	if tag == 0 {
		return 0, payload, false
	}
	payload = s.payload
	return tag, payload, true
}

// Advance clears the tag at head and moves head forward, committing a
// previously peeked entry. Must only be called when PeekPayload last
// reported ok=true and the entry has been fully consumed.
func (r *Ring[T]) Advance() {
	r.slots[r.head].tag.Store(0)
	r.head++
	if r.head == r.cap {
		r.head = 0
	}
}

// HeadIndex and TailIndex expose the raw cursors for callers that need to
// scan slots out of Dequeue order (txq reclamation, §4.4 step 4).
func (r *Ring[T]) HeadIndex() uint32 { return r.head }
func (r *Ring[T]) TailIndex() uint32 { return r.tail }

// ReclaimScan implements the txq-probe reclamation walk (§4.4 step 4): for
// the admin txq, the library is the sole producer and the NIC is the sole
// consumer, clearing tags in place without ever advancing a software head.
// Availability is tracked separately via reclaim, a cursor the library
// advances by scanning forward over slots whose tag has already been
// cleared. It scans at most max slots starting at reclaim, stopping at the
// first still-full slot or once it catches up to tail, and returns the
// number of newly-reclaimed (now countable as available) slots.
func (r *Ring[T]) ReclaimScan(reclaim *uint32, max int) int {
	n := 0
	for n < max && *reclaim != r.tail {
		if r.slots[*reclaim].tag.Load() != 0 {
			break
		}
		*reclaim++
		if *reclaim == r.cap {
			*reclaim = 0
		}
		n++
	}
	return n
}
