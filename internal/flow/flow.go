// Package flow implements spec.md §3 (Connection/"flow" data model), §4.3
// (library-visible connection operations), and §4.5 (the flow state
// machine).
//
// Grounded on original_source/lib/tas/include/tas_ll.h (struct
// flextcp_connection field layout) and lib/tas/conn.c (every operation's
// exact semantics: wrap-aware tx_alloc, idempotent bump marking, the
// close/bump-list unlink). Cyclic bump-list linkage is represented as
// Table-relative indices rather than pointers, per Design Note §9: a
// memory-safe port cannot hold an intrusive *Flow inside a Flow without
// either unsafe aliasing or a GC-visible reference cycle that defeats the
// "arena of small indices" idiom the rest of the port follows.
package flow

import "github.com/tcp-acceleration-service/tas-sub001/internal/shmregion"

// Status is the flow's lifecycle state (spec §4.5).
type Status uint8

const (
	StatusClosed Status = iota
	StatusOpenRequested
	StatusAcceptRequested
	StatusOpen
	StatusCloseRequested
)

// Flags are the half-close bits threaded alongside Status.
type Flags uint8

const (
	FlagTXEOS Flags = 1 << iota
	FlagTXEOSAlloc
	FlagTXEOSAck
)

// NoIndex marks an absent Table link (the arena equivalent of a NULL
// bump_next/bump_prev pointer).
const NoIndex uint32 = ^uint32(0)

// Flow is one TCP connection's state (struct flextcp_connection).
type Flow struct {
	Status Status
	Flags  Flags

	LocalIP     uint32
	LocalPort   uint16
	RemoteIP    uint32
	RemotePort  uint16

	RX RingCursor // rxb_* fields
	TX TXCursor   // txb_* fields

	SeqRX uint32
	SeqTX uint32

	FlowID  uint32 // data-plane flow table index
	FnCore  uint16 // assigned fast-path core
	RXClosed bool

	BumpSeq     uint32 // monotonic, per spec §8 invariant 5
	BumpPending bool
	BumpPrev    uint32 // Table index, NoIndex if none (arena port of bump_prev)
	BumpNext    uint32 // Table index, NoIndex if none (arena port of bump_next)

	// Opaque is the application-supplied identifier echoed back by appout
	// commands (OPAQUE(conn) in the C source); here it is the Flow's own
	// Table index, since the library never hands out raw pointers.
	Opaque uint32
}

// RingCursor is the receive-side circular-buffer state.
type RingCursor struct {
	Base shmregion.Ref // rxb_base/rxb_len, offset+length into <dma>
	Head uint32        // rxb_head
	Used uint32        // rxb_used
	Bump uint32         // rxb_bump, pending-ack byte count
}

// Len returns the receive buffer's total capacity in bytes.
func (c *RingCursor) Len() uint32 { return c.Base.Len }

// TXCursor is the transmit-side circular-buffer state.
type TXCursor struct {
	Base      shmregion.Ref // txb_base/txb_len
	Head      uint32        // txb_head
	Sent      uint32        // txb_sent
	Allocated uint32        // txb_allocated
	Bump      uint32        // txb_bump
}

// Len returns the transmit buffer's total capacity in bytes.
func (c *TXCursor) Len() uint32 { return c.Base.Len }

// reset re-initializes a Flow to its just-allocated CLOSED state, mirroring
// connection_init (memset + status=CONN_CLOSED) in conn.c.
func (f *Flow) reset(opaque uint32) {
	*f = Flow{
		Status:   StatusClosed,
		BumpPrev: NoIndex,
		BumpNext: NoIndex,
		Opaque:   opaque,
	}
}

// TxAllocBytes returns the bytes still available to allocate for transmit
// (conn_tx_allocbytes): txb_len - txb_sent - txb_allocated.
func (f *Flow) TxAllocBytes() uint32 {
	return f.TX.Len() - f.TX.Sent - f.TX.Allocated
}

// TxSendBytes returns the bytes allocated but not yet sent
// (conn_tx_sendbytes): txb_allocated.
func (f *Flow) TxSendBytes() uint32 {
	return f.TX.Allocated
}

// TxPossible implements the corrected (non-vestigial) semantics for
// connection_tx_possible per spec Design Note §9's Open Question: the
// original always returns 0 unconditionally; here it reports whether any
// transmit space is actually available.
func (f *Flow) TxPossible() bool {
	return f.TxAllocBytes() > 0
}
