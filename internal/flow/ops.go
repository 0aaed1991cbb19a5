package flow

import (
	"github.com/tcp-acceleration-service/tas-sub001/api"
	"github.com/tcp-acceleration-service/tas-sub001/internal/shmregion"
)

// rxBumpMarkFraction mirrors conn.c's "conn->rxb_bump > conn->rxb_len / 4"
// threshold for forcing an rx_done bump rather than batching it further.
const rxBumpMarkFraction = 4

// RxDone implements connection_rx_done (spec §4.3 row 6): decrement
// rx.used by n, accumulate n into the pending rx bump counter, and mark
// the flow for a push to the fast path once the accumulated bump exceeds a
// quarter of the receive buffer.
func RxDone(idx uint32, bl *BumpList, f *Flow, n uint32) error {
	if n > f.RX.Used {
		return api.ErrInvalidArgument
	}
	if n == 0 {
		return nil
	}

	f.RX.Used -= n
	f.RX.Bump += n
	if f.RX.Bump > f.RX.Len()/rxBumpMarkFraction {
		bl.Mark(idx)
	}
	return nil
}

// txRef builds an absolute shmregion.Ref for a length bytes long window at
// local offset localOff inside f's tx buffer.
func (f *Flow) txRef(localOff, length uint32) shmregion.Ref {
	return shmregion.Ref{Off: f.TX.Base.Off + localOff, Len: length}
}

// rxRef builds an absolute shmregion.Ref for a length bytes long window at
// local offset localOff inside f's rx buffer.
func (f *Flow) rxRef(localOff, length uint32) shmregion.Ref {
	return shmregion.Ref{Off: f.RX.Base.Off + localOff, Len: length}
}

// TxAlloc implements connection_tx_alloc (spec §4.3 row 7, single-segment
// form): reserve up to want bytes after head+allocated, short-allocating
// if the reservation would wrap the buffer. Returns a single contiguous
// Ref; callers that must handle the wrap-around case explicitly should use
// TxAlloc2 instead (spec.md §13 supplemented feature).
func (f *Flow) TxAlloc(want uint32) (ref shmregion.Ref, err error) {
	if f.Flags&FlagTXEOS != 0 {
		return shmregion.Ref{}, api.ErrClosed
	}

	avail := f.TxAllocBytes()
	n := want
	if avail < n {
		n = avail
	}

	head := f.TX.Head + f.TX.Allocated
	if head >= f.TX.Len() {
		head -= f.TX.Len()
	}

	if head+n > f.TX.Len() {
		n = f.TX.Len() - head
	}

	ref = f.txRef(head, n)
	f.TX.Allocated += n
	return ref, nil
}

// TxAlloc2 implements connection_tx_alloc2 (spec.md §13): like TxAlloc but
// returns both segments explicitly when the allocation wraps the buffer,
// rather than silently short-allocating the first.
func (f *Flow) TxAlloc2(want uint32) (seg1, seg2 shmregion.Ref, err error) {
	if f.Flags&FlagTXEOS != 0 {
		return shmregion.Ref{}, shmregion.Ref{}, api.ErrClosed
	}

	avail := f.TxAllocBytes()
	n := want
	if avail < n {
		n = avail
	}

	head := f.TX.Head + f.TX.Allocated
	if head >= f.TX.Len() {
		head -= f.TX.Len()
	}

	if head+n > f.TX.Len() {
		len1 := f.TX.Len() - head
		seg1 = f.txRef(head, len1)
		seg2 = f.txRef(0, n-len1)
	} else {
		seg1 = f.txRef(head, n)
		seg2 = shmregion.Ref{}
	}

	f.TX.Allocated += n
	return seg1, seg2, nil
}

// TxSend implements connection_tx_send (spec §4.3 row 8): move n bytes from
// allocated to sent, advance tx.head, accumulate the tx bump counter, and
// always mark the flow for a push (unlike rx_done, there is no threshold —
// every send bump is pushed promptly so the fast path learns of new data as
// soon as possible).
func (f *Flow) TxSend(idx uint32, bl *BumpList, n uint32) error {
	if f.TxSendBytes() < n {
		return api.ErrInvalidArgument
	}

	f.TX.Allocated -= n
	f.TX.Sent += n

	next := f.TX.Head + n
	if next >= f.TX.Len() {
		next -= f.TX.Len()
	}
	f.TX.Head = next

	f.TX.Bump += n
	bl.Mark(idx)
	return nil
}

// TxClose implements connection_tx_close (spec §4.3 row 9): requires
// tx.allocated == 0 and not already TXEOS; sets TXEOS and attempts to push
// the EOS marker immediately via PushTxEOS.
func (f *Flow) TxClose(idx uint32, bl *BumpList) error {
	if f.TxSendBytes() > 0 {
		return api.ErrInvalidArgument
	}
	if f.Flags&FlagTXEOS != 0 {
		return api.ErrClosed
	}

	f.Flags |= FlagTXEOS
	_ = f.PushTxEOS(idx, bl) // postponing on queue-full is expected, not an error
	return nil
}

// PushTxEOS implements flextcp_conn_pushtxeos: reserves one byte to carry
// the EOS marker if buffer space allows, marks TXEOS_ALLOC, and marks the
// bump. Returns ErrQueueFull if there is no free tx byte right now — the
// dispatcher retries this after the next successful tx bump (spec §4.4:
// "After a successful tx bump while TXEOS is set but TXEOS_ALLOC is not,
// the dispatcher calls pushtxeos to try again").
func (f *Flow) PushTxEOS(idx uint32, bl *BumpList) error {
	if f.TxAllocBytes() == 0 {
		return api.ErrQueueFull
	}

	f.TX.Sent++
	head := f.TX.Head + 1
	if head >= f.TX.Len() {
		head -= f.TX.Len()
	}
	f.TX.Head = head

	f.Flags |= FlagTXEOSAlloc
	f.TX.Bump++
	bl.Mark(idx)
	return nil
}
