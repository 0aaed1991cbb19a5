// Package dispatcher implements spec.md §4.4 (Event dispatcher): draining
// the kernel-out (kin/kout) ring, then the fast-path-out (rxq) rings in
// round-robin order, reclaiming txq space, and pushing pending bumps.
//
// Grounded on original_source/lib/tas/init.c's flextcp_context_poll,
// kernel_poll, fastpath_poll, txq_probe, and conns_bump. The vectorized
// 8-wide prefetch variant (fastpath_poll_vec/fetch_8ts, x86 inline asm) is
// an Open Question resolved in DESIGN.md: the portable round-robin scan
// below is functionally equivalent and is what is implemented.
package dispatcher

import (
	"fmt"

	"github.com/tcp-acceleration-service/tas-sub001/api"
	ctxpkg "github.com/tcp-acceleration-service/tas-sub001/internal/context"
	"github.com/tcp-acceleration-service/tas-sub001/internal/flow"
	"github.com/tcp-acceleration-service/tas-sub001/internal/shmregion"
)

// Poll implements flextcp_context_poll: drain kernel events into events,
// then fast-path events into whatever budget remains, reclaim txq space,
// and push pending bumps. Returns the number of events written. If the
// kernel drain itself runs out of room mid-entry, the fast-path drain,
// reclamation and bump push are all skipped for this call, matching the
// original's early return.
func Poll(ctx *ctxpkg.Context, events []api.Event) int {
	n := len(events)

	used, abort := drainKernel(ctx, events)
	if abort {
		return used
	}

	produced, _ := drainFastPath(ctx, events[used:])

	reclaimTxq(ctx, n)
	pushBumps(ctx)

	return used + produced
}

// drainKernel implements kernel_poll: walk kout starting at its head,
// translating each administrative event into one or more api.Events.
// abort is true if an entry needed more output room than remains; that
// entry is left uncommitted (not Advance'd) so the next Poll call retries
// it from scratch.
func drainKernel(ctx *ctxpkg.Context, events []api.Event) (used int, abort bool) {
	i := 0
	for i < len(events) {
		tag, in, ok := ctx.Kout.PeekPayload()
		if !ok {
			break
		}

		var j int
		switch tag {
		case ctxpkg.AppInConnOpened:
			j = dispatchConnOpenedLike(ctx, in, events[i:], api.EvConnOpen, false)
		case ctxpkg.AppInListenNewConn:
			events[i] = api.Event{
				Type:       api.EvListenNewConn,
				Handle:     in.Opaque,
				RemoteIP:   in.RemoteIP,
				RemotePort: in.RemotePort,
			}
			j = 1
		case ctxpkg.AppInAcceptedConn:
			j = dispatchConnOpenedLike(ctx, in, events[i:], api.EvListenAccept, true)
		case ctxpkg.AppInStatusListenOpen:
			events[i] = dispatchListenStatus(ctx, in)
			j = 1
		case ctxpkg.AppInStatusConnMove:
			events[i] = api.Event{Type: api.EvConnMoved, Status: in.Status, Handle: in.Opaque}
			j = 1
		case ctxpkg.AppInStatusConnClose:
			ctx.Flows.Get(in.Opaque).Status = flow.StatusClosed
			events[i] = api.Event{Type: api.EvConnClosed, Status: in.Status, Handle: in.Opaque}
			j = 1
		default:
			panic(fmt.Sprintf("dispatcher: corrupt kout entry, unexpected type=%d", tag))
		}

		if j == -1 {
			return i, true
		}
		i += j
		ctx.Kout.Advance()
	}
	return i, false
}

// dispatchConnOpenedLike implements both event_kappin_conn_opened and
// event_kappin_accept_conn, which are identical except for the event type
// they report and whether the remote 4-tuple half is learned from the
// kernel (accept) or was already set by the caller (connect).
func dispatchConnOpenedLike(ctx *ctxpkg.Context, in ctxpkg.AppIn, events []api.Event, evType api.EventType, isAccept bool) int {
	idx := in.Opaque
	f := ctx.Flows.Get(idx)

	events[0] = api.Event{Type: evType, Status: in.Status, Handle: idx}
	if in.Status != 0 {
		f.Status = flow.StatusClosed
		return 1
	}

	avail := len(events)
	if f.RX.Used > 0 && f.RXClosed && avail < 3 {
		return -1
	}
	if (f.RX.Used > 0 || f.RXClosed) && avail < 2 {
		return -1
	}

	f.Status = flow.StatusOpen
	f.LocalIP = in.LocalIP
	f.LocalPort = in.LocalPort
	if isAccept {
		f.RemoteIP = in.RemoteIP
		f.RemotePort = in.RemotePort
	}
	f.SeqRX = in.SeqRX
	f.SeqTX = in.SeqTX
	f.FlowID = in.FlowID
	f.FnCore = in.FnCore
	f.RX.Base = shmregion.Ref{Off: in.RxOff, Len: in.RxLen}
	f.TX.Base = shmregion.Ref{Off: in.TxOff, Len: in.TxLen}

	j := 1
	if f.RX.Used > 0 {
		f.SeqRX += f.RX.Used
		events[j] = api.Event{
			Type:   api.EvConnReceived,
			Handle: idx,
			RxBuf:  ctx.DMA.Bytes(shmregion.Ref{Off: f.RX.Base.Off, Len: f.RX.Used}),
		}
		j++
	}
	if f.RXClosed {
		events[j] = api.Event{Type: api.EvConnRXClosed, Handle: idx}
		j++
	}
	return j
}

// dispatchListenStatus implements event_kappin_st_listen_open.
func dispatchListenStatus(ctx *ctxpkg.Context, in ctxpkg.AppIn) api.Event {
	lst := ctx.Listeners.Get(in.Opaque)
	if in.Status != 0 {
		lst.Status = ctxpkg.ListenerFailed
	} else {
		lst.Status = ctxpkg.ListenerOpen
	}
	return api.Event{Type: api.EvListenOpen, Status: in.Status, Handle: in.Opaque}
}

// drainFastPath implements fastpath_poll: round-robin over ctx.Queues
// starting at ctx.NextQueue, draining each queue's rxq until it runs dry
// or the event budget is exhausted. abort is true if a connupdate needed
// more room than remains; as with the kernel drain, that entry is left
// uncommitted.
func drainFastPath(ctx *ctxpkg.Context, events []api.Event) (produced int, abort bool) {
	i := 0
	numQueues := len(ctx.Queues)
	for k := 0; k < numQueues && i < len(events); k++ {
		q := &ctx.Queues[ctx.NextQueue]
		ranOut := false

		for i < len(events) {
			tag, cu, ok := q.Rxq.PeekPayload()
			if !ok {
				break
			}
			if tag != ctxpkg.ConnUpdateTag {
				panic(fmt.Sprintf("dispatcher: corrupt rxq entry, unexpected type=%d", tag))
			}

			j := dispatchConnUpdate(ctx, cu, events[i:], uint16(ctx.NextQueue))
			if j == -1 {
				ranOut = true
				break
			}
			i += j
			q.Rxq.Advance()
		}

		if ranOut {
			return i, true
		}
		ctx.NextQueue++
		if ctx.NextQueue >= numQueues {
			ctx.NextQueue = 0
		}
	}
	return i, false
}

// dispatchConnUpdate implements event_arx_connupdate: the fast-path's bump
// notification, handling the early-update race for connections still in
// OPEN_REQUESTED/ACCEPT_REQUESTED, silent drop for closed/closing
// connections, and full event generation (RECEIVED with wrap split,
// SENDBUF, TXCLOSED, RXCLOSED) for OPEN connections.
func dispatchConnUpdate(ctx *ctxpkg.Context, cu ctxpkg.ConnUpdate, events []api.Event, fnCore uint16) int {
	idx := cu.Opaque
	f := ctx.Flows.Get(idx)
	f.FnCore = fnCore

	rxBump := cu.RxBump
	txBump := cu.TxBump
	eos := cu.Flags&ctxpkg.FlagRXDone != 0

	switch f.Status {
	case flow.StatusOpenRequested, flow.StatusAcceptRequested:
		// Due to a race, a connupdate can arrive before the
		// CONN_OPENED/ACCEPTED_CONN confirmation; buffer it for the
		// synthetic injection dispatchConnOpenedLike performs once that
		// confirmation arrives.
		f.RXClosed = eos
		f.RX.Head += rxBump
		f.RX.Used += rxBump
		return 0
	case flow.StatusClosed, flow.StatusCloseRequested:
		return 0
	}

	evsNeeded := 0
	if rxBump > 0 {
		evsNeeded++
		if f.RX.Head+rxBump > f.RX.Len() {
			evsNeeded++
		}
	}

	txAvailEv := txBump > 0 && f.TxAllocBytes() == 0
	if txAvailEv {
		evsNeeded++
	}

	txSentAfter := f.TX.Sent - txBump
	txEOSAckPending := f.Flags&flow.FlagTXEOSAlloc != 0 && txSentAfter == 0
	if txEOSAckPending {
		evsNeeded++
	}
	if eos {
		evsNeeded++
	}

	if evsNeeded > len(events) {
		return -1
	}

	i := 0
	if rxBump > 0 {
		if f.RX.Head+rxBump > f.RX.Len() {
			rxLen := f.RX.Len() - f.RX.Head
			events[i] = api.Event{
				Type:   api.EvConnReceived,
				Handle: idx,
				RxBuf:  ctx.DMA.Bytes(shmregion.Ref{Off: f.RX.Base.Off + f.RX.Head, Len: rxLen}),
			}
			i++
			events[i] = api.Event{
				Type:   api.EvConnReceived,
				Handle: idx,
				RxBuf:  ctx.DMA.Bytes(shmregion.Ref{Off: f.RX.Base.Off, Len: rxBump - rxLen}),
			}
		} else {
			events[i] = api.Event{
				Type:   api.EvConnReceived,
				Handle: idx,
				RxBuf:  ctx.DMA.Bytes(shmregion.Ref{Off: f.RX.Base.Off + f.RX.Head, Len: rxBump}),
			}
		}
		i++

		f.SeqRX += rxBump
		f.RX.Head += rxBump
		if f.RX.Head >= f.RX.Len() {
			f.RX.Head -= f.RX.Len()
		}
		f.RX.Used += rxBump
	}

	if txBump > 0 {
		f.TX.Sent -= txBump

		if txAvailEv {
			events[i] = api.Event{Type: api.EvConnSendBuf, Handle: idx}
			i++
		}

		if f.Flags&flow.FlagTXEOS != 0 && f.Flags&flow.FlagTXEOSAlloc == 0 {
			// We were previously unable to push the EOS marker; retry now
			// that a send bump has freed tx space.
			if err := f.PushTxEOS(idx, ctx.Bumps); err != nil {
				panic("dispatcher: pushtxeos failed after a successful tx bump")
			}
		} else if f.Flags&flow.FlagTXEOSAlloc != 0 && f.TX.Sent == 0 {
			f.Flags |= flow.FlagTXEOSAck
			events[i] = api.Event{Type: api.EvConnTXClosed, Handle: idx}
			i++
		}
	}

	if eos {
		events[i] = api.Event{Type: api.EvConnRXClosed, Handle: idx}
		f.RXClosed = true
		i++
	}

	return i
}

// reclaimTxq implements txq_probe: for each queue whose tracked available
// credit has dropped to half capacity or below, scan forward (capped at
// 2*n slots, n being the caller's per-poll event budget) reclaiming slots
// the NIC/dataplane has cleared.
func reclaimTxq(ctx *ctxpkg.Context, n int) {
	for i := range ctx.Queues {
		q := &ctx.Queues[i]
		capacity := uint32(q.Txq.Cap())
		if q.TxqAvail > capacity/2 {
			continue
		}
		reclaimed := q.Txq.ReclaimScan(&q.TxqReclaim, 2*n)
		q.TxqAvail += uint32(reclaimed)
	}
}

// pushBumps implements conns_bump: drain the bump-pending list in order,
// allocating one txq slot per flow and stopping (leaving the remainder of
// the list pending) the moment a queue runs out of txq credit.
func pushBumps(ctx *ctxpkg.Context) {
	for {
		idx := ctx.Bumps.First()
		if idx == flow.NoIndex {
			return
		}
		f := ctx.Flows.Get(idx)
		q := &ctx.Queues[f.FnCore]
		if q.TxqAvail == 0 {
			return
		}

		var flags uint8
		if f.Flags&flow.FlagTXEOSAlloc != 0 {
			flags |= ctxpkg.FlagTXDone
		}

		ok := q.Txq.Enqueue(ctxpkg.ConnUpdateTag, ctxpkg.ConnUpdate{
			FlowID:  f.FlowID,
			RxBump:  f.RX.Bump,
			TxBump:  f.TX.Bump,
			BumpSeq: f.BumpSeq,
			Flags:   flags,
		})
		if !ok {
			panic("dispatcher: txq enqueue failed despite available credit")
		}

		f.BumpSeq++
		q.TxqAvail--
		f.RX.Bump = 0
		f.TX.Bump = 0

		ctx.Bumps.PopFront()
	}
}
