package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tcp-acceleration-service/tas-sub001/api"
	ctxpkg "github.com/tcp-acceleration-service/tas-sub001/internal/context"
	"github.com/tcp-acceleration-service/tas-sub001/internal/flow"
	"github.com/tcp-acceleration-service/tas-sub001/internal/shmregion"
)

type fakeNegotiator struct{ resp ctxpkg.NegotiationResponse }

func (n *fakeNegotiator) Negotiate(evfd int, req ctxpkg.NegotiationRequest) (ctxpkg.NegotiationResponse, error) {
	return n.resp, nil
}

func newTestContext(t *testing.T, numQueues, txqLen uint32) *ctxpkg.Context {
	t.Helper()
	dma, err := shmregion.Open(&shmregion.MemBackend{}, shmregion.NameDMA, 1<<20)
	require.NoError(t, err)

	neg := &fakeNegotiator{resp: ctxpkg.NegotiationResponse{
		KinLen: 8, KoutLen: 8, DBId: 1, NumQueues: numQueues, RxqLen: 8, TxqLen: txqLen,
	}}
	ctx, err := ctxpkg.Create(neg, dma, 1, nil, 8, txqLen, 8, 8)
	require.NoError(t, err)
	return ctx
}

func TestDrainKernelConnOpenedSuccess(t *testing.T) {
	ctx := newTestContext(t, 1, 8)
	idx, _ := ctx.Flows.Alloc()
	f := ctx.Flows.Get(idx)
	f.Status = flow.StatusOpenRequested

	require.True(t, ctx.Kout.Enqueue(ctxpkg.AppInConnOpened, ctxpkg.AppIn{
		Opaque: idx, RxOff: 0, RxLen: 4096, TxOff: 4096, TxLen: 4096,
	}))

	events := make([]api.Event, 8)
	n := Poll(ctx, events)
	require.Equal(t, 1, n)
	require.Equal(t, api.EvConnOpen, events[0].Type)
	require.Equal(t, flow.StatusOpen, f.Status)
}

func TestDrainKernelConnOpenedFailureClosesFlow(t *testing.T) {
	ctx := newTestContext(t, 1, 8)
	idx, _ := ctx.Flows.Alloc()
	f := ctx.Flows.Get(idx)
	f.Status = flow.StatusOpenRequested

	require.True(t, ctx.Kout.Enqueue(ctxpkg.AppInConnOpened, ctxpkg.AppIn{Opaque: idx, Status: -1}))

	events := make([]api.Event, 8)
	n := Poll(ctx, events)
	require.Equal(t, 1, n)
	require.Equal(t, int16(-1), events[0].Status)
	require.Equal(t, flow.StatusClosed, f.Status)
}

func TestDrainKernelConnOpenedInjectsBufferedReceiveAndEOS(t *testing.T) {
	ctx := newTestContext(t, 1, 8)
	idx, _ := ctx.Flows.Alloc()
	f := ctx.Flows.Get(idx)
	f.Status = flow.StatusOpenRequested
	f.RX.Used = 10
	f.RXClosed = true

	require.True(t, ctx.Kout.Enqueue(ctxpkg.AppInConnOpened, ctxpkg.AppIn{
		Opaque: idx, RxOff: 0, RxLen: 4096, TxOff: 4096, TxLen: 4096,
	}))

	events := make([]api.Event, 8)
	n := Poll(ctx, events)
	require.Equal(t, 3, n)
	require.Equal(t, api.EvConnOpen, events[0].Type)
	require.Equal(t, api.EvConnReceived, events[1].Type)
	require.Len(t, events[1].RxBuf, 10)
	require.Equal(t, api.EvConnRXClosed, events[2].Type)
}

func TestDrainKernelConnOpenedAbortsWhenNoRoomForInjectedEvents(t *testing.T) {
	ctx := newTestContext(t, 1, 8)
	idx, _ := ctx.Flows.Alloc()
	f := ctx.Flows.Get(idx)
	f.Status = flow.StatusOpenRequested
	f.RX.Used = 10
	f.RXClosed = true

	require.True(t, ctx.Kout.Enqueue(ctxpkg.AppInConnOpened, ctxpkg.AppIn{
		Opaque: idx, RxOff: 0, RxLen: 4096, TxOff: 4096, TxLen: 4096,
	}))

	events := make([]api.Event, 2) // needs 3 (open + received + rxclosed)
	n := Poll(ctx, events)
	require.Equal(t, 0, n, "must abort without consuming the kout entry")

	// Retrying with enough room succeeds.
	events = make([]api.Event, 8)
	n = Poll(ctx, events)
	require.Equal(t, 3, n)
}

func TestDispatchConnUpdateBuffersDuringOpenRequestedRace(t *testing.T) {
	ctx := newTestContext(t, 1, 8)
	idx, _ := ctx.Flows.Alloc()
	f := ctx.Flows.Get(idx)
	f.Status = flow.StatusOpenRequested

	require.True(t, ctx.Queues[0].Rxq.Enqueue(ctxpkg.ConnUpdateTag, ctxpkg.ConnUpdate{
		Opaque: idx, RxBump: 5,
	}))

	events := make([]api.Event, 8)
	n := Poll(ctx, events)
	require.Equal(t, 0, n)
	require.Equal(t, uint32(5), f.RX.Used, "bump must be buffered onto the flow, not dropped")
}

func TestDispatchConnUpdateDropsForClosedConnection(t *testing.T) {
	ctx := newTestContext(t, 1, 8)
	idx, _ := ctx.Flows.Alloc()
	f := ctx.Flows.Get(idx)
	f.Status = flow.StatusClosed

	require.True(t, ctx.Queues[0].Rxq.Enqueue(ctxpkg.ConnUpdateTag, ctxpkg.ConnUpdate{
		Opaque: idx, RxBump: 5,
	}))

	events := make([]api.Event, 8)
	n := Poll(ctx, events)
	require.Equal(t, 0, n)
	require.Equal(t, uint32(0), f.RX.Used)
}

func TestDispatchConnUpdateOpenGeneratesReceivedEvent(t *testing.T) {
	ctx := newTestContext(t, 1, 8)
	idx, _ := ctx.Flows.Alloc()
	f := ctx.Flows.Get(idx)
	f.Status = flow.StatusOpen
	f.RX.Base = shmregion.Slice(0, 100)

	require.True(t, ctx.Queues[0].Rxq.Enqueue(ctxpkg.ConnUpdateTag, ctxpkg.ConnUpdate{
		Opaque: idx, RxBump: 20,
	}))

	events := make([]api.Event, 8)
	n := Poll(ctx, events)
	require.Equal(t, 1, n)
	require.Equal(t, api.EvConnReceived, events[0].Type)
	require.Len(t, events[0].RxBuf, 20)
	require.Equal(t, uint32(20), f.RX.Head)
}

func TestPushBumpsStopsWhenTxqExhausted(t *testing.T) {
	ctx := newTestContext(t, 1, 1) // txq capacity 1
	ctx.Queues[0].TxqAvail = 1

	idxA, _ := ctx.Flows.Alloc()
	fa := ctx.Flows.Get(idxA)
	fa.Status = flow.StatusOpen
	fa.FnCore = 0
	fa.FlowID = 10
	ctx.Bumps.Mark(idxA)

	idxB, _ := ctx.Flows.Alloc()
	fb := ctx.Flows.Get(idxB)
	fb.Status = flow.StatusOpen
	fb.FnCore = 0
	fb.FlowID = 11
	ctx.Bumps.Mark(idxB)

	pushBumps(ctx)

	require.False(t, fa.BumpPending)
	require.True(t, fb.BumpPending, "second flow must remain pending once txq credit runs out")

	tag, cu, ok := ctx.Queues[0].Txq.Dequeue()
	require.True(t, ok)
	require.Equal(t, uint32(ctxpkg.ConnUpdateTag), tag)
	require.Equal(t, uint32(10), cu.FlowID)
}

func TestReclaimTxqAdvancesCreditAfterNICClearsSlots(t *testing.T) {
	ctx := newTestContext(t, 1, 4)
	q := &ctx.Queues[0]
	q.TxqAvail = 0
	require.True(t, q.Txq.Enqueue(ctxpkg.ConnUpdateTag, ctxpkg.ConnUpdate{FlowID: 1}))
	require.True(t, q.Txq.Enqueue(ctxpkg.ConnUpdateTag, ctxpkg.ConnUpdate{FlowID: 2}))

	_, _, _ = q.Txq.Dequeue() // simulate the NIC consuming one slot
	reclaimTxq(ctx, 4)
	require.Equal(t, uint32(1), ctx.Queues[0].TxqAvail)
}
