package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tcp-acceleration-service/tas-sub001/api"
	"github.com/tcp-acceleration-service/tas-sub001/internal/shmregion"
)

func newOpenFlow(t *testing.T, rxLen, txLen uint32) (*Table, *BumpList, uint32, *Flow) {
	t.Helper()
	tbl := NewTable(4)
	bl := NewBumpList(tbl)
	idx, ok := tbl.Alloc()
	require.True(t, ok)
	f := tbl.Get(idx)
	f.Status = StatusOpen
	f.RX.Base = shmregion.Slice(0, rxLen)
	f.TX.Base = shmregion.Slice(rxLen, txLen)
	return tbl, bl, idx, f
}

func TestTableAllocFreeReuse(t *testing.T) {
	tbl := NewTable(2)
	a, ok := tbl.Alloc()
	require.True(t, ok)
	b, ok := tbl.Alloc()
	require.True(t, ok)
	require.NotEqual(t, a, b)

	_, ok = tbl.Alloc()
	require.False(t, ok, "table must report exhaustion once capacity is reached")

	tbl.Free(a)
	c, ok := tbl.Alloc()
	require.True(t, ok)
	require.Equal(t, a, c, "freed slot must be reusable")
}

func TestBumpListMarkIsIdempotent(t *testing.T) {
	tbl := NewTable(4)
	bl := NewBumpList(tbl)
	idx, _ := tbl.Alloc()

	bl.Mark(idx)
	bl.Mark(idx)
	bl.Mark(idx)

	n := 0
	for cur := bl.First(); cur != NoIndex; {
		n++
		cur = tbl.Get(cur).BumpNext
	}
	require.Equal(t, 1, n, "a flow may appear at most once in the bump list")
}

func TestBumpListUnlinkFromMiddle(t *testing.T) {
	tbl := NewTable(4)
	bl := NewBumpList(tbl)
	a, _ := tbl.Alloc()
	b, _ := tbl.Alloc()
	c, _ := tbl.Alloc()
	bl.Mark(a)
	bl.Mark(b)
	bl.Mark(c)

	bl.Unlink(b)

	var order []uint32
	for cur := bl.First(); cur != NoIndex; cur = tbl.Get(cur).BumpNext {
		order = append(order, cur)
	}
	require.Equal(t, []uint32{a, c}, order)
	require.False(t, tbl.Get(b).BumpPending)
}

func TestTxAllocRespectsAvailableSpace(t *testing.T) {
	_, _, _, f := newOpenFlow(t, 0, 4096)
	ref, err := f.TxAlloc(5000)
	require.NoError(t, err)
	require.Equal(t, uint32(4096), ref.Len)
}

func TestTxAllocWrapShortAllocatesSingleSegment(t *testing.T) {
	_, _, _, f := newOpenFlow(t, 0, 4096)
	f.TX.Head = 3000
	ref, err := f.TxAlloc(2000)
	require.NoError(t, err)
	require.Equal(t, uint32(1096), ref.Len, "single-segment alloc must short-allocate at the wrap boundary")
}

func TestTxAlloc2SplitsAcrossWrap(t *testing.T) {
	_, _, _, f := newOpenFlow(t, 0, 4096)
	f.TX.Head = 3000
	seg1, seg2, err := f.TxAlloc2(2000)
	require.NoError(t, err)
	require.Equal(t, uint32(1096), seg1.Len)
	require.Equal(t, uint32(904), seg2.Len)
	require.Equal(t, uint32(2000), seg1.Len+seg2.Len)
}

func TestTxAllocAfterEOSFails(t *testing.T) {
	_, bl, idx, f := newOpenFlow(t, 0, 4096)
	require.NoError(t, f.TxClose(idx, bl))
	_, err := f.TxAlloc(10)
	require.Error(t, err)
}

func TestTxSendMarksBumpAndAdvancesHead(t *testing.T) {
	_, bl, idx, f := newOpenFlow(t, 0, 4096)
	_, err := f.TxAlloc(100)
	require.NoError(t, err)
	require.NoError(t, f.TxSend(idx, bl, 100))

	require.Equal(t, uint32(100), f.TX.Head)
	require.Equal(t, uint32(100), f.TX.Sent)
	require.Equal(t, uint32(0), f.TX.Allocated)
	require.Equal(t, uint32(100), f.TX.Bump)
	require.True(t, f.BumpPending)
}

func TestTxCloseRequiresAllocatedDrained(t *testing.T) {
	_, bl, idx, f := newOpenFlow(t, 0, 4096)
	_, err := f.TxAlloc(100)
	require.NoError(t, err)
	err = f.TxClose(idx, bl)
	require.Error(t, err, "tx_close must reject while allocated bytes are unsent")
}

func TestPushTxEOSPostponesWhenBufferFull(t *testing.T) {
	_, bl, idx, f := newOpenFlow(t, 0, 4)
	_, err := f.TxAlloc(4)
	require.NoError(t, err)
	require.NoError(t, f.TxSend(idx, bl, 4))

	f.Flags |= FlagTXEOS
	err = f.PushTxEOS(idx, bl)
	require.ErrorIs(t, err, api.ErrQueueFull)
}

func TestRxDoneMarksBumpPastQuarterThreshold(t *testing.T) {
	tbl := NewTable(1)
	bl := NewBumpList(tbl)
	idx, _ := tbl.Alloc()
	f := tbl.Get(idx)
	f.RX.Base = shmregion.Slice(0, 100)
	f.RX.Used = 50

	require.NoError(t, RxDone(idx, bl, f, 10))
	require.False(t, f.BumpPending, "below the 1/4 threshold, no bump mark yet")

	require.NoError(t, RxDone(idx, bl, f, 20))
	require.True(t, f.BumpPending, "crossing rx.len/4 must mark the bump")
}

func TestRxDoneRejectsOverconsumption(t *testing.T) {
	tbl := NewTable(1)
	bl := NewBumpList(tbl)
	idx, _ := tbl.Alloc()
	f := tbl.Get(idx)
	f.RX.Used = 5
	err := RxDone(idx, bl, f, 10)
	require.Error(t, err)
}
