package client

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tcp-acceleration-service/tas-sub001/api"
	ctxpkg "github.com/tcp-acceleration-service/tas-sub001/internal/context"
	"github.com/tcp-acceleration-service/tas-sub001/internal/flow"
	"github.com/tcp-acceleration-service/tas-sub001/internal/notify"
	"github.com/tcp-acceleration-service/tas-sub001/internal/shmregion"
)

type fakeNegotiator struct {
	resp ctxpkg.NegotiationResponse
}

func (n *fakeNegotiator) Negotiate(evfd int, req ctxpkg.NegotiationRequest) (ctxpkg.NegotiationResponse, error) {
	return n.resp, nil
}

// newTestContext builds a client.Context directly over a fakeNegotiator,
// bypassing Open's real control-plane dial and eventfd creation (both
// Linux-only syscalls), so facade behavior can be exercised on any
// platform and without a live kernel/dataplane counterpart.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	neg := &fakeNegotiator{resp: ctxpkg.NegotiationResponse{
		KinLen: 8, KoutLen: 8, DBId: 1, NumQueues: 1, RxqLen: 8, TxqLen: 8,
	}}
	dma, err := shmregion.Open(&shmregion.MemBackend{}, shmregion.NameDMA, 1<<20)
	require.NoError(t, err)

	raw, err := ctxpkg.Create(neg, dma, 42, func() error { return nil }, 8, 8, 4, 4)
	require.NoError(t, err)

	return &Context{
		raw:       raw,
		kick:      notify.NewKickLimiter(1000, nil),
		block:     notify.NewBlockState(1000, nil),
		listeners: make(map[uint32]*Listener),
		conns:     make(map[uint32]*Connection),
	}
}

func TestListenReturnsOpeningListenerAndEnqueuesCommand(t *testing.T) {
	c := newTestContext(t)
	l, err := c.Listen(80, 16, true)
	require.NoError(t, err)
	require.Equal(t, ctxpkg.ListenerOpening, l.Status())
	require.Equal(t, uint16(80), l.LocalPort())

	_, _, ok := c.raw.Kin.Dequeue()
	require.True(t, ok)
}

func TestConnectReturnsOpenRequestedConnection(t *testing.T) {
	c := newTestContext(t)
	conn, err := c.Connect(0x0A000001, 4242)
	require.NoError(t, err)
	require.Equal(t, flow.StatusOpenRequested, conn.Status())

	ip, port := conn.RemoteAddr()
	require.Equal(t, uint32(0x0A000001), ip)
	require.Equal(t, uint16(4242), port)
}

func TestListenerAcceptTracksNewConnection(t *testing.T) {
	c := newTestContext(t)
	l, err := c.Listen(80, 16, false)
	require.NoError(t, err)

	conn, err := l.Accept()
	require.NoError(t, err)
	require.Equal(t, flow.StatusAcceptRequested, conn.Status())

	got, ok := c.Connection(conn.Handle())
	require.True(t, ok)
	require.Same(t, conn, got)
}

func TestConnectionSendCopiesIntoDMAAndMarksBump(t *testing.T) {
	c := newTestContext(t)
	conn, err := c.Connect(1, 1)
	require.NoError(t, err)

	f := c.flowOf(conn.Handle())
	f.Status = flow.StatusOpen
	f.TX.Base = shmregion.Slice(0, 4096)

	n, err := conn.Send([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("hello"), c.raw.DMA.Bytes(shmregion.Slice(0, 5)))
	require.False(t, c.raw.Bumps.Empty())
}

func TestConnectionCloseIssuesKinCommand(t *testing.T) {
	c := newTestContext(t)
	conn, err := c.Connect(1, 1)
	require.NoError(t, err)
	_, _, _ = c.raw.Kin.Dequeue() // drain the CONN_OPEN command

	require.NoError(t, conn.Close())
	require.Equal(t, flow.StatusCloseRequested, conn.Status())

	_, cmd, ok := c.raw.Kin.Dequeue()
	require.True(t, ok)
	require.Equal(t, conn.Handle(), cmd.Opaque)
}

func TestDMABackendDefaultsToPosix(t *testing.T) {
	_, ok := dmaBackend(Config{}).(shmregion.PosixBackend)
	require.True(t, ok, "default Config must map <dma> through PosixBackend")
}

func TestDMABackendUsesNUMAWhenRequested(t *testing.T) {
	backend := dmaBackend(Config{UseNUMADMA: true, NUMANode: 1})
	numa, ok := backend.(shmregion.NUMABackend)
	require.True(t, ok, "UseNUMADMA must select shmregion.NUMABackend")
	require.Equal(t, 1, numa.Node)
}

func TestPollDeletesConnectionOnConnClosed(t *testing.T) {
	c := newTestContext(t)
	conn, err := c.Connect(1, 1)
	require.NoError(t, err)
	_, _, _ = c.raw.Kin.Dequeue()

	f := c.flowOf(conn.Handle())
	f.Status = flow.StatusCloseRequested

	ok := c.raw.Kout.Enqueue(ctxpkg.AppInStatusConnClose, ctxpkg.AppIn{Opaque: conn.Handle(), Status: 0})
	require.True(t, ok)

	buf := make([]api.Event, 4)
	n, _ := c.Poll(buf)
	require.Equal(t, 1, n)
	_, stillPresent := c.Connection(conn.Handle())
	require.False(t, stillPresent)
}
