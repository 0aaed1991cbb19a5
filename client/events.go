package client

import (
	"github.com/tcp-acceleration-service/tas-sub001/api"
	ctxpkg "github.com/tcp-acceleration-service/tas-sub001/internal/context"
	"github.com/tcp-acceleration-service/tas-sub001/internal/flow"
)

// Listener is the public handle for a listening socket (flextcp_listener),
// tracking its OPAQUE table index and exposing the Opening/Open/Failed
// outcome via Status (spec.md §13 supplemented feature: the original C API
// only ever reports this through an event, never a synchronous accessor).
type Listener struct {
	ctx *Context
	idx uint32
}

// Status reports the listener's current lifecycle state.
func (l *Listener) Status() ctxpkg.ListenerStatus {
	return l.ctx.raw.Listeners.Get(l.idx).Status
}

// LocalPort returns the port this listener was opened on.
func (l *Listener) LocalPort() uint16 {
	return l.ctx.raw.Listeners.Get(l.idx).LocalPort
}

// Handle returns the OPAQUE table index backing this listener, matching
// the Handle carried in its events.
func (l *Listener) Handle() uint32 { return l.idx }

// Accept allocates a connection slot and issues an ACCEPT_CONN kin
// command for an inbound connection previously reported via an
// EvListenNewConn event. The returned Connection is in AcceptRequested
// state; the outcome arrives as an EvListenAccept event.
func (l *Listener) Accept() (*Connection, error) {
	idx, err := l.ctx.raw.ListenAccept(l.idx)
	if err != nil {
		return nil, err
	}
	conn := &Connection{ctx: l.ctx, idx: idx}
	l.ctx.conns[idx] = conn
	return conn, nil
}

// Connection is the public handle for one TCP flow (flextcp_connection),
// fronting internal/flow.Flow's state machine and buffer cursors.
type Connection struct {
	ctx *Context
	idx uint32
}

// Handle returns the OPAQUE table index backing this connection.
func (c *Connection) Handle() uint32 { return c.idx }

// Status reports the connection's current lifecycle state (spec.md §13
// supplemented feature).
func (c *Connection) Status() flow.Status {
	return c.ctx.flowOf(c.idx).Status
}

// LocalAddr returns the connection's local IP/port.
func (c *Connection) LocalAddr() (ip uint32, port uint16) {
	f := c.ctx.flowOf(c.idx)
	return f.LocalIP, f.LocalPort
}

// RemoteAddr returns the connection's remote IP/port.
func (c *Connection) RemoteAddr() (ip uint32, port uint16) {
	f := c.ctx.flowOf(c.idx)
	return f.RemoteIP, f.RemotePort
}

// ReceivedDone implements connection_rx_done: tell the fast path that n
// bytes previously delivered via EvConnReceived have been consumed and
// their buffer space may be reused.
func (c *Connection) ReceivedDone(n uint32) error {
	f := c.ctx.flowOf(c.idx)
	return flow.RxDone(c.idx, c.ctx.raw.Bumps, f, n)
}

// Send copies data into the connection's transmit buffer and marks it for
// sending, wrapping connection_tx_alloc2/connection_tx_send to handle a
// buffer-wrap split transparently. Returns the number of bytes actually
// queued, which may be less than len(data) if the transmit buffer is
// nearly full (a short count with a nil error). api.ErrQueueFull is
// returned only when no byte at all could be allocated.
func (c *Connection) Send(data []byte) (int, error) {
	f := c.ctx.flowOf(c.idx)

	seg1, seg2, err := f.TxAlloc2(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	n := int(seg1.Len + seg2.Len)
	if n == 0 {
		return 0, api.ErrQueueFull
	}

	copy(c.ctx.raw.DMA.Bytes(seg1), data[:seg1.Len])
	if seg2.Len > 0 {
		copy(c.ctx.raw.DMA.Bytes(seg2), data[seg1.Len:n])
	}

	if err := f.TxSend(c.idx, c.ctx.raw.Bumps, uint32(n)); err != nil {
		return 0, err
	}
	return n, nil
}

// CloseSend implements connection_tx_close: half-close the send
// direction once all previously sent bytes have drained. The peer
// observes this as an RX-closed condition; the connection itself remains
// open for receiving until the full Close.
func (c *Connection) CloseSend() error {
	f := c.ctx.flowOf(c.idx)
	return f.TxClose(c.idx, c.ctx.raw.Bumps)
}

// Close implements flextcp_connection_close: request the kernel/dataplane
// tear the connection down entirely. The outcome arrives as an
// EvConnClosed event.
func (c *Connection) Close() error {
	return c.ctx.raw.ConnectionClose(c.idx)
}

// Move implements flextcp_connection_move: request this OPEN connection
// be rebalanced onto a different fast-path core. The outcome arrives as
// an EvConnMoved event.
func (c *Connection) Move() error {
	return c.ctx.raw.ConnectionMove(c.idx)
}
