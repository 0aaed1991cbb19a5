package context

import (
	"github.com/tcp-acceleration-service/tas-sub001/api"
	"github.com/tcp-acceleration-service/tas-sub001/internal/flow"
)

// ListenOpen implements flextcp_listen_open (spec §4.3): allocate a
// listener slot, enqueue a LISTEN_OPEN kin command, and kick the kernel.
// On success the listener is left Opening; the caller observes the
// outcome via the later EvListenOpen event (spec.md §13 Status()
// accessor).
func (c *Context) ListenOpen(port uint16, backlog uint32, flags uint32) (uint32, error) {
	if flags&^ListenReusePort != 0 {
		return 0, api.ErrInvalidArgument
	}

	idx, ok := c.Listeners.Alloc()
	if !ok {
		return 0, api.ErrResourceExhausted
	}
	lst := c.Listeners.Get(idx)

	ok = c.Kin.Enqueue(AppOutListenOpen, AppOut{
		Opaque:    idx,
		LocalPort: port,
		Backlog:   backlog,
		Flags:     flags,
	})
	if !ok {
		c.Listeners.Free(idx)
		return 0, api.ErrQueueFull
	}

	lst.LocalPort = port
	lst.Backlog = backlog
	lst.Status = ListenerOpening
	return idx, c.Kick()
}

// ListenAccept implements flextcp_listen_accept (spec §4.3): allocate a
// flow slot (connection_init, reset to CLOSED), enqueue an ACCEPT_CONN kin
// command carrying both the listener and connection opaques. On failure
// the flow is freed, leaving the listener untouched — matching the C
// original, which resets the connection unconditionally but only commits
// ACCEPT_REQUESTED after confirming queue space.
func (c *Context) ListenAccept(listenerIdx uint32) (uint32, error) {
	lst := c.Listeners.Get(listenerIdx)

	connIdx, ok := c.Flows.Alloc()
	if !ok {
		return 0, api.ErrResourceExhausted
	}
	f := c.Flows.Get(connIdx)

	ok = c.Kin.Enqueue(AppOutAcceptConn, AppOut{
		Opaque:       connIdx,
		ListenOpaque: listenerIdx,
		LocalPort:    lst.LocalPort,
	})
	if !ok {
		c.Flows.Free(connIdx)
		return 0, api.ErrQueueFull
	}

	f.Status = flow.StatusAcceptRequested
	f.LocalPort = lst.LocalPort
	return connIdx, c.Kick()
}

// ConnectionOpen implements flextcp_connection_open (spec §4.3): allocate
// a flow slot, enqueue a CONN_OPEN kin command, and kick the kernel.
func (c *Context) ConnectionOpen(dstIP uint32, dstPort uint16) (uint32, error) {
	connIdx, ok := c.Flows.Alloc()
	if !ok {
		return 0, api.ErrResourceExhausted
	}
	f := c.Flows.Get(connIdx)

	ok = c.Kin.Enqueue(AppOutConnOpen, AppOut{
		Opaque:     connIdx,
		RemoteIP:   dstIP,
		RemotePort: dstPort,
	})
	if !ok {
		c.Flows.Free(connIdx)
		return 0, api.ErrQueueFull
	}

	f.Status = flow.StatusOpenRequested
	f.RemoteIP = dstIP
	f.RemotePort = dstPort
	return connIdx, c.Kick()
}

// ConnectionClose implements flextcp_connection_close (spec §4.3):
// unconditionally unlink the flow from the bump list (matching the C
// original, which does this before even checking kin space), then enqueue
// a CONN_CLOSE kin command and set CLOSE_REQUESTED.
func (c *Context) ConnectionClose(connIdx uint32) error {
	f := c.Flows.Get(connIdx)
	c.Bumps.Unlink(connIdx)

	ok := c.Kin.Enqueue(AppOutConnClose, AppOut{Opaque: connIdx})
	if !ok {
		return api.ErrQueueFull
	}

	f.Status = flow.StatusCloseRequested
	return c.Kick()
}

// ConnectionMove implements flextcp_connection_move (spec §4.3): request
// that an already-OPEN flow be rebalanced onto a different fast-path core.
// Unlike open/close this does not mutate the flow's Status; the rebalance
// outcome arrives later as EvConnMoved.
func (c *Context) ConnectionMove(connIdx uint32) error {
	f := c.Flows.Get(connIdx)

	ok := c.Kin.Enqueue(AppOutConnMove, AppOut{
		Opaque:     connIdx,
		LocalIP:    f.LocalIP,
		RemoteIP:   f.RemoteIP,
		LocalPort:  f.LocalPort,
		RemotePort: f.RemotePort,
		DBId:       c.DBId,
	})
	if !ok {
		return api.ErrQueueFull
	}
	return c.Kick()
}

// RequestScale implements flextcp_kernel_reqscale (spec.md §13
// supplemented feature): ask the kernel/dataplane to scale the number of
// active fast-path cores for this context up or down to cores.
func (c *Context) RequestScale(cores uint32) error {
	ok := c.Kin.Enqueue(AppOutReqScale, AppOut{NumCores: cores})
	if !ok {
		return api.ErrQueueFull
	}
	return c.Kick()
}
