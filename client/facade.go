// Package client is the public surface of the library (spec.md §4.3, §6):
// Open a Context against the kernel/dataplane's control socket, Listen or
// Connect to get a Listener/Connection, and Poll for events.
//
// Grounded on original_source/lib/tas/flextcp.h's public API surface
// (flextcp_context_create/flextcp_listen_open/flextcp_connection_open/
// flextcp_context_poll and friends) layered over internal/context,
// internal/flow, internal/dispatcher, internal/controlplane and
// internal/notify.
package client

import (
	"fmt"

	"github.com/tcp-acceleration-service/tas-sub001/api"
	"github.com/tcp-acceleration-service/tas-sub001/control"
	ctxpkg "github.com/tcp-acceleration-service/tas-sub001/internal/context"
	"github.com/tcp-acceleration-service/tas-sub001/internal/controlplane"
	"github.com/tcp-acceleration-service/tas-sub001/internal/dispatcher"
	"github.com/tcp-acceleration-service/tas-sub001/internal/flow"
	"github.com/tcp-acceleration-service/tas-sub001/internal/notify"
	"github.com/tcp-acceleration-service/tas-sub001/internal/shmregion"
)

// Config bundles what Open needs to bootstrap one Context. Fields left
// zero take the defaults flextcp_context_create uses.
type Config struct {
	SocketPath  string // control-plane Unix socket; DefaultSocketPath if empty
	DMASize     int    // length of the <dma> shared-memory region to map
	RxqLen      uint32 // per-queue rxq element capacity requested of the kernel
	TxqLen      uint32 // per-queue txq element capacity requested of the kernel
	FlowCap     int    // flow table capacity (max concurrent connections)
	ListenerCap int    // listener table capacity
	PollCycleUs uint64 // notify discipline's poll_cycle, microseconds (spec §4.6)

	// UseNUMADMA selects internal/shmregion.NUMABackend for the <dma>
	// region instead of PosixBackend, pinning the fast path's
	// send/receive buffers to NUMANode's local memory. Set this only for
	// a single-process deployment with no separate kernel/dataplane
	// process mapping the same shared memory (spec.md §4.2: an FnCore
	// assignment is a CPU+NUMA-node pair, and the buffers its queues
	// point into should be node-local too) — the POSIX backend remains
	// required whenever a separate control-plane process owns the
	// region, which is why this defaults to off.
	UseNUMADMA bool
	NUMANode   int

	// Metrics, if non-nil, receives per-event-type counters and per-queue
	// txq_avail gauges on every Poll call. Build one with
	// control.NewPrometheusMetrics against whatever registry your service
	// scrapes from; nil disables metrics collection entirely.
	Metrics *control.PrometheusMetrics
}

func (c Config) withDefaults() Config {
	if c.DMASize == 0 {
		c.DMASize = 64 << 20
	}
	if c.RxqLen == 0 {
		c.RxqLen = 256
	}
	if c.TxqLen == 0 {
		c.TxqLen = 256
	}
	if c.FlowCap == 0 {
		c.FlowCap = 1024
	}
	if c.ListenerCap == 0 {
		c.ListenerCap = 64
	}
	if c.PollCycleUs == 0 {
		c.PollCycleUs = 1000
	}
	return c
}

// dmaBackend picks the <dma> region's backing store: NUMABackend when
// cfg.UseNUMADMA opts in, PosixBackend otherwise.
func dmaBackend(cfg Config) shmregion.Backend {
	if cfg.UseNUMADMA {
		return shmregion.NUMABackend{Node: cfg.NUMANode}
	}
	return shmregion.PosixBackend{}
}

// Context is a handle to one flextcp_context: a kin/kout ring pair plus a
// vector of per-core fast-path rings, fronting internal/context.Context
// with the public Listener/Connection types and the notify discipline.
type Context struct {
	raw *ctxpkg.Context
	cp  *controlplane.Client

	kick  *notify.KickLimiter
	block *notify.BlockState

	metrics  *control.PrometheusMetrics
	registry *control.MetricsRegistry

	listeners map[uint32]*Listener
	conns     map[uint32]*Connection
}

// Open dials the control plane, negotiates ring capacities, and maps the
// <dma> region, returning a ready Context. Grounded on
// flextcp_context_create's dial+newctx+mmap sequence.
func Open(cfg Config) (*Context, error) {
	cfg = cfg.withDefaults()

	evfd, err := notify.NewEventFD()
	if err != nil {
		return nil, fmt.Errorf("client: creating wake eventfd: %w", err)
	}

	cp, err := controlplane.Dial(cfg.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("client: dialing control plane: %w", err)
	}

	dma, err := shmregion.Open(dmaBackend(cfg), shmregion.NameDMA, cfg.DMASize)
	if err != nil {
		cp.Close()
		return nil, fmt.Errorf("client: mapping dma region: %w", err)
	}

	kick := notify.NewKickLimiter(cfg.PollCycleUs, nil)

	raw, err := ctxpkg.Create(cp, dma, evfd, func() error {
		if !kick.ShouldKick() {
			return nil
		}
		return notify.Kick(cp.KernelEvfd)
	}, cfg.RxqLen, cfg.TxqLen, cfg.FlowCap, cfg.ListenerCap)
	if err != nil {
		cp.Close()
		return nil, fmt.Errorf("client: negotiating context: %w", err)
	}

	return &Context{
		raw:       raw,
		cp:        cp,
		kick:      kick,
		block:     notify.NewBlockState(cfg.PollCycleUs, nil),
		metrics:   cfg.Metrics,
		listeners: make(map[uint32]*Listener),
		conns:     make(map[uint32]*Connection),
	}, nil
}

// Close releases the control-plane connection only. The <dma> region is
// not unmapped and the wake eventfd is not closed.
func (c *Context) Close() error {
	return c.cp.Close()
}

// Listen opens a new listening socket on port, returning its Listener
// immediately in the Opening state; the outcome arrives as an EvListenOpen
// event during a later Poll (spec.md §13 Status() accessor).
func (c *Context) Listen(port uint16, backlog uint32, reusePort bool) (*Listener, error) {
	var flags uint32
	if reusePort {
		flags |= ctxpkg.ListenReusePort
	}
	idx, err := c.raw.ListenOpen(port, backlog, flags)
	if err != nil {
		return nil, err
	}
	l := &Listener{ctx: c, idx: idx}
	c.listeners[idx] = l
	return l, nil
}

// Connect opens a connection to (dstIP, dstPort), returning its Connection
// immediately in the OpenRequested state; the outcome arrives as an
// EvConnOpen event during a later Poll.
func (c *Context) Connect(dstIP uint32, dstPort uint16) (*Connection, error) {
	idx, err := c.raw.ConnectionOpen(dstIP, dstPort)
	if err != nil {
		return nil, err
	}
	conn := &Connection{ctx: c, idx: idx}
	c.conns[idx] = conn
	return conn, nil
}

// RequestScale asks the kernel/dataplane to rebalance this context onto
// cores fast-path cores (spec.md §13 supplemented feature).
func (c *Context) RequestScale(cores uint32) error {
	return c.raw.RequestScale(cores)
}

// Poll drains at most len(events) ready events into events, returning the
// number filled and whether the notify discipline's grace-period state
// machine (spec §4.6) now says it is safe to block on the wake eventfd
// rather than poll again immediately. Event.Handle resolves to a
// *Listener or *Connection via Context.Listener/Context.Connection.
func (c *Context) Poll(events []api.Event) (n int, shouldBlock bool) {
	n = dispatcher.Poll(c.raw, events)
	shouldBlock = c.block.Poll(n > 0)
	c.applyTerminalEvents(events[:n])
	c.observeMetrics(events[:n])
	return n, shouldBlock
}

// observeMetrics feeds one Poll iteration's results into c.registry (if
// attached via WithMetricsRegistry) and c.metrics (if Metrics was
// configured in Config); with neither set it does nothing.
func (c *Context) observeMetrics(events []api.Event) {
	if c.registry != nil {
		c.registry.Set("last_poll_events", len(events))
		c.registry.Set("trace_id", c.raw.TraceID.String())
	}
	if c.metrics == nil {
		return
	}
	for _, ev := range events {
		c.metrics.ObserveEvent(ev.Type.String())
	}
	for i, q := range c.raw.Queues {
		c.metrics.SetTxqAvail(i, q.TxqAvail)
	}
}

// BlockOn waits up to timeoutMs for the context's wake eventfd, delegating
// to a platform Blocker. Callers on non-Linux platforms will get an error;
// spec.md's fast path itself is Linux-only.
func (c *Context) BlockOn(b *notify.Blocker, timeoutMs int) error {
	return b.Block(timeoutMs)
}

// Listener looks up a previously returned Listener by the opaque handle
// carried in an Event (e.g. EvListenOpen.Handle).
func (c *Context) Listener(handle uint32) (*Listener, bool) {
	l, ok := c.listeners[handle]
	return l, ok
}

// Connection looks up a previously returned Connection by the opaque
// handle carried in an Event.
func (c *Context) Connection(handle uint32) (*Connection, bool) {
	conn, ok := c.conns[handle]
	return conn, ok
}

// applyTerminalEvents removes a Connection from the lookup table once an
// EvConnClosed event ends its lifecycle. Listeners are never removed from
// c.listeners.
func (c *Context) applyTerminalEvents(events []api.Event) {
	for _, ev := range events {
		switch ev.Type {
		case api.EvConnClosed:
			delete(c.conns, ev.Handle)
		}
	}
}

// flowOf resolves a Connection's raw flow.Flow for operations that read or
// mutate per-flow state directly.
func (c *Context) flowOf(idx uint32) *flow.Flow {
	return c.raw.Flows.Get(idx)
}
