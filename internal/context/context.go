package context

import (
	"github.com/rs/xid"

	"github.com/tcp-acceleration-service/tas-sub001/internal/flow"
	"github.com/tcp-acceleration-service/tas-sub001/internal/shmregion"
	"github.com/tcp-acceleration-service/tas-sub001/internal/wire"
)

// QueuePair is one fast-path core's rxq/txq pair (struct
// flextcp_context::queues[i]). TxqAvail/TxqReclaim track txq_probe's
// producer-side reclamation cursor (spec.md §13): the library is the sole
// producer onto txq, and the NIC/dataplane clears tags without advancing
// any software head, so reclaiming freed slots needs its own cursor
// distinct from the ring's internal head/tail (see wire.Ring.ReclaimScan).
type QueuePair struct {
	Rxq *wire.Ring[ConnUpdate]
	Txq *wire.Ring[ConnUpdate]

	TxqAvail   uint32
	TxqReclaim uint32
	LastTS     uint32 // notify discipline's per-queue last-kick timestamp
}

// KickFunc rings the kernel/dataplane's doorbell (flextcp_kernel_kick):
// writes 1 to the kernel eventfd. Injected so Context carries no direct
// syscall dependency; client.Open supplies the real implementation
// (notify.Kick on the control plane's kernel eventfd).
type KickFunc func() error

// Context is struct flextcp_context: the kin/kout administrative ring
// pair, the per-core txq/rxq vector, and the bump-pending list referencing
// flow.Table indices (spec.md §3 Context invariants, §4.2).
type Context struct {
	DBId      uint32
	WakeFD    int
	NextQueue int // ctx->next_queue: round-robin cursor over Queues for the fast-path drain

	// TraceID is a process-local, globally-unique, sortable identifier for
	// this context, used only for debug logging and metrics labels — never
	// sent over the wire or compared for equality against anything but
	// itself.
	TraceID xid.ID

	Kin  *wire.Ring[AppOut]
	Kout *wire.Ring[AppIn]

	Queues []QueuePair

	Flows     *flow.Table
	Bumps     *flow.BumpList
	Listeners *ListenerTable

	// DMA is the <dma> shared-memory region backing every flow's RX/TX
	// buffers (spec §6); AppIn.RxOff/TxOff are offsets into it. Resolving
	// RxOff/RxLen to an actual []byte for an EvConnReceived event goes
	// through DMA.Bytes, never a raw pointer (Design Note §9).
	DMA *shmregion.Region

	kick KickFunc
}

// NegotiationRequest is struct kernel_uxsock_request: the rxq/txq element
// capacity the application asks the kernel to provision per queue.
type NegotiationRequest struct {
	RxqLen uint32
	TxqLen uint32
}

// NegotiationResponse is struct kernel_uxsock_response, minus the
// byte-offset fields that only matter for a literal mmap'd-memory kin/kout
// (out of scope here — see the messages.go doc comment): the element
// capacities and doorbell/queue count the library needs to build its
// in-process rings.
type NegotiationResponse struct {
	KinLen    uint32
	KoutLen   uint32
	DBId      uint32
	NumQueues uint32
	RxqLen    uint32
	TxqLen    uint32
}

// Negotiator performs the control-plane handshake (flextcp_kernel_newctx):
// pass the local wake eventfd, get back ring capacities and a doorbell id.
// Implemented by internal/controlplane.
type Negotiator interface {
	Negotiate(evfd int, req NegotiationRequest) (NegotiationResponse, error)
}

// Create bootstraps a Context (flextcp_kernel_newctx + the zero-init tail
// of flextcp_context_open): negotiate ring capacities over neg, allocate
// the kin/kout and per-queue rxq/txq rings, and mark every queue's txq as
// fully available — matching kernel.c's
// `ctx->queues[i].txq_avail = ctx->txq_len`, since the dataplane has not
// consumed anything yet.
func Create(neg Negotiator, dma *shmregion.Region, evfd int, kick KickFunc, rxqLen, txqLen uint32, flowCap, listenerCap int) (*Context, error) {
	resp, err := neg.Negotiate(evfd, NegotiationRequest{RxqLen: rxqLen, TxqLen: txqLen})
	if err != nil {
		return nil, err
	}

	queues := make([]QueuePair, resp.NumQueues)
	for i := range queues {
		queues[i] = QueuePair{
			Rxq:      wire.NewRing[ConnUpdate](resp.RxqLen),
			Txq:      wire.NewRing[ConnUpdate](resp.TxqLen),
			TxqAvail: resp.TxqLen,
		}
	}

	flows := flow.NewTable(flowCap)
	return &Context{
		DBId:      resp.DBId,
		WakeFD:    evfd,
		NextQueue: 0,
		TraceID:   xid.New(),
		Kin:       wire.NewRing[AppOut](resp.KinLen),
		Kout:      wire.NewRing[AppIn](resp.KoutLen),
		Queues:    queues,
		Flows:     flows,
		Bumps:     flow.NewBumpList(flows),
		Listeners: NewListenerTable(listenerCap),
		DMA:       dma,
		kick:      kick,
	}, nil
}

// Kick rings the kernel doorbell, tolerating a nil KickFunc (tests that
// never wire a real control plane).
func (c *Context) Kick() error {
	if c.kick == nil {
		return nil
	}
	return c.kick()
}
