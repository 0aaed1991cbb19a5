// Package context implements spec.md §4.2 (Context lifecycle) and the §3
// "Context invariants": the kin/kout administrative ring pair, the per-core
// txq/rxq pairs, and the kin-ring-issuing connection operations.
//
// Grounded on original_source/lib/tas/conn.c (flextcp_listen_open/
// flextcp_listen_accept/flextcp_connection_open/flextcp_connection_close/
// flextcp_connection_move), lib/tas/kernel.c (flextcp_kernel_newctx,
// flextcp_kernel_reqscale), and lib/tas/init.c (the kernel_appin dispatch,
// txq_probe, conns_bump). The kin/kout/rxq/txq rings there are raw shared
// memory shared with a kernel/dataplane process that is out of scope for
// this port (spec.md Non-goals); here they are realized as in-process
// internal/wire.Ring[T] queues of typed Go structs rather than a literal
// byte-for-byte reinterpretation of C structs over mmap'd memory — the
// wire-level contract that matters (tagged-slot SPSC discipline, capacity,
// ordering) is preserved, the binary layout is not.
package context

// AppOut is the payload of a kin (application→kernel) command. Not every
// field is meaningful for every command; see the AppOutCmd* constants and
// lib/tas/include/kernel_appif.h's anonymous union for the original's
// per-command layout.
type AppOut struct {
	Opaque       uint32 // OPAQUE(conn) or OPAQUE(lst): the Table/ListenerTable index
	ListenOpaque uint32 // accept_conn only: OPAQUE(lst)
	LocalIP      uint32
	RemoteIP     uint32
	LocalPort    uint16
	RemotePort   uint16
	Backlog      uint32
	Flags        uint32
	DBId         uint32
	NumCores     uint32 // req_scale only
}

// AppOut command tags. Tag 0 is reserved by internal/wire.Ring as the
// empty-slot sentinel, matching KERNEL_APPOUT_INVALID == 0.
const (
	_ uint32 = iota
	AppOutListenOpen
	AppOutAcceptConn
	AppOutConnOpen
	AppOutConnClose
	AppOutConnMove
	AppOutReqScale
)

// ListenReusePort is the one flag flextcp_listen_open accepts
// (FLEXTCP_LISTEN_REUSEPORT / KERNEL_APPOUT_LISTEN_REUSEPORT).
const ListenReusePort uint32 = 1 << 0

// AppIn is the payload of a kout (kernel→application) response/event.
type AppIn struct {
	Opaque       uint32
	ListenOpaque uint32 // unused; newconn carries no conn opaque yet
	Status       int16
	LocalIP      uint32
	RemoteIP     uint32
	LocalPort    uint16
	RemotePort   uint16
	SeqRX        uint32
	SeqTX        uint32
	FlowID       uint32
	FnCore       uint16
	RxOff        uint32 // byte offset into the <dma> region (shmregion.Ref material)
	TxOff        uint32
	RxLen        uint32
	TxLen        uint32
}

// AppIn event tags (KERNEL_APPIN_*, tag 0 reserved as empty-slot sentinel).
const (
	_ uint32 = iota
	AppInConnOpened
	AppInListenNewConn
	AppInAcceptedConn
	AppInStatusListenOpen
	AppInStatusConnMove
	AppInStatusConnClose
)

// ConnUpdate is the fast-path bump message carried on both rxq (arx,
// kernel/dataplane→app, opaque meaningful) and txq (atx, app→dataplane,
// opaque unused) per struct flextcp_pl_{arx,atx}.msg.connupdate.
type ConnUpdate struct {
	Opaque  uint32 // arx only: OPAQUE(conn)
	FlowID  uint32 // atx only: data-plane flow id (arx resolves the flow via Opaque instead)
	RxBump  uint32
	TxBump  uint32
	BumpSeq uint32
	Flags   uint8
}

// ConnUpdateTag is the only valid connupdate tag (FLEXTCP_PL_ARX_CONNUPDATE /
// FLEXTCP_PL_ATX_CONNUPDATE); tag 0 is the ring's empty-slot sentinel.
const ConnUpdateTag uint32 = 1

// Flag bits carried in ConnUpdate.Flags. FlagRXDone and FlagTXDone occupy
// the same bit position in the original (each struct defines its own FL*
// constant at bit 0) but are named separately here since they are never
// read from the same direction's message.
const (
	FlagRXDone uint8 = 1 << 0 // FLEXTCP_PL_ARX_FLRXDONE (rxq only)
	FlagTXDone uint8 = 1 << 0 // FLEXTCP_PL_ATX_FLTXDONE (txq only)
)
