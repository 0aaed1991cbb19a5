package context

import "fmt"

// ListenerStatus mirrors the status field threaded through
// lib/sockets/context.c's SOL_OPENING/SOL_OPEN/SOL_FAILED states (spec.md
// §13 supplemented Status() accessor).
type ListenerStatus uint8

const (
	ListenerClosed ListenerStatus = iota
	ListenerOpening
	ListenerOpen
	ListenerFailed
)

// Listener is struct flextcp_listener, minus the `conns` pending-accept
// linked list: that list exists to support the socket-emulation layer
// (lib/sockets), which is out of scope here — new connections are reported
// to the caller directly as EvListenNewConn events rather than queued.
type Listener struct {
	Status    ListenerStatus
	LocalPort uint16
	Backlog   uint32
}

func (l *Listener) reset() {
	*l = Listener{Status: ListenerClosed}
}

// ListenerTable is the arena-of-small-indices realization (Design Note §9)
// of listener objects, sized identically to flow.Table: listeners are
// referenced by Table index (the OPAQUE value echoed through kin/kout)
// rather than by pointer.
type ListenerTable struct {
	listeners []Listener
	free      []uint32
}

// NewListenerTable allocates a table with room for capacity listeners.
func NewListenerTable(capacity int) *ListenerTable {
	t := &ListenerTable{
		listeners: make([]Listener, capacity),
		free:      make([]uint32, capacity),
	}
	for i := range t.free {
		t.free[i] = uint32(capacity - 1 - i)
	}
	return t
}

// Alloc reserves a slot, resetting it to Closed. ok is false if the table
// is exhausted.
func (t *ListenerTable) Alloc() (idx uint32, ok bool) {
	if len(t.free) == 0 {
		return 0, false
	}
	idx = t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	t.listeners[idx].reset()
	return idx, true
}

// Free returns idx to the freelist.
func (t *ListenerTable) Free(idx uint32) {
	t.free = append(t.free, idx)
}

// Get returns a pointer to the listener at idx. Panics on out-of-range idx.
func (t *ListenerTable) Get(idx uint32) *Listener {
	if int(idx) >= len(t.listeners) {
		panic(fmt.Sprintf("context: listener table index %d out of range (capacity %d)", idx, len(t.listeners)))
	}
	return &t.listeners[idx]
}

// Cap returns the table's fixed capacity.
func (t *ListenerTable) Cap() int { return len(t.listeners) }
