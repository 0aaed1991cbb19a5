package shmregion

import "sync/atomic"

// Info page flag bits (spec §6): bit 0 ready, bit 1 huge-pages-used.
// Matches FLEXNIC_FLAG_READY / FLEXNIC_FLAG_HUGEPAGES in
// original_source/tas/shm.c.
const (
	FlagReady      uint32 = 1 << 0
	FlagHugePages  uint32 = 1 << 1
)

// MaxFastPathCores bounds the per-core queue descriptor arrays, matching
// FLEXTCP_MAX_FTCPCORES in original_source/lib/tas/include/tas_ll.h.
const MaxFastPathCores = 16

// InfoPage is the versioned struct resident at offset 0 of the <info>
// region (spec §6). Flags is read with acquire semantics so a client
// spinning on FlagReady observes the producer's writes to the remaining
// fields once it sees the bit set.
type InfoPage struct {
	flags atomic.Uint32

	DMAMemSize      uint64
	InternalMemSize uint64
	QMQNum          uint32
	CoresNum        uint32
	MACAddress      uint64
	PollCycleTAS    uint64 // TSC cycles, data-plane side
	PollCycleApp    uint64 // TSC cycles, library side
}

// Ready reports whether bit 0 of flags is set: the control plane has
// finished populating the region and clients may map <dma>.
func (p *InfoPage) Ready() bool { return p.flags.Load()&FlagReady != 0 }

// HugePages reports whether bit 1 of flags is set: <dma> and <internal>
// are backed by huge-page files rather than POSIX shared memory.
func (p *InfoPage) HugePages() bool { return p.flags.Load()&FlagHugePages != 0 }

// SetReady is called once by the control-plane side after every other
// field has been written (shm_set_ready in original_source/tas/shm.c).
func (p *InfoPage) SetReady() { p.flags.Store(p.flags.Load() | FlagReady) }

// SetHugePages marks the region as huge-pages-backed; must be called before
// SetReady.
func (p *InfoPage) SetHugePages() { p.flags.Store(p.flags.Load() | FlagHugePages) }
