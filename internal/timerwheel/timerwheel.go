// Package timerwheel implements the supporting timer utility of spec.md
// §4.7: a 28-bit microsecond timestamp wheel with sign-aware relative
// comparison, a monotone-ordered pending list and a FIFO due list capped at
// 64 dispatches per poll.
//
// Grounded exactly on original_source/include/utils_timeout.h and
// lib/utils/timeout.c — the bit layout, rel_time's three-case wraparound
// logic, and the MAX_TIMEOUTS cap are ported unchanged; only the the TSC
// calibration is replaced (time.Now() is used instead of rdtsc, since this
// is a library-side scheduling primitive, not a cycle-accurate fast-path
// timer — see DESIGN.md). The due list is backed by github.com/eapache/queue,
// the domain dependency this module wires it to (§11 of SPEC_FULL.md).
package timerwheel

import (
	"fmt"
	"time"

	"github.com/eapache/queue"
)

// TimeoutBits is the width of the wraparound timestamp, matching
// TIMEOUT_BITS in utils_timeout.h.
const TimeoutBits = 28

// timeoutMask masks a timestamp down to TimeoutBits.
const timeoutMask = uint32(1)<<TimeoutBits - 1

// maxRelUs is the largest interval that can be armed; matches the
// "us >= 1<<(TIMEOUT_BITS-1)" guard in util_timeout_arm.
const maxRelUs = uint32(1) << (TimeoutBits - 1)

// MaxTimeoutsPerPoll caps how many due timeouts Poll dispatches in one
// call, matching MAX_TIMEOUTS.
const MaxTimeoutsPerPoll = 64

// Handler is invoked once per due timeout; typ is the caller-assigned type
// tag passed to Arm.
type Handler func(to *Timeout, typ uint8)

// Timeout is one armed entry. It is opaque to callers beyond Disarm: all
// fields are managed by Manager.
type Timeout struct {
	deadline uint32 // 28-bit us timestamp
	typ      uint8

	pending  bool // true while linked into the pending list
	inDue    bool // true while sitting in the due queue
	next     *Timeout
	prev     *Timeout
}

// Type returns the type tag this timeout was armed with.
func (t *Timeout) Type() uint8 { return t.typ }

// Manager is the timer wheel: an ordered pending list plus a due FIFO,
// matching struct timeout_manager.
type Manager struct {
	pendingFirst, pendingLast *Timeout
	due                       *queue.Queue

	handler Handler
	now     func() uint32 // overridable for tests
}

// NewManager builds a Manager that dispatches due timeouts to handler.
func NewManager(handler Handler) *Manager {
	return &Manager{
		due:     queue.New(),
		handler: handler,
		now:     defaultNowUs,
	}
}

// defaultNowUs returns the current wall-clock time as a 28-bit microsecond
// timestamp. util_timeout_time_us used rdtsc/tsc_per_us calibration for a
// cycle-accurate fast-path clock; this library-side scheduler uses the
// wall clock (Unix microseconds) instead.
func defaultNowUs() uint32 {
	return uint32(time.Now().UnixMicro()) & timeoutMask
}

// NowUs returns the manager's current timestamp source.
func (m *Manager) NowUs() uint32 { return m.now() }

// Arm schedules to to fire after us microseconds with the given type tag,
// using the manager's current timestamp. us must be < 2^27 (~134s).
func (m *Manager) Arm(to *Timeout, us uint32, typ uint8) {
	m.ArmAt(to, us, typ, m.now())
}

// ArmAt is Arm with an explicit current timestamp, exposed for deterministic
// tests (matches util_timeout_arm_ts).
func (m *Manager) ArmAt(to *Timeout, us uint32, typ uint8, curTS uint32) {
	if us >= maxRelUs {
		panic(fmt.Sprintf("timerwheel: arm interval %d out of range (must be < %d)", us, maxRelUs))
	}
	curTS &= timeoutMask

	m.moveDueTimeouts(curTS)

	// Find predecessor/successor by walking backward from the tail while
	// the candidate's relative deadline exceeds us (monotone insertion).
	var tp *Timeout
	for tp = m.pendingLast; tp != nil && relTime(curTS, tp.deadline) > int32(us); tp = tp.prev {
	}
	var tn *Timeout
	if tp != nil {
		tn = tp.next
	} else {
		tn = m.pendingFirst
	}

	to.typ = typ
	to.deadline = (curTS + us) & timeoutMask
	to.pending = true
	to.inDue = false
	to.next = tn
	to.prev = tp
	if tp == nil {
		m.pendingFirst = to
	} else {
		tp.next = to
	}
	if tn == nil {
		m.pendingLast = to
	} else {
		tn.prev = to
	}
}

// Disarm cancels to. It is a no-op if to is not currently armed (already
// fired, or never armed) — mirroring the idempotent-close style used
// elsewhere in this port rather than the original's abort()-on-corruption,
// since a Go timer record can only ever be in one manager's lists by
// construction (no shared-memory corruption is possible here).
func (m *Manager) Disarm(to *Timeout) {
	if to.pending {
		m.unlinkPending(to)
		to.pending = false
		return
	}
	if to.inDue {
		m.removeFromDue(to)
		to.inDue = false
	}
}

func (m *Manager) unlinkPending(to *Timeout) {
	prev, next := to.prev, to.next
	if prev == nil {
		m.pendingFirst = next
	} else {
		prev.next = next
	}
	if next == nil {
		m.pendingLast = prev
	} else {
		next.prev = prev
	}
	to.next, to.prev = nil, nil
}

// removeFromDue drops to from the due queue. eapache/queue only exposes
// FIFO Remove() (pop-front), not removal by arbitrary position, so a
// targeted disarm rebuilds the queue minus the one entry. The due queue is
// bounded (timeouts move there shortly before Poll dispatches them) so this
// is cheap in practice.
func (m *Manager) removeFromDue(to *Timeout) {
	n := m.due.Length()
	for i := 0; i < n; i++ {
		item := m.due.Remove()
		if item != to {
			m.due.Add(item)
		}
	}
}

// Poll advances the wheel to the current time, moving due pending entries
// into the due queue, then dispatches up to MaxTimeoutsPerPoll of them.
func (m *Manager) Poll() { m.PollAt(m.now()) }

// PollAt is Poll with an explicit timestamp, for deterministic tests.
func (m *Manager) PollAt(curTS uint32) {
	curTS &= timeoutMask
	m.moveDueTimeouts(curTS)

	n := 0
	for n < MaxTimeoutsPerPoll && m.due.Length() > 0 {
		to := m.due.Remove().(*Timeout)
		to.inDue = false
		m.handler(to, to.typ)
		n++
	}
}

// Next returns the number of microseconds until the next timeout is due (0
// if one is already due or sitting in the due queue), or false if nothing
// is armed.
func (m *Manager) Next(curTS uint32) (us uint32, ok bool) {
	if m.due.Length() > 0 {
		return 0, true
	}
	if m.pendingFirst == nil {
		return 0, false
	}
	curTS &= timeoutMask
	rel := relTime(curTS, m.pendingFirst.deadline)
	if rel < 0 {
		return 0, true
	}
	return uint32(rel), true
}

func (m *Manager) moveDueTimeouts(curTS uint32) {
	for m.pendingFirst != nil && timeoutDue(m.pendingFirst.deadline, curTS) {
		to := m.pendingFirst
		m.pendingFirst = to.next
		if m.pendingFirst != nil {
			m.pendingFirst.prev = nil
		} else {
			m.pendingLast = nil
		}
		to.next, to.prev = nil, nil
		to.pending = false
		to.inDue = true
		m.due.Add(to)
	}
}

func timeoutDue(deadline, curTS uint32) bool {
	return relTime(curTS, deadline) <= 0
}

// relTime ports rel_time's three-case sign-aware wraparound comparison
// unchanged: it returns how many microseconds remain until deadline as seen
// from curTS, treating the 28-bit space as split at curTS+2^27.
func relTime(curTS, deadline uint32) int32 {
	const middle = uint32(1) << (TimeoutBits - 1)

	if curTS < middle {
		start := (curTS - middle) & timeoutMask
		end := uint32(1) << TimeoutBits
		if start <= deadline && deadline < end {
			return int32(deadline) - int32(start) - int32(middle)
		}
		return int32(deadline) - int32(curTS)
	} else if curTS == middle {
		return int32(deadline) - int32(curTS)
	}

	end := ((curTS + middle) & timeoutMask) + 1
	if deadline < end {
		return int32(deadline) + int32((uint32(1)<<TimeoutBits)-curTS)
	}
	return int32(deadline) - int32(curTS)
}
