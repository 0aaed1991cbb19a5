package timerwheel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArmAndPollDispatchesInOrder(t *testing.T) {
	var fired []uint8
	m := NewManager(func(to *Timeout, typ uint8) {
		fired = append(fired, typ)
	})

	a := &Timeout{}
	b := &Timeout{}
	c := &Timeout{}

	m.ArmAt(a, 100, 1, 0)
	m.ArmAt(b, 50, 2, 0)
	m.ArmAt(c, 200, 3, 0)

	m.PollAt(60)
	require.Equal(t, []uint8{2}, fired, "only b's 50us deadline has elapsed by ts=60")

	m.PollAt(150)
	require.Equal(t, []uint8{2, 1}, fired)

	m.PollAt(300)
	require.Equal(t, []uint8{2, 1, 3}, fired)
}

func TestDisarmPreventsFiring(t *testing.T) {
	fired := 0
	m := NewManager(func(to *Timeout, typ uint8) { fired++ })

	a := &Timeout{}
	m.ArmAt(a, 10, 1, 0)
	m.Disarm(a)

	m.PollAt(1000)
	require.Equal(t, 0, fired)
}

func TestDisarmAfterMovedToDueQueue(t *testing.T) {
	fired := 0
	m := NewManager(func(to *Timeout, typ uint8) { fired++ })

	a := &Timeout{}
	b := &Timeout{}
	m.ArmAt(a, 10, 1, 0)
	m.ArmAt(b, 10, 2, 0)

	// Move both into the due queue without dispatching (simulate a poll that
	// only migrates, via moveDueTimeouts through PollAt on an empty handler
	// set would dispatch immediately, so instead disarm between arm and poll
	// by manually forcing the move).
	m.moveDueTimeouts(20)
	require.True(t, a.inDue)

	m.Disarm(a)
	m.PollAt(20)
	require.Equal(t, 1, fired, "only b should fire once a is disarmed from the due queue")
}

func TestMaxTimeoutsPerPollCap(t *testing.T) {
	fired := 0
	m := NewManager(func(to *Timeout, typ uint8) { fired++ })

	timeouts := make([]*Timeout, MaxTimeoutsPerPoll+10)
	for i := range timeouts {
		timeouts[i] = &Timeout{}
		m.ArmAt(timeouts[i], 5, 1, 0)
	}

	m.PollAt(100)
	require.Equal(t, MaxTimeoutsPerPoll, fired, "poll must cap dispatch at MaxTimeoutsPerPoll")

	m.PollAt(100)
	require.Equal(t, MaxTimeoutsPerPoll+10, fired, "remainder dispatches on the next poll")
}

func TestRelTimeSignAwareWraparound(t *testing.T) {
	// A deadline just ahead of cur, no wraparound involved.
	require.Equal(t, int32(10), relTime(90, 100))
	// A deadline that has just wrapped past the 28-bit boundary.
	const max28 = uint32(1) << TimeoutBits
	require.Equal(t, int32(10), relTime(max28-5, 5))
}

func TestNextReportsZeroWhenDueQueueNonEmpty(t *testing.T) {
	m := NewManager(func(to *Timeout, typ uint8) {})
	a := &Timeout{}
	m.ArmAt(a, 10, 1, 0)

	us, ok := m.Next(0)
	require.True(t, ok)
	require.Equal(t, uint32(10), us)

	m.moveDueTimeouts(20)
	us, ok = m.Next(20)
	require.True(t, ok)
	require.Equal(t, uint32(0), us)
}

func TestArmOutOfRangePanics(t *testing.T) {
	m := NewManager(func(to *Timeout, typ uint8) {})
	a := &Timeout{}
	require.Panics(t, func() {
		m.ArmAt(a, maxRelUs, 1, 0)
	})
}
