package notify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeClock(t *uint64) Clock {
	return func() uint64 { return *t }
}

func TestKickLimiterRateLimitsToOncePerPollCycle(t *testing.T) {
	var now uint64 = 1000
	k := NewKickLimiter(100, fakeClock(&now))

	require.True(t, k.ShouldKick(), "first kick must always fire")

	now += 50
	require.False(t, k.ShouldKick(), "within poll_cycle of the last kick, must not kick again")

	now += 60
	require.True(t, k.ShouldKick(), "past poll_cycle since the last kick, must kick")
}

func TestKickLimiterSetPollCycleTakesEffectImmediately(t *testing.T) {
	var now uint64 = 0
	k := NewKickLimiter(1000, fakeClock(&now))
	require.True(t, k.ShouldKick())

	now += 10
	require.False(t, k.ShouldKick(), "still within the original poll_cycle")

	k.SetPollCycle(5)
	require.True(t, k.ShouldKick(), "shortened poll_cycle must apply without rebuilding the limiter")
}

func TestBlockStateHadDataNeverBlocks(t *testing.T) {
	var now uint64 = 0
	b := NewBlockState(100, fakeClock(&now))
	require.False(t, b.Poll(true))
	require.False(t, b.Poll(true))
}

func TestBlockStateRequiresGracePeriodBeforeBlocking(t *testing.T) {
	var now uint64 = 0
	b := NewBlockState(100, fakeClock(&now))

	require.False(t, b.Poll(true)) // establishes last_active_ts = 0

	require.False(t, b.Poll(false), "first idle iteration only arms can_block")

	now = 50 // within poll_cycle of last_active_ts
	require.False(t, b.Poll(false), "must not block before the grace period elapses")

	now = 150 // past poll_cycle
	require.False(t, b.Poll(false), "crossing the grace period sets second_bar but forces one more poll first")

	require.True(t, b.Poll(false), "second_bar must resolve to block on the next idle iteration")
}

func TestBlockStateDataDuringGracePeriodResetsEverything(t *testing.T) {
	var now uint64 = 0
	b := NewBlockState(100, fakeClock(&now))
	require.False(t, b.Poll(true))
	now = 200
	require.False(t, b.Poll(false))
	require.False(t, b.Poll(false)) // sets second_bar

	now = 300
	require.False(t, b.Poll(true), "data must reset second_bar, not block")
	require.False(t, b.Poll(false), "state starts over: needs a fresh grace period")
}
