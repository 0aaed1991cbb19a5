package client

import "github.com/tcp-acceleration-service/tas-sub001/control"

// WithConfigStore attaches a live-reloadable configuration store to c:
// setting the "poll_cycle_us" key updates the notify discipline's
// poll_cycle on the fly (spec.md §4.6), without tearing down and
// recreating the Context. Returns the store so the caller can also use
// it for any other runtime knobs it wants to expose.
//
// Grounded on the teacher's control.ConfigStore hot-reload mechanism,
// wired here to the one Context-level value that actually needs to
// change at runtime.
func (c *Context) WithConfigStore() *control.ConfigStore {
	store := control.NewConfigStore()
	store.OnReload(func() {
		snap := store.GetSnapshot()
		v, ok := snap["poll_cycle_us"]
		if !ok {
			return
		}
		us, ok := v.(uint64)
		if !ok {
			return
		}
		c.kick.SetPollCycle(us)
		c.block.SetPollCycle(us)
	})
	return store
}

// WithMetricsRegistry attaches a freeform control.MetricsRegistry that
// receives one scalar snapshot per Poll call (last_poll_events, trace_id),
// for ad hoc introspection endpoints that want raw values rather than
// control.PrometheusMetrics's typed counters/gauges.
func (c *Context) WithMetricsRegistry(reg *control.MetricsRegistry) {
	c.registry = reg
}

// RegisterDebugProbes wires a control.DebugProbes registry with read-only
// views of this Context's live state: per-queue txq_avail, flow table
// occupancy, and listener table occupancy. Intended for an operator-facing
// debug endpoint, not the data path itself.
func (c *Context) RegisterDebugProbes(probes *control.DebugProbes) {
	probes.RegisterProbe("flows_in_use", func() any {
		return c.raw.Flows.Cap() - c.raw.Flows.Avail()
	})
	probes.RegisterProbe("flows_capacity", func() any {
		return c.raw.Flows.Cap()
	})
	probes.RegisterProbe("listeners_capacity", func() any {
		return c.raw.Listeners.Cap()
	})
	probes.RegisterProbe("txq_avail", func() any {
		avail := make([]uint32, len(c.raw.Queues))
		for i, q := range c.raw.Queues {
			avail[i] = q.TxqAvail
		}
		return avail
	})
}
