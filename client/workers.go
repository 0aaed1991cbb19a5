package client

import (
	"github.com/tcp-acceleration-service/tas-sub001/api"
	"github.com/tcp-acceleration-service/tas-sub001/internal/concurrency"
	"github.com/tcp-acceleration-service/tas-sub001/internal/notify"
)

// PollLoopConfig configures RunPollLoop: which OS thread/NUMA node to pin
// to, how many events to drain per iteration, and what to do with them.
type PollLoopConfig struct {
	CPUID     int // logical CPU to pin this goroutine's OS thread to
	NUMANode  int // NUMA node to pin to; -1 to skip NUMA pinning
	BatchSize int // events buffer size per Poll call
	Handle    func([]api.Event)
}

// RunPollLoop drives one context's Poll/block cycle on the calling
// goroutine until stop is closed, pinning the OS thread to the
// configured CPU/NUMA node first (spec.md §4.2: each fast-path core gets
// its own polling thread). Busy-polls while events keep arriving; once an
// iteration comes back empty, defers to the notify discipline's
// grace-period state machine (spec §4.6) and blocks on the wake eventfd
// rather than spinning.
//
// Grounded on the teacher's internal/concurrency.PinCurrentThread (NUMA +
// CPU affinity) and EventLoop's busy/idle iteration shape, adapted here to
// drive internal/dispatcher.Poll instead of a generic handler ring.
func (c *Context) RunPollLoop(cfg PollLoopConfig, stop <-chan struct{}) error {
	concurrency.PinCurrentThread(cfg.NUMANode, cfg.CPUID)

	blocker, err := notify.NewBlocker(c.raw.WakeFD)
	if err != nil {
		return err
	}
	defer blocker.Close()

	batch := cfg.BatchSize
	if batch == 0 {
		batch = 32
	}
	events := make([]api.Event, batch)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		n, shouldBlock := c.Poll(events)
		if n > 0 {
			if cfg.Handle != nil {
				cfg.Handle(events[:n])
			}
			continue
		}

		if shouldBlock {
			if err := blocker.Block(-1); err != nil {
				return err
			}
		}
	}
}
