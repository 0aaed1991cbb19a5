// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CPU/NUMA thread pinning for the per-core fast-path poll loop
// (client.RunPollLoop): one OS thread per core, pinned and never
// handed work by a scheduler, so no generic executor/event-loop/work-queue
// abstraction belongs in this package — see DESIGN.md for what this
// package used to also contain and why it was trimmed.
package concurrency
