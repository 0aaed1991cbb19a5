//go:build !windows && !linux
// +build !windows,!linux

// internal/concurrency/pin.go
// Author: momentics <momentics@gmail.com>
//
// Fallback CPU/NUMA pinning stub for platforms with neither a Windows nor
// a Linux pin_*.go implementation. Linux is covered by pin_linux.go
// (cgo) / pin_linux_nocgo.go (no cgo); this file must stay excluded from
// linux builds or both would declare PinCurrentThread.

package concurrency

// PinCurrentThread pins the current OS thread to a given NUMA node and CPU core.
// This function is implemented per platform (Linux/Windows). On unsupported systems it is a no-op.
func PinCurrentThread(numaNode int, cpuID int) {}
