// Package ksync implements the kernel's user-facing synchronization
// primitives (spin mutex, blocking mutex, counting semaphore, condition
// variable) plus the exclusive-access cell kernel-internal singletons use
// to guard their own state. The primitives only manage task status and
// waiter queues; actually suspending a thread (the context switch into
// the next Ready task) is the kernel run loop's job, not this package's —
// each blocking operation here reports whether the caller must now invoke
// that run loop, mirroring block_current_and_run_next in the reference
// kernel.
package ksync

import gsync "gvisor.dev/gvisor/pkg/sync"

// Cell provides exclusive access to a piece of kernel-internal state,
// mirroring the UPSafeCell pattern the reference kernel uses for its
// global singletons. gvisor's sync package is a race-detector-instrumented
// drop-in for the standard library's, which is what the rest of the
// kernel-hypervisor code in this lineage reaches for over a bare
// sync.Mutex.
type Cell[T any] struct {
	mu    gsync.Mutex
	value T
}

// NewCell wraps value for exclusive access.
func NewCell[T any](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

// With calls fn with exclusive access to the cell's value and returns
// whatever fn returns.
func With[T, R any](c *Cell[T], fn func(*T) R) R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(&c.value)
}
