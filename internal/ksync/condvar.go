package ksync

import (
	gsync "gvisor.dev/gvisor/pkg/sync"

	"github.com/tinyrange/kernelcore/internal/task"
)

// Condvar is a condition variable with FIFO-fair waiters. It does not
// hold or know about an associated mutex: per spec, releasing the mutex
// before blocking and re-acquiring it after waking are the caller's
// responsibility (the mutex and the condvar are distinct objects the
// syscall layer sequences together), since signal transfers no mutex
// ownership at all — the woken thread must still contend for the mutex
// like any other locker.
type Condvar struct {
	mu      gsync.Mutex
	waiters []*task.TCB
}

// NewCondvar creates a condition variable with no waiters.
func NewCondvar() *Condvar { return &Condvar{} }

// Wait enqueues current and moves it to Blocked. The caller must release
// the associated mutex before calling Wait (so no wakeup can be missed
// between enqueue and the caller's own block_current_and_run_next) and
// re-acquire it after the thread is woken.
func (c *Condvar) Wait(current *task.TCB) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current.Status = task.Blocked
	c.waiters = append(c.waiters, current)
}

// Signal wakes the longest-waiting thread (Blocked -> Ready) and returns
// it so the caller can enqueue it in the scheduler, or nil if no thread
// is waiting.
func (c *Condvar) Signal() *task.TCB {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.waiters) == 0 {
		return nil
	}
	next := c.waiters[0]
	c.waiters = c.waiters[1:]
	next.Status = task.Ready
	return next
}
