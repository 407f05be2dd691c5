package ksync

import (
	gsync "gvisor.dev/gvisor/pkg/sync"

	"github.com/tinyrange/kernelcore/internal/task"
)

// Semaphore is a counting semaphore with FIFO-fair waiters. count may go
// negative: its magnitude then counts the number of blocked waiters, the
// same convention the reference kernel uses.
type Semaphore struct {
	mu      gsync.Mutex
	count   int
	waiters []*task.TCB
}

// NewSemaphore creates a semaphore initialized to the given count.
func NewSemaphore(initial int) *Semaphore {
	return &Semaphore{count: initial}
}

// Up increments the count. If the result is still non-positive, a waiter
// is queued and is woken (moved Blocked -> Ready); Up returns that task so
// the caller can enqueue it in the scheduler, or nil if no one needed
// waking.
func (s *Semaphore) Up() *task.TCB {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count <= 0 {
		next := s.waiters[0]
		s.waiters = s.waiters[1:]
		next.Status = task.Ready
		return next
	}
	return nil
}

// Down decrements the count on behalf of current. If the result is
// negative, current is moved to Blocked and queued, and Down reports
// false: the caller must invoke block_current_and_run_next. Otherwise
// Down reports true and current may proceed immediately.
func (s *Semaphore) Down(current *task.TCB) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count--
	if s.count < 0 {
		current.Status = task.Blocked
		s.waiters = append(s.waiters, current)
		return false
	}
	return true
}
