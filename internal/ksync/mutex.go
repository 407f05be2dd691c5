package ksync

import (
	"runtime"
	"sync/atomic"

	gsync "gvisor.dev/gvisor/pkg/sync"

	"github.com/tinyrange/kernelcore/internal/task"
)

// Mutex is the common interface both mutex flavors implement, matching
// the reference kernel's single `dyn Mutex` trait object: mutex_create
// picks an implementation at creation time and every other syscall deals
// only in this interface. Lock reports whether current acquired the
// mutex immediately; if not, current has already been moved to Blocked
// and the caller must invoke the kernel's block_current_and_run_next.
// Unlock returns the waiter ownership transferred to (now Ready), or nil
// if the mutex was simply marked free.
type Mutex interface {
	Lock(current *task.TCB) bool
	Unlock() *task.TCB
}

// SpinMutex is a boolean lock acquired by busy-waiting. The reference
// kernel disables interrupts while spinning; on a host OS there is no
// such primitive, so Lock instead yields the underlying goroutine's
// scheduling slot between attempts. A spin mutex never blocks a task's
// Status — Lock either returns immediately or spins the calling thread
// right there — so it takes a current argument only to satisfy Mutex.
type SpinMutex struct {
	locked atomic.Bool
}

// NewSpinMutex creates an unlocked spin mutex.
func NewSpinMutex() *SpinMutex { return &SpinMutex{} }

// Lock spins until the mutex is acquired, then always reports true.
func (m *SpinMutex) Lock(current *task.TCB) bool {
	for !m.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
	return true
}

// Unlock releases the mutex. A spin mutex has no waiter to hand
// ownership to, so Unlock always returns nil.
func (m *SpinMutex) Unlock() *task.TCB {
	m.locked.Store(false)
	return nil
}

// BlockingMutex is a FIFO-fair mutex: a thread that cannot acquire it is
// queued and blocked rather than spinning, and on unlock ownership
// transfers directly to the head of the queue without ever marking the
// mutex free in between.
type BlockingMutex struct {
	mu      gsync.Mutex
	locked  bool
	waiters []*task.TCB
}

// NewBlockingMutex creates an unlocked blocking mutex.
func NewBlockingMutex() *BlockingMutex { return &BlockingMutex{} }

// Lock attempts to acquire the mutex on behalf of current. If it is free,
// it is acquired immediately and Lock reports true. Otherwise current is
// moved to Blocked and queued, and Lock reports false: the caller must
// then invoke the kernel's block_current_and_run_next, since this
// package never performs the actual context switch.
func (m *BlockingMutex) Lock(current *task.TCB) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.locked {
		m.locked = true
		return true
	}
	current.Status = task.Blocked
	m.waiters = append(m.waiters, current)
	return false
}

// Unlock releases the mutex. If a waiter is queued, ownership transfers
// directly to it — locked stays true — and that task (now Ready) is
// returned so the caller can enqueue it in the scheduler. If no one is
// waiting, the mutex is marked free and Unlock returns nil.
func (m *BlockingMutex) Unlock() *task.TCB {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.waiters) == 0 {
		m.locked = false
		return nil
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	next.Status = task.Ready
	return next
}
