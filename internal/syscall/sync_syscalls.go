package syscall

import "github.com/tinyrange/kernelcore/internal/kernel"

// MutexCreate implements mutex_create: blocking selects the blocking
// mutex implementation over the spin mutex.
func (d *Dispatcher) MutexCreate(blocking bool) int {
	return d.Kernel.Process.CreateMutex(d.current().ID, blocking)
}

// MutexLock implements mutex_lock. It returns Deadlock if the banker
// refuses the request. Otherwise it returns 0; if the outcome was Blocked,
// this method runs BlockCurrentAndRunNext itself, and the caller must,
// once this thread is rescheduled, call CompleteMutexLock before resuming
// user-mode execution.
func (d *Dispatcher) MutexLock(mutexID int) int {
	tid := d.current().ID
	switch d.Kernel.Process.TryMutexLock(tid, mutexID) {
	case kernel.Refused:
		return Deadlock
	case kernel.Blocked:
		d.Kernel.BlockCurrentAndRunNext()
		return 0
	default:
		return 0
	}
}

// CompleteMutexLock finishes the bookkeeping for a MutexLock call that
// blocked, once the trap dispatcher has rescheduled this thread after its
// wakeup.
func (d *Dispatcher) CompleteMutexLock(tid, mutexID int) {
	d.Kernel.Process.CompleteMutexLock(tid, mutexID)
}

// MutexUnlock implements mutex_unlock: release and, if ownership
// transferred to a waiter, wake it into the scheduler.
func (d *Dispatcher) MutexUnlock(mutexID int) int {
	tid := d.current().ID
	woken := d.Kernel.Process.MutexUnlock(tid, mutexID)
	d.Kernel.Wake(woken)
	return 0
}

// SemaphoreCreate implements semaphore_create.
func (d *Dispatcher) SemaphoreCreate(resCount int) int {
	return d.Kernel.Process.CreateSemaphore(d.current().ID, resCount)
}

// SemaphoreUp implements semaphore_up: increment and, if that wakes a
// waiter, enqueue it.
func (d *Dispatcher) SemaphoreUp(semID int) int {
	tid := d.current().ID
	woken := d.Kernel.Process.SemaphoreUp(tid, semID)
	d.Kernel.Wake(woken)
	return 0
}

// SemaphoreDown implements semaphore_down, mirroring MutexLock's
// Deadlock/Blocked handling.
func (d *Dispatcher) SemaphoreDown(semID int) int {
	tid := d.current().ID
	switch d.Kernel.Process.TrySemaphoreDown(tid, semID) {
	case kernel.Refused:
		return Deadlock
	case kernel.Blocked:
		d.Kernel.BlockCurrentAndRunNext()
		return 0
	default:
		return 0
	}
}

// CompleteSemaphoreDown mirrors CompleteMutexLock.
func (d *Dispatcher) CompleteSemaphoreDown(tid, semID int) {
	d.Kernel.Process.CompleteSemaphoreDown(tid, semID)
}

// CondvarCreate implements condvar_create.
func (d *Dispatcher) CondvarCreate() int {
	return d.Kernel.Process.CreateCondvar()
}

// CondvarSignal implements condvar_signal: wake the longest-waiting
// thread, if any.
func (d *Dispatcher) CondvarSignal(cvID int) int {
	woken := d.Kernel.Process.CondvarSignal(cvID)
	d.Kernel.Wake(woken)
	return 0
}

// CondvarWait implements condvar_wait: release mutexID (waking a waiter
// transferred ownership to, if any), enqueue the current thread on cvID,
// and block it. Signal never transfers mutex ownership, so once
// this thread wakes the trap dispatcher must re-acquire mutexID on its
// behalf via MutexLock/CompleteMutexLock before returning to user space.
func (d *Dispatcher) CondvarWait(cvID, mutexID int) int {
	tid := d.current().ID
	woken := d.Kernel.Process.CondvarWait(tid, cvID, mutexID)
	d.Kernel.Wake(woken)
	d.Kernel.BlockCurrentAndRunNext()
	return 0
}
