package kernel

import (
	"github.com/tinyrange/kernelcore/internal/ksync"
	"github.com/tinyrange/kernelcore/internal/task"
)

// DeadlockCode is the syscall return value for a refused lock/down
// operation: -0xdead.
const DeadlockCode = -0xdead

// LockOutcome is the result of attempting to acquire a mutex or
// semaphore. Granted means the resource was acquired immediately and the
// syscall may return 0 right away. Blocked means the calling thread has
// already been moved to Blocked and queued inside the primitive; the
// trap dispatcher (an external collaborator) must run the
// scheduler's block_current_and_run_next and, once this thread is picked
// again, call the matching CompleteX method before returning 0 to user
// space. Refused means the banker found the request unsafe; the syscall
// returns DeadlockCode and no blocking ever happened.
type LockOutcome int

const (
	Granted LockOutcome = iota
	Blocked
	Refused
)

// CreateMutex allocates a mutex (blocking picks BlockingMutex over
// SpinMutex), reusing a freed slot if one exists, and registers it with
// the mutex banker under tid — ModifyLock for a recycled slot, AddLock
// for a brand-new one, exactly as the reference create syscall does.
func (p *Process) CreateMutex(tid int, blocking bool) int {
	return ksync.With(p.state, func(s *processState) int {
		var m ksync.Mutex
		if blocking {
			m = ksync.NewBlockingMutex()
		} else {
			m = ksync.NewSpinMutex()
		}

		for id, slot := range s.mutexes {
			if slot == nil {
				s.mutexes[id] = m
				s.mutexBanker.ModifyLock(tid, id, 1)
				return id
			}
		}
		s.mutexes = append(s.mutexes, m)
		s.mutexBanker.AddLock(tid, 1)
		return len(s.mutexes) - 1
	})
}

// TryMutexLock runs the deadlock check (if enabled) and then attempts the
// lock. See LockOutcome for how the caller must react to each result.
func (p *Process) TryMutexLock(tid, mutexID int) LockOutcome {
	return ksync.With(p.state, func(s *processState) LockOutcome {
		if s.deadlockDetect && s.mutexBanker.IsDeadlock(tid, mutexID) {
			s.mutexBanker.ClearNeed(tid)
			return Refused
		}
		if s.mutexes[mutexID].Lock(s.threads[tid]) {
			s.mutexBanker.Lock(tid, mutexID)
			return Granted
		}
		return Blocked
	})
}

// CompleteMutexLock finishes the bookkeeping for a lock that returned
// Blocked, once the trap dispatcher has rescheduled this thread after its
// wakeup. It must be called exactly once per Blocked outcome.
func (p *Process) CompleteMutexLock(tid, mutexID int) {
	ksync.With(p.state, func(s *processState) struct{} {
		s.mutexBanker.Lock(tid, mutexID)
		return struct{}{}
	})
}

// MutexUnlock releases mutexID. It always updates the banker (ownership
// moves back to available) and returns the task that ownership was
// transferred to, if any waiter was queued, so the caller can move it to
// Ready in the scheduler.
func (p *Process) MutexUnlock(tid, mutexID int) (woken *task.TCB) {
	return ksync.With(p.state, func(s *processState) *task.TCB {
		next := s.mutexes[mutexID].Unlock()
		s.mutexBanker.Unlock(tid, mutexID)
		return next
	})
}

// CreateSemaphore allocates a counting semaphore initialized to resCount,
// with the same recycled-slot rule as CreateMutex.
func (p *Process) CreateSemaphore(tid, resCount int) int {
	return ksync.With(p.state, func(s *processState) int {
		sem := ksync.NewSemaphore(resCount)
		for id, slot := range s.semaphores {
			if slot == nil {
				s.semaphores[id] = sem
				s.semaphoreBanker.ModifyLock(tid, id, resCount)
				return id
			}
		}
		s.semaphores = append(s.semaphores, sem)
		s.semaphoreBanker.AddLock(tid, resCount)
		return len(s.semaphores) - 1
	})
}

// SemaphoreUp increments semID and, if that wakes a waiter, returns it.
func (p *Process) SemaphoreUp(tid, semID int) (woken *task.TCB) {
	return ksync.With(p.state, func(s *processState) *task.TCB {
		woken := s.semaphores[semID].Up()
		s.semaphoreBanker.Unlock(tid, semID)
		return woken
	})
}

// TrySemaphoreDown mirrors TryMutexLock for the counting semaphore.
func (p *Process) TrySemaphoreDown(tid, semID int) LockOutcome {
	return ksync.With(p.state, func(s *processState) LockOutcome {
		if s.deadlockDetect && s.semaphoreBanker.IsDeadlock(tid, semID) {
			s.semaphoreBanker.ClearNeed(tid)
			return Refused
		}
		if s.semaphores[semID].Down(s.threads[tid]) {
			s.semaphoreBanker.Lock(tid, semID)
			return Granted
		}
		return Blocked
	})
}

// CompleteSemaphoreDown mirrors CompleteMutexLock.
func (p *Process) CompleteSemaphoreDown(tid, semID int) {
	ksync.With(p.state, func(s *processState) struct{} {
		s.semaphoreBanker.Lock(tid, semID)
		return struct{}{}
	})
}

// CreateCondvar allocates a condition variable, with the same
// recycled-slot rule as the other primitives. Condvars are not tracked by
// either banker: they carry no held resource, only a wait queue.
func (p *Process) CreateCondvar() int {
	return ksync.With(p.state, func(s *processState) int {
		cv := ksync.NewCondvar()
		for id, slot := range s.condvars {
			if slot == nil {
				s.condvars[id] = cv
				return id
			}
		}
		s.condvars = append(s.condvars, cv)
		return len(s.condvars) - 1
	})
}

// CondvarSignal wakes the longest-waiting thread on cvID, if any.
func (p *Process) CondvarSignal(cvID int) (woken *task.TCB) {
	return ksync.With(p.state, func(s *processState) *task.TCB {
		return s.condvars[cvID].Signal()
	})
}

// CondvarWait releases mutexID (transferring ownership directly to a
// queued waiter if one exists, exactly like MutexUnlock) and then
// enqueues the calling thread on cvID's wait queue. The caller must run
// the scheduler's block_current_and_run_next next; once this thread is
// rescheduled after a signal, the trap dispatcher must re-acquire
// mutexID on its behalf via TryMutexLock/CompleteMutexLock before
// returning control to user space, since Signal never transfers mutex
// ownership on its own.
func (p *Process) CondvarWait(tid, cvID, mutexID int) (wokenByUnlock *task.TCB) {
	return ksync.With(p.state, func(s *processState) *task.TCB {
		wokenByUnlock := s.mutexes[mutexID].Unlock()
		s.mutexBanker.Unlock(tid, mutexID)
		s.condvars[cvID].Wait(s.threads[tid])
		return wokenByUnlock
	})
}
