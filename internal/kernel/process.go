// Package kernel wires the virtual-memory, scheduling, and
// synchronization subsystems into a single running core: one Process per
// address space, a thread table with recycled-slot allocation, and a run
// loop that performs the suspend/resume/exit/block transitions the task
// lifecycle names. The actual register-level context switch
// (task.SwitchFunc) and trap dispatch are external collaborators left to
// the caller; this package declares the Clock and Timer collaborator
// interfaces and performs only the status and queue transitions.
package kernel

import (
	"time"

	"github.com/tinyrange/kernelcore/internal/banker"
	"github.com/tinyrange/kernelcore/internal/ksync"
	"github.com/tinyrange/kernelcore/internal/mm"
	"github.com/tinyrange/kernelcore/internal/task"
)

// processState is everything a process's sync syscalls touch besides the
// address space: the thread table, the mutex/semaphore/condvar slot lists
// (with recycled-id allocation, matching the reference kernel's
// find-first-free-slot-else-push rule), and one banker per resource
// class. It lives behind a single exclusive-access cell — every method in
// sync_ops.go takes the guard, mutates, and releases it before returning,
// so table reads/writes and the banker's safety check always happen as
// one atomic step instead of racing a concurrent syscall on another hart.
type processState struct {
	threads []*task.TCB // index = tid; nil = free slot

	mutexes    []ksync.Mutex
	semaphores []*ksync.Semaphore
	condvars   []*ksync.Condvar

	mutexBanker     *banker.Banker
	semaphoreBanker *banker.Banker
	deadlockDetect  bool
}

// Process owns one address space plus the guarded resource tables every
// thread in it shares.
type Process struct {
	AddressSpace *mm.AddressSpace

	state *ksync.Cell[processState]
}

// NewProcess creates a process owning as, with empty resource tables.
func NewProcess(as *mm.AddressSpace) *Process {
	return &Process{
		AddressSpace: as,
		state: ksync.NewCell(processState{
			mutexBanker:     banker.New(),
			semaphoreBanker: banker.New(),
		}),
	}
}

// SpawnThread allocates a tid (reusing a freed slot if one exists),
// registers it with both bankers, and returns the new TCB already moved
// to Ready — a loader never hands back a thread for the caller to enqueue
// half-built, it hands back one ready to run.
func (p *Process) SpawnThread() *task.TCB {
	return ksync.With(p.state, func(s *processState) *task.TCB {
		tid := -1
		for i, t := range s.threads {
			if t == nil {
				tid = i
				break
			}
		}
		if tid == -1 {
			tid = len(s.threads)
			s.threads = append(s.threads, nil)
		}

		t := task.New(tid, p.AddressSpace)
		t.Status = task.Ready
		t.ReadyEnqueuedAt = time.Now()
		s.threads[tid] = t
		s.mutexBanker.AddThread(tid)
		s.semaphoreBanker.AddThread(tid)
		return t
	})
}

// RetireThread frees tid's slot once its TCB reaches Exited, allowing a
// future SpawnThread to reuse it.
func (p *Process) RetireThread(tid int) {
	ksync.With(p.state, func(s *processState) struct{} {
		s.threads[tid] = nil
		return struct{}{}
	})
}

// EnableDeadlockDetect validates and applies the enable_deadlock_detect
// syscall argument; it accepts only 0 or 1.
func (p *Process) EnableDeadlockDetect(enabled int) int {
	if enabled != 0 && enabled != 1 {
		return -1
	}
	ksync.With(p.state, func(s *processState) struct{} {
		s.deadlockDetect = enabled == 1
		return struct{}{}
	})
	return 0
}
