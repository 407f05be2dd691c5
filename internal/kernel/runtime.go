package kernel

import (
	"time"

	"github.com/tinyrange/kernelcore/internal/ksync"
	"github.com/tinyrange/kernelcore/internal/sched"
	"github.com/tinyrange/kernelcore/internal/task"
)

// Clock is the time source the get_time syscall reports. The run loop
// does not consult it: RunFirstTask stamps StartTime from the host clock
// directly, and no user_time/kernel_time bookkeeping is done here.
type Clock interface {
	NowUS() int64
}

// SystemClock is the Clock backed by the host's wall clock, used by
// every boot configuration outside of tests.
type SystemClock struct{}

// NowUS returns the current time in microseconds since an arbitrary but
// fixed epoch.
func (SystemClock) NowUS() int64 { return time.Now().UnixMicro() }

// Timer is the add_timer(expire_ms, tcb) collaborator: it arranges
// for a sleeping thread to be woken once expire_ms has elapsed, without
// this package needing to know how the wakeup is actually delivered
// (a real timer interrupt, or — in a test harness — an immediate call).
type Timer interface {
	AddTimer(expireMS int64, t *task.TCB)
}

// Kernel is the running core: one ready-queue discipline and the single
// Process this uniprocessor build supports concurrently running threads
// of. Multi-process support (fork/exec, process trees) is out of scope.
// The ready queue lives behind an exclusive-access cell, the same way
// Process guards its sync tables and bankers: every Add/Fetch takes the
// guard, mutates, and releases it before returning, so a borrow is never
// held across a call that might itself try to touch the ready queue.
type Kernel struct {
	ready   *ksync.Cell[sched.Discipline]
	Process *Process
	Clock   Clock

	current *task.TCB
}

// New creates a kernel around an already-constructed process, using the
// named scheduling discipline.
func New(proc *Process, discipline sched.Name, clock Clock) *Kernel {
	return &Kernel{
		ready:   ksync.NewCell[sched.Discipline](sched.New(discipline)),
		Process: proc,
		Clock:   clock,
	}
}

// Add enqueues t in the ready-queue discipline.
func (k *Kernel) Add(t *task.TCB) {
	ksync.With(k.ready, func(d *sched.Discipline) struct{} {
		(*d).Add(t)
		return struct{}{}
	})
}

// Fetch removes and returns the next Ready task, or nil if none is queued.
func (k *Kernel) Fetch() *task.TCB {
	return ksync.With(k.ready, func(d *sched.Discipline) *task.TCB {
		return (*d).Fetch()
	})
}

// Current returns the currently Running TCB, or nil if the kernel has not
// started running anything yet (or every thread has exited).
func (k *Kernel) Current() *task.TCB { return k.current }

// RunFirstTask elevates the first Ready task fetched from the discipline
// to Running and records it as current. It performs no context switch
// itself — SwitchFunc, the architecture trampoline, is an external
// collaborator invoked by the caller once this call returns.
func (k *Kernel) RunFirstTask() *task.TCB {
	t := k.Fetch()
	if t == nil {
		return nil
	}
	t.Status = task.Running
	t.StartTime = time.Now()
	k.current = t
	return t
}

// SuspendCurrentAndRunNext moves the current task Running -> Ready,
// re-enqueues it, and fetches the next Ready task. Under MLFQ the
// re-enqueue is a time-slice exhaustion: the task is demoted one level via
// Low, and CheckPriority advances the aging timer. It returns (prev,
// next); the caller invokes SwitchFunc(prev.Ctx, next.Ctx) to perform the
// actual register-level switch.
func (k *Kernel) SuspendCurrentAndRunNext() (prev, next *task.TCB) {
	prev = k.current
	if prev != nil {
		prev.Status = task.Ready
		ksync.With(k.ready, func(d *sched.Discipline) struct{} {
			if m, ok := (*d).(*sched.MLFQ); ok {
				m.Low(prev)
				m.CheckPriority()
			} else {
				(*d).Add(prev)
			}
			return struct{}{}
		})
	}
	next = k.Fetch()
	if next != nil {
		next.Status = task.Running
	}
	k.current = next
	return prev, next
}

// ExitCurrentAndRunNext moves the current task to Exited, retires its tid
// in the owning process, and fetches the next Ready task. halted reports
// true if no task remains runnable anywhere — the kernel halts with "all
// applications completed" in that case.
func (k *Kernel) ExitCurrentAndRunNext(exitCode int) (prev *task.TCB, next *task.TCB, halted bool) {
	prev = k.current
	if prev != nil {
		prev.Status = task.Exited
		k.Process.RetireThread(prev.ID)
	}
	next = k.Fetch()
	if next == nil {
		k.current = nil
		return prev, nil, true
	}
	next.Status = task.Running
	k.current = next
	return prev, next, false
}

// BlockCurrentAndRunNext moves the current task to Blocked — it must NOT
// be re-enqueued; it is the caller's job (mutex/semaphore/condvar, or a
// sleep timer) to move it back to Ready and call Add when the wakeup
// source fires — and fetches the next Ready task.
func (k *Kernel) BlockCurrentAndRunNext() (prev, next *task.TCB) {
	prev = k.current
	if prev != nil {
		prev.Status = task.Blocked
	}
	next = k.Fetch()
	if next != nil {
		next.Status = task.Running
	}
	k.current = next
	return prev, next
}

// Wake moves t from Blocked to Ready and enqueues it in the discipline.
// Every sync-primitive wakeup path (mutex unlock transfer, semaphore up,
// condvar signal, timer expiry) funnels through this single entry point.
func (k *Kernel) Wake(t *task.TCB) {
	if t == nil {
		return
	}
	t.Status = task.Ready
	k.Add(t)
}
