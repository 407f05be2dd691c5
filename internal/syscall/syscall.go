// Package syscall implements the thin dispatch surface the kernel core
// exposes to user programs: argument validation plus delegation into the
// mm, kernel, and sched packages. Syscall numbers and argument
// marshalling off the trap frame belong to an external trap dispatcher;
// this package only implements what each call does once its arguments
// have already been decoded into Go values.
package syscall

import (
	"github.com/tinyrange/kernelcore/internal/kernel"
	"github.com/tinyrange/kernelcore/internal/mm"
	"github.com/tinyrange/kernelcore/internal/task"
)

// Deadlock is the syscall-level return code for a refused lock/down:
// -0xdead.
const Deadlock = kernel.DeadlockCode

// Dispatcher translates syscalls into calls against a running kernel. One
// Dispatcher serves one process; a multi-process build would hold one per
// process and route by the trap's current process, which this core does
// not model (no process tree, no fork/exec).
type Dispatcher struct {
	Kernel *kernel.Kernel
}

// New creates a dispatcher fronting k.
func New(k *kernel.Kernel) *Dispatcher { return &Dispatcher{Kernel: k} }

func (d *Dispatcher) current() *task.TCB { return d.Kernel.Current() }

// Yield implements the yield syscall: suspend the current task and run
// the next Ready one. It always returns 0.
func (d *Dispatcher) Yield() int {
	d.Kernel.SuspendCurrentAndRunNext()
	return 0
}

// Exit implements the exit syscall: this task is done and is never
// rescheduled. The real syscall never returns to its caller (the next
// instruction executed belongs to whatever task the switch lands on);
// here the caller simply must not resume user-mode execution for this
// tid after calling Exit.
func (d *Dispatcher) Exit(exitCode int) (halted bool) {
	_, _, halted = d.Kernel.ExitCurrentAndRunNext(exitCode)
	return halted
}

// GetTime writes the current time (from the kernel's Clock) as a TimeVal
// into the current task's address space at user pointer ts, handling a
// page-straddling pointer correctly. It always returns 0.
func (d *Dispatcher) GetTime(ts uint64) int {
	us := d.Kernel.Clock.NowUS()
	tv := TimeVal{Sec: uint64(us) / 1_000_000, USec: uint64(us) % 1_000_000}
	mm.WriteUserStraddling(d.mem(), d.token(), ts, tv.Bytes())
	return 0
}

// TaskInfo writes the current task's status, syscall-count table, and
// total running time into user pointer ti. It always returns 0.
func (d *Dispatcher) TaskInfo(ti uint64) int {
	t := d.current()
	info := TaskInfo{
		Status: uint32(statusCode(t.Status)),
		TimeMS: uint64(t.TotalTime().Milliseconds()),
	}
	copy(info.SyscallTimes[:], t.SyscallTimes[:])
	mm.WriteUserStraddling(d.mem(), d.token(), ti, info.Bytes())
	return 0
}

func statusCode(s task.Status) int { return int(s) }

// Mmap implements the mmap syscall. It validates that start is
// page-aligned and port carries only the low three bits with at least one
// set, then maps ceil(len/PageSize) pages with permissions port<<1 (R/W/X
// bits line up one position higher to leave room for V); TryMapUser forces
// U on every leaf it creates, so callers never need to ask for it here.
func (d *Dispatcher) Mmap(start, length, port uint64) int {
	va := mm.VirtAddr(start)
	if va.PageOffset() != 0 || port&^uint64(0x7) != 0 || port&0x7 == 0 {
		return -1
	}
	flags := mm.PTEFlags(port << 1)
	return mm.MapWithLen(d.current().AddressSpace.PageTable(), va, length, flags)
}

// Munmap implements the munmap syscall: start must be page-aligned.
func (d *Dispatcher) Munmap(start, length uint64) int {
	va := mm.VirtAddr(start)
	if va.PageOffset() != 0 {
		return -1
	}
	return mm.UnmapWithLen(d.current().AddressSpace.PageTable(), va, length)
}

// Sbrk implements the sbrk syscall: grows or shrinks the heap by size
// bytes and returns the prior break, or -1 if the change is impossible
// (shrink below the heap base, or growth exhausts frames).
func (d *Dispatcher) Sbrk(size int64) int64 {
	old, ok := d.current().AddressSpace.ChangeProgramBrk(size)
	if !ok {
		return -1
	}
	return int64(old)
}

// Sleep implements the sleep syscall's blocking half: it is the caller's
// job to have already registered a wakeup with a Timer collaborator before
// calling this, since this package has no clock interrupt of its own to
// wait on. Sleep always blocks: it runs BlockCurrentAndRunNext itself.
func (d *Dispatcher) Sleep() {
	d.Kernel.BlockCurrentAndRunNext()
}

func (d *Dispatcher) mem() *mm.PhysicalMemory {
	return d.current().AddressSpace.PageTable().Memory()
}

func (d *Dispatcher) token() uint64 {
	return d.current().AddressSpace.Token()
}

// EnableDeadlockDetect implements enable_deadlock_detect: enabled must be
// 0 or 1.
func (d *Dispatcher) EnableDeadlockDetect(proc *kernel.Process, enabled int) int {
	return proc.EnableDeadlockDetect(enabled)
}
