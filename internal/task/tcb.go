package task

import (
	"time"

	"github.com/tinyrange/kernelcore/internal/mm"
)

// MaxSyscallNum bounds the per-task syscall counters.
const MaxSyscallNum = 500

// Status is a task's position in its life cycle.
type Status int

const (
	UnInit Status = iota
	Ready
	Running
	Blocked
	Exited
)

func (s Status) String() string {
	switch s {
	case UnInit:
		return "UnInit"
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Blocked:
		return "Blocked"
	case Exited:
		return "Exited"
	default:
		return "Status(?)"
	}
}

// TCB is the Task Control Block: all per-thread kernel state. The
// scheduler only ever reads/writes the fields it needs (Priority, Stride,
// ReadyEnqueuedAt and the FIFO sequence); sync primitives only touch
// Status; the banker never touches a TCB directly at all (it is keyed by
// thread id, not by TCB).
type TCB struct {
	ID     int
	Status Status
	Ctx    *Context

	StartTime  time.Time
	UserTime   time.Duration
	KernelTime time.Duration

	SyscallTimes [MaxSyscallNum]uint32

	// Scheduling metadata. Priority is overloaded by discipline: for
	// FIFO-priority it is the min-heap key (lower runs first); for MLFQ it
	// is the current queue level (0 = highest); for Stride it is the
	// weight sched.StridePass divides by. Stride is used only by the Stride
	// discipline; Pass is not read or written by any discipline.
	Priority int
	Stride   uint64
	Pass     uint64

	AddressSpace *mm.AddressSpace
	TrapFrame    any // opaque: owned by the trap-dispatch collaborator (out of scope)

	// ReadyEnqueuedAt is set by the scheduler on enqueue and read by MLFQ's
	// aging sweep to compute each task's ready-wait time; other
	// disciplines ignore it.
	ReadyEnqueuedAt time.Time

	seq uint64 // FIFO tie-break / insertion order, set by the scheduler
}

// New creates a fresh TCB in UnInit status, as created by the loader at
// load time or by fork.
func New(id int, as *mm.AddressSpace) *TCB {
	return &TCB{
		ID:           id,
		Status:       UnInit,
		Ctx:          ZeroContext(),
		AddressSpace: as,
	}
}

// TotalTime returns the sum of user and kernel time, used by task_info.
func (t *TCB) TotalTime() time.Duration { return t.UserTime + t.KernelTime }

// FIFOSeq and SetFIFOSeq expose the insertion-order tie-breaker the FIFO
// discipline stamps on enqueue; no other code should read or set it.
func (t *TCB) FIFOSeq() uint64        { return t.seq }
func (t *TCB) SetFIFOSeq(seq uint64) { t.seq = seq }
