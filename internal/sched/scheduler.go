// Package sched implements the kernel's pluggable ready-queue disciplines:
// FIFO-priority (the default), Stride, and a raisable/lowerable
// Multi-Level Feedback Queue. All three share one interface so the kernel
// can be built against whichever discipline its boot configuration names.
package sched

import "github.com/tinyrange/kernelcore/internal/task"

// Discipline is the common interface every ready-queue policy implements.
// Add assumes the caller never enqueues an already-queued task — that is
// the caller's responsibility, not enforced here. Fetch never returns a
// non-Ready task.
type Discipline interface {
	Add(t *task.TCB)
	Fetch() *task.TCB
}

// Name identifies which Discipline a boot configuration selects.
type Name string

const (
	NameFIFO   Name = "fifo"
	NameStride Name = "stride"
	NameMLFQ   Name = "mlfq"
)

// New constructs the named discipline, or nil if the name is unrecognized.
func New(name Name) Discipline {
	switch name {
	case NameFIFO:
		return NewFIFO()
	case NameStride:
		return NewStride()
	case NameMLFQ:
		return NewMLFQ()
	default:
		return nil
	}
}
