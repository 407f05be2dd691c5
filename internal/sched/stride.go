package sched

import (
	"math"

	"github.com/google/btree"
	"github.com/tinyrange/kernelcore/internal/task"
)

// BigStride is the divide-num constant used to derive each task's pass
// increment from its priority weight. It must dominate the largest single
// pass so that no two live strides ever diverge by more than BigStride/2 —
// the precondition the modular ordering below relies on.
const BigStride = math.MaxUint64

// Stride is the ready-queue discipline where each task accumulates a
// stride value by BigStride/priority_weight every time it is selected, and
// fetch always picks the minimum live stride. Because stride wraps around
// uint64, comparisons use the modular "near window" order rather than a
// raw unsigned compare.
type Stride struct {
	tree *btree.BTreeG[*task.TCB]
}

// strideLess implements the modular ordering: a < b iff the unsigned
// wrap-around distance (b - a) mod 2^64 is <= BigStride/2. The Rust source
// keeps ties in a multiset (a BinaryHeap tolerates equal keys); btree.BTreeG
// is a sorted set, so two tasks with identical strides would otherwise
// collide and one would silently evict the other. Breaking ties by task ID
// keeps every enqueued task distinct without disturbing the stride order
// for the (overwhelmingly common) unequal case.
func strideLess(a, b *task.TCB) bool {
	switch {
	case a.Stride == b.Stride:
		return a.ID < b.ID
	case a.Stride < b.Stride:
		return b.Stride-a.Stride <= BigStride/2
	default: // a.Stride > b.Stride
		return a.Stride-b.Stride > BigStride/2
	}
}

// NewStride creates an empty Stride ready queue.
func NewStride() *Stride {
	return &Stride{tree: btree.NewG(32, strideLess)}
}

// Add enqueues t at its current stride value. Callers are expected to have
// already set t.Priority (the weight) before the first Add; StridePass
// computes the matching increment.
func (s *Stride) Add(t *task.TCB) {
	s.tree.ReplaceOrInsert(t)
}

// Fetch removes and returns the task with minimum stride, then advances
// its stride by its pass increment for the next round, or nil if empty.
func (s *Stride) Fetch() *task.TCB {
	min, ok := s.tree.Min()
	if !ok {
		return nil
	}
	s.tree.Delete(min)
	min.Stride += StridePass(min.Priority)
	return min
}

// StridePass computes BigStride/priority_weight, the amount a task's
// stride advances each time it is selected. A weight <= 0 is treated as 1
// to avoid a divide-by-zero; the syscall layer is responsible for
// rejecting non-positive priorities before they ever reach here.
func StridePass(priorityWeight int) uint64 {
	if priorityWeight <= 0 {
		priorityWeight = 1
	}
	return BigStride / uint64(priorityWeight)
}
