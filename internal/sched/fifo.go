package sched

import (
	"github.com/google/btree"
	"github.com/tinyrange/kernelcore/internal/task"
)

// FIFO is the default discipline: a min-heap keyed by (priority,
// insertion order). Fetch returns the highest-priority (lowest Priority
// value), earliest-arrived Ready task.
type FIFO struct {
	tree *btree.BTreeG[*task.TCB]
	seq  uint64
}

func fifoLess(a, b *task.TCB) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.FIFOSeq() < b.FIFOSeq()
}

// NewFIFO creates an empty FIFO-priority ready queue.
func NewFIFO() *FIFO {
	return &FIFO{tree: btree.NewG(32, fifoLess)}
}

// Add enqueues t, stamping it with the next insertion-order sequence
// number so equal-priority tasks stay FIFO among themselves.
func (f *FIFO) Add(t *task.TCB) {
	t.SetFIFOSeq(f.seq)
	f.seq++
	f.tree.ReplaceOrInsert(t)
}

// Fetch removes and returns the highest-priority, earliest-arrived task,
// or nil if the queue is empty.
func (f *FIFO) Fetch() *task.TCB {
	min, ok := f.tree.Min()
	if !ok {
		return nil
	}
	f.tree.Delete(min)
	return min
}
