package sched

import (
	"time"

	"github.com/tinyrange/kernelcore/internal/task"
)

// mlfqLevels is L, the number of feedback-queue priority levels; level 0
// is highest. mlfqTimerLimit is the number of re-enqueues between aging
// sweeps.
const (
	mlfqLevels     = 16
	mlfqTimerLimit = 10
)

// MLFQ is the raisable/lowerable Multi-Level Feedback Queue discipline.
// Add enqueues a task at its current Priority level (task.New leaves
// Priority at its zero value, so a genuinely new task lands at level 0
// without any special-casing here); Low is called by the kernel's
// SuspendCurrentAndRunNext (its time-slice-exhaustion path) to demote a
// task one level and re-enqueue it; CheckPriority, called right after,
// drives the periodic aging sweep that lifts
// long-waiting tasks back toward level 0. Low and CheckPriority are not
// part of the Discipline interface since FIFO and Stride have no
// equivalent operations — callers that specifically need MLFQ behavior
// type-assert the concrete *MLFQ.
type MLFQ struct {
	queues [mlfqLevels][]*task.TCB
	timer  int
}

// NewMLFQ creates an empty, level-0-timer feedback queue.
func NewMLFQ() *MLFQ {
	return &MLFQ{}
}

// Add enqueues t at its current Priority level and stamps its ready-wait
// clock. Priority is clamped into range defensively; well-behaved callers
// never pass an out-of-range level.
func (m *MLFQ) Add(t *task.TCB) {
	t.Priority = clamp(t.Priority, 0, mlfqLevels-1)
	t.ReadyEnqueuedAt = time.Now()
	m.queues[t.Priority] = append(m.queues[t.Priority], t)
}

// Fetch returns the highest-priority (lowest level), earliest-arrived
// Ready task, or nil if every level is empty.
func (m *MLFQ) Fetch() *task.TCB {
	for lvl := range m.queues {
		q := m.queues[lvl]
		if len(q) == 0 {
			continue
		}
		t := q[0]
		m.queues[lvl] = q[1:]
		return t
	}
	return nil
}

// Low demotes t one level (capped at mlfqLevels-1, the lowest priority)
// after it exhausts its time quota, and re-enqueues it at that level with
// a fresh ready-wait clock.
func (m *MLFQ) Low(t *task.TCB) {
	if t.Priority < mlfqLevels-1 {
		t.Priority++
	}
	t.ReadyEnqueuedAt = time.Now()
	m.queues[t.Priority] = append(m.queues[t.Priority], t)
}

// CheckPriority advances the aging timer and, every mlfqTimerLimit calls,
// runs one priority-aging sweep across every queued task.
func (m *MLFQ) CheckPriority() {
	m.timer++
	if m.timer < mlfqTimerLimit {
		return
	}
	m.timer = 0

	shortest, longest, any := m.readyTimeRange()
	if !any || shortest == longest {
		// Every queued task has waited exactly as long (or there is
		// nothing to age); there is no differential to raise by, and
		// dividing by a zero delta below would be meaningless.
		return
	}

	delta := (longest - shortest) / (mlfqLevels - 1)
	if delta <= 0 {
		return
	}

	var next [mlfqLevels][]*task.TCB
	now := time.Now()
	for lvl := range m.queues {
		for _, t := range m.queues[lvl] {
			wait := now.Sub(t.ReadyEnqueuedAt)
			raise := ceilDiv(wait-shortest, delta)
			newLevel := 0
			if int64(t.Priority) > raise {
				newLevel = t.Priority - int(raise)
			}
			t.Priority = clamp(newLevel, 0, mlfqLevels-1)
			next[t.Priority] = append(next[t.Priority], t)
		}
	}
	m.queues = next
}

// readyTimeRange returns the shortest and longest current ready-wait
// durations across every queued task, and whether any task is queued.
func (m *MLFQ) readyTimeRange() (shortest, longest time.Duration, any bool) {
	now := time.Now()
	for lvl := range m.queues {
		for _, t := range m.queues[lvl] {
			wait := now.Sub(t.ReadyEnqueuedAt)
			if !any || wait < shortest {
				shortest = wait
			}
			if !any || wait > longest {
				longest = wait
			}
			any = true
		}
	}
	return shortest, longest, any
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ceilDiv computes ceil(a/b) for positive durations, matching Rust's
// usize::div_ceil used by the aging-sweep raise formula.
func ceilDiv(a, b time.Duration) int64 {
	if a <= 0 {
		return 0
	}
	return (int64(a) + int64(b) - 1) / int64(b)
}
