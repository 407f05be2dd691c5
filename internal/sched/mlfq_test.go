package sched

import (
	"testing"
	"time"

	"github.com/tinyrange/kernelcore/internal/task"
)

func TestMLFQNewTaskEntersLevelZero(t *testing.T) {
	m := NewMLFQ()
	tcb := &task.TCB{ID: 1}
	m.Add(tcb)
	if tcb.Priority != 0 {
		t.Fatalf("Priority after Add = %d, want 0", tcb.Priority)
	}
	got := m.Fetch()
	if got != tcb {
		t.Fatalf("Fetch() did not return the only queued task")
	}
}

func TestMLFQLowDemotesAndCapsAtLowestLevel(t *testing.T) {
	m := NewMLFQ()
	tcb := &task.TCB{ID: 1}
	m.Add(tcb)
	m.Fetch()

	for i := 0; i < mlfqLevels+5; i++ {
		m.Low(tcb)
		m.Fetch()
	}
	if tcb.Priority != mlfqLevels-1 {
		t.Fatalf("Priority after repeated Low = %d, want %d", tcb.Priority, mlfqLevels-1)
	}
}

func TestMLFQEqualLevelIsRoundRobin(t *testing.T) {
	m := NewMLFQ()
	a := &task.TCB{ID: 1}
	b := &task.TCB{ID: 2}
	m.Add(a)
	m.Add(b)

	if got := m.Fetch(); got != a {
		t.Fatalf("first Fetch() = task %d, want task 1 (FIFO within a level)", got.ID)
	}
	if got := m.Fetch(); got != b {
		t.Fatalf("second Fetch() = task %d, want task 2", got.ID)
	}
}

func TestMLFQAgingSweepLiftsStarvedTask(t *testing.T) {
	m := NewMLFQ()

	starved := &task.TCB{ID: 1, Priority: mlfqLevels - 1}
	starved.ReadyEnqueuedAt = time.Now().Add(-10 * time.Second)
	m.queues[starved.Priority] = append(m.queues[starved.Priority], starved)

	fresh := &task.TCB{ID: 2, Priority: 0}
	fresh.ReadyEnqueuedAt = time.Now()
	m.queues[fresh.Priority] = append(m.queues[fresh.Priority], fresh)

	for i := 0; i < mlfqTimerLimit; i++ {
		m.CheckPriority()
	}

	if starved.Priority != 0 {
		t.Fatalf("starved task's priority after sweep = %d, want 0 (lifted to the top)", starved.Priority)
	}
}
