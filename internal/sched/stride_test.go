package sched

import (
	"testing"

	"github.com/tinyrange/kernelcore/internal/task"
)

func TestStrideModularOrderingBoundary(t *testing.T) {
	a := &task.TCB{Stride: BigStride/2 - 2}
	b := &task.TCB{Stride: BigStride}
	if !strideLess(b, a) {
		t.Fatalf("Stride(BIG_STRIDE/2-2) should be > Stride(BIG_STRIDE)")
	}

	c := &task.TCB{Stride: BigStride/2 + 2}
	d := &task.TCB{Stride: BigStride}
	if !strideLess(c, d) {
		t.Fatalf("Stride(BIG_STRIDE/2+2) should be < Stride(BIG_STRIDE)")
	}
}

func TestStrideFetchPicksMinimumAndAdvances(t *testing.T) {
	s := NewStride()
	t1 := &task.TCB{ID: 1, Stride: 10, Priority: 1}
	t2 := &task.TCB{ID: 2, Stride: 5, Priority: 1}
	s.Add(t1)
	s.Add(t2)

	got := s.Fetch()
	if got != t2 {
		t.Fatalf("Fetch() picked stride %d, want the smaller (5)", got.Stride)
	}
	if got.Stride != 5+StridePass(1) {
		t.Fatalf("Fetch() did not advance stride, got %d", got.Stride)
	}
}

func TestStrideFairnessRatio(t *testing.T) {
	s := NewStride()
	heavy := &task.TCB{ID: 1, Priority: 2}
	light := &task.TCB{ID: 2, Priority: 1}
	s.Add(heavy)
	s.Add(light)

	counts := map[*task.TCB]int{}
	const rounds = 3000
	for i := 0; i < rounds; i++ {
		picked := s.Fetch()
		counts[picked]++
		s.Add(picked)
	}

	ratio := float64(counts[heavy]) / float64(counts[light])
	if ratio < 1.8 || ratio > 2.2 {
		t.Fatalf("selection ratio heavy:light = %.2f, want close to 2.0", ratio)
	}
}
