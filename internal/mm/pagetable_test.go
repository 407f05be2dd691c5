package mm

import "testing"

func newTestPageTable(t *testing.T) (*PhysicalMemory, *FrameAllocator, *PageTable) {
	t.Helper()
	mem := NewPhysicalMemory(64)
	alloc := NewFrameAllocator(mem)
	pt := New(mem, alloc)
	return mem, alloc, pt
}

func TestMapTranslateRoundTrip(t *testing.T) {
	_, alloc, pt := newTestPageTable(t)
	frame, err := alloc.Alloc()
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}

	vpn := VirtPageNum(0x2_0001)
	pt.Map(vpn, frame.PPN, PTER|PTEW)

	pte, ok := pt.Translate(vpn)
	if !ok || !pte.Valid() {
		t.Fatalf("Translate(%v) = (%v, %v), want a valid entry", vpn, pte, ok)
	}
	if pte.PPN() != frame.PPN {
		t.Errorf("PPN = %v, want %v", pte.PPN(), frame.PPN)
	}
	if !pte.Readable() || !pte.Writable() || pte.Executable() {
		t.Errorf("flags = %v, want R|W only (plus V)", pte.Flags())
	}
}

func TestUnmapClearsEntry(t *testing.T) {
	_, alloc, pt := newTestPageTable(t)
	frame, _ := alloc.Alloc()
	vpn := VirtPageNum(5)
	pt.Map(vpn, frame.PPN, PTER)
	pt.Unmap(vpn)

	pte, ok := pt.Translate(vpn)
	if !ok {
		t.Fatalf("Translate after unmap should still find the (now-empty) leaf slot")
	}
	if pte.Valid() {
		t.Fatalf("translate after unmap should not be valid")
	}
}

func TestMapPanicsOnAlreadyValid(t *testing.T) {
	_, alloc, pt := newTestPageTable(t)
	frame, _ := alloc.Alloc()
	vpn := VirtPageNum(9)
	pt.Map(vpn, frame.PPN, PTER)

	defer func() {
		if recover() == nil {
			t.Fatalf("Map on an already-valid vpn should panic")
		}
	}()
	pt.Map(vpn, frame.PPN, PTER)
}

func TestUnmapPanicsOnNotMapped(t *testing.T) {
	_, _, pt := newTestPageTable(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("Unmap on an unmapped vpn should panic")
		}
	}()
	pt.Unmap(VirtPageNum(123))
}

func TestTryMapUserRejectsDoubleMap(t *testing.T) {
	_, _, pt := newTestPageTable(t)
	vpn := VirtPageNum(42)
	if r := pt.TryMapUser(vpn, PTER|PTEW); r != 0 {
		t.Fatalf("first TryMapUser = %d, want 0", r)
	}
	if r := pt.TryMapUser(vpn, PTER|PTEW); r != -1 {
		t.Fatalf("second TryMapUser = %d, want -1", r)
	}
	pte, ok := pt.Translate(vpn)
	if !ok || !pte.Flags().Has(PTEU) {
		t.Fatalf("TryMapUser must force the U flag, got %v", pte.Flags())
	}
}

func TestTryUnmapFailsWhenNotValid(t *testing.T) {
	_, _, pt := newTestPageTable(t)
	if r := pt.TryUnmap(VirtPageNum(7)); r != -1 {
		t.Fatalf("TryUnmap on unmapped vpn = %d, want -1", r)
	}
	pt.TryMapUser(VirtPageNum(7), PTER)
	if r := pt.TryUnmap(VirtPageNum(7)); r != 0 {
		t.Fatalf("TryUnmap on mapped vpn = %d, want 0", r)
	}
	if r := pt.TryUnmap(VirtPageNum(7)); r != -1 {
		t.Fatalf("second TryUnmap = %d, want -1", r)
	}
}

func TestFromTokenIsBorrowedView(t *testing.T) {
	mem, _, pt := newTestPageTable(t)
	token := pt.Token()

	view := FromToken(mem, token)
	if view.owned {
		t.Fatalf("FromToken view must not be owned")
	}
	if view.Token() != token {
		t.Fatalf("view token = %x, want %x", view.Token(), token)
	}
}

func TestMapOnBorrowedViewPanics(t *testing.T) {
	mem, _, pt := newTestPageTable(t)
	view := FromToken(mem, pt.Token())

	defer func() {
		if recover() == nil {
			t.Fatalf("Map on a borrowed view should panic")
		}
	}()
	view.Map(VirtPageNum(3), PhysPageNum(1), PTER)
}

func TestUnmapOnBorrowedViewPanics(t *testing.T) {
	mem, _, pt := newTestPageTable(t)
	pt.Map(VirtPageNum(3), PhysPageNum(1), PTER)
	view := FromToken(mem, pt.Token())

	defer func() {
		if recover() == nil {
			t.Fatalf("Unmap on a borrowed view should panic")
		}
	}()
	view.Unmap(VirtPageNum(3))
}

func TestFrameAllocatorReuseOrdering(t *testing.T) {
	mem := NewPhysicalMemory(2)
	alloc := NewFrameAllocator(mem)

	a, err := alloc.Alloc()
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	b, err := alloc.Alloc()
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if _, err := alloc.Alloc(); err != ErrFrameExhausted {
		t.Fatalf("Alloc() on exhausted pool error = %v, want ErrFrameExhausted", err)
	}

	a.Release()
	c, err := alloc.Alloc()
	if err != nil {
		t.Fatalf("Alloc() after release error = %v", err)
	}
	if c.PPN != a.PPN {
		t.Fatalf("Alloc() after release = %v, want recycled frame %v", c.PPN, a.PPN)
	}
	_ = b
}

func TestUserBufferStraddlesTwoPages(t *testing.T) {
	mem, alloc, pt := newTestPageTable(t)

	vpn0 := VirtPageNum(0)
	vpn1 := VirtPageNum(1)
	f0, _ := alloc.Alloc()
	f1, _ := alloc.Alloc()
	pt.Map(vpn0, f0.PPN, PTER|PTEW|PTEU)
	pt.Map(vpn1, f1.PPN, PTER|PTEW|PTEU)

	token := pt.Token()

	// 8-byte value starting 4 bytes before the end of page 0: the first 4
	// bytes land in page 0, the last 4 in page 1 — a genuine straddle.
	const ptr = uint64(PageSize - 4)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	WriteUserStraddling(mem, token, ptr, want)

	got := make([]byte, 0, 8)
	for _, s := range TranslateUserBuffer(mem, token, ptr, 8) {
		got = append(got, s...)
	}
	if string(got) != string(want) {
		t.Fatalf("round trip across page straddle = %v, want %v", got, want)
	}
}

func TestMapWithLenNoRollbackOnPartialFailure(t *testing.T) {
	mem := NewPhysicalMemory(4)
	alloc := NewFrameAllocator(mem)
	pt := New(mem, alloc) // root takes one frame; the first page needs the other three

	start := VirtAddr(0x1000)
	if r := MapWithLen(pt, start, 2*PageSize, PTEFlags(PermR|PermW)); r != -1 {
		t.Fatalf("MapWithLen running out of frames on the second page = %d, want -1", r)
	}
	if pte, ok := pt.Translate(start.Floor()); !ok || !pte.Valid() {
		t.Fatalf("first page should stay mapped after the partial failure (no rollback)")
	}
}
