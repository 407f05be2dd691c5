package syscall

import (
	"testing"

	"github.com/tinyrange/kernelcore/internal/kernel"
	"github.com/tinyrange/kernelcore/internal/mm"
	"github.com/tinyrange/kernelcore/internal/sched"
)

type fakeClock struct{ us int64 }

func (c *fakeClock) NowUS() int64 { return c.us }

func newTestDispatcher(t *testing.T) (*Dispatcher, *kernel.Process) {
	t.Helper()
	mem := mm.NewPhysicalMemory(256)
	alloc := mm.NewFrameAllocator(mem)
	as := mm.NewAddressSpace(mem, alloc, mm.VirtAddr(0x8000_0000).Floor())

	proc := kernel.NewProcess(as)
	k := kernel.New(proc, sched.NameFIFO, &fakeClock{us: 1_500_000})
	tcb := proc.SpawnThread()
	k.Add(tcb)
	k.RunFirstTask()

	return New(k), proc
}

func TestMmapThenMunmap(t *testing.T) {
	d, _ := newTestDispatcher(t)

	if r := d.Mmap(0x1000_0000, mm.PageSize, 0x3); r != 0 {
		t.Fatalf("Mmap() = %d, want 0", r)
	}
	pt := d.current().AddressSpace.PageTable()
	vpn := mm.VirtAddr(0x1000_0000).Floor()
	pte, ok := pt.Translate(vpn)
	if !ok || !pte.Valid() || !pte.Readable() || !pte.Writable() {
		t.Fatalf("page after Mmap() = %v ok=%v, want valid R|W", pte, ok)
	}

	if r := d.Munmap(0x1000_0000, mm.PageSize); r != 0 {
		t.Fatalf("Munmap() = %d, want 0", r)
	}
	pte, ok = pt.Translate(vpn)
	if ok && pte.Valid() {
		t.Fatalf("page after Munmap() should no longer be valid")
	}
}

func TestMmapOverlapFails(t *testing.T) {
	d, _ := newTestDispatcher(t)
	if r := d.Mmap(0x1000_0000, mm.PageSize, 0x3); r != 0 {
		t.Fatalf("first Mmap() = %d, want 0", r)
	}
	if r := d.Mmap(0x1000_0000, mm.PageSize, 0x3); r != -1 {
		t.Fatalf("overlapping Mmap() = %d, want -1", r)
	}
}

func TestMmapBadPortFails(t *testing.T) {
	d, _ := newTestDispatcher(t)
	if r := d.Mmap(0x1000_0000, mm.PageSize, 0); r != -1 {
		t.Fatalf("Mmap(port=0) = %d, want -1", r)
	}
	if r := d.Mmap(0x1000_0000, mm.PageSize, 0x8); r != -1 {
		t.Fatalf("Mmap(port=8) = %d, want -1", r)
	}
}

func TestMmapUnalignedStartFails(t *testing.T) {
	d, _ := newTestDispatcher(t)
	if r := d.Mmap(0x1000_0001, mm.PageSize, 0x3); r != -1 {
		t.Fatalf("Mmap(unaligned start) = %d, want -1", r)
	}
}

func TestGetTimeHandlesPageStraddle(t *testing.T) {
	d, _ := newTestDispatcher(t)

	const ptr = uint64(0x2000_0000 + mm.PageSize - 8)
	if r := d.Mmap(0x2000_0000, 2*mm.PageSize, 0x3); r != 0 {
		t.Fatalf("Mmap() = %d, want 0", r)
	}

	if r := d.GetTime(ptr); r != 0 {
		t.Fatalf("GetTime() = %d, want 0", r)
	}

	buf := make([]byte, 0, 16)
	for _, s := range mm.TranslateUserBuffer(d.mem(), d.token(), ptr, 16) {
		buf = append(buf, s...)
	}
	tv := TimeVal{Sec: uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 | uint64(buf[3])<<24 |
		uint64(buf[4])<<32 | uint64(buf[5])<<40 | uint64(buf[6])<<48 | uint64(buf[7])<<56}
	if tv.Sec != 1 {
		t.Fatalf("TimeVal.Sec = %d, want 1 (from 1_500_000us)", tv.Sec)
	}
}

func TestSbrkGrowsAndShrinks(t *testing.T) {
	d, _ := newTestDispatcher(t)
	base := int64(d.current().AddressSpace.ProgramBreak())

	old := d.Sbrk(int64(mm.PageSize))
	if old != base {
		t.Fatalf("Sbrk(grow) old = %d, want %d", old, base)
	}
	if got := int64(d.current().AddressSpace.ProgramBreak()); got != base+mm.PageSize {
		t.Fatalf("break after grow = %d, want %d", got, base+mm.PageSize)
	}

	old = d.Sbrk(-int64(mm.PageSize))
	if old != base+mm.PageSize {
		t.Fatalf("Sbrk(shrink) old = %d, want %d", old, base+mm.PageSize)
	}
	if got := int64(d.current().AddressSpace.ProgramBreak()); got != base {
		t.Fatalf("break after shrink = %d, want %d", got, base)
	}
}

func TestDeadlockRefusalViaSyscalls(t *testing.T) {
	d, proc := newTestDispatcher(t)
	proc.EnableDeadlockDetect(1)

	a := d.current()
	b := proc.SpawnThread()

	m0 := d.MutexCreate(true)
	m1 := d.MutexCreate(true)

	if r := proc.TryMutexLock(a.ID, m0); r != kernel.Granted {
		t.Fatalf("a locking m0 = %v, want Granted", r)
	}
	if r := proc.TryMutexLock(b.ID, m1); r != kernel.Granted {
		t.Fatalf("b locking m1 = %v, want Granted", r)
	}
	if r := proc.TryMutexLock(a.ID, m1); r != kernel.Blocked {
		t.Fatalf("a requesting m1 = %v, want Blocked", r)
	}
	if r := proc.TryMutexLock(b.ID, m0); r != kernel.Refused {
		t.Fatalf("b requesting m0 = %v, want Refused", r)
	}
}
