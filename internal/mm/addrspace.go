package mm

import "fmt"

// MapPermission is the subset of PTEFlags a region's owner controls (R/W/X/U).
type MapPermission PTEFlags

const (
	PermR MapPermission = MapPermission(PTER)
	PermW MapPermission = MapPermission(PTEW)
	PermX MapPermission = MapPermission(PTEX)
	PermU MapPermission = MapPermission(PTEU)
)

// MapArea is one mapped, anonymously-backed region of an address space: a
// [start, end) run of virtual pages, the permission it was created with,
// and the frames backing it (owned by the area, released when it is
// removed).
type MapArea struct {
	StartVPN VirtPageNum
	EndVPN   VirtPageNum
	Perm     MapPermission
	frames   map[VirtPageNum]*FrameTracker
}

func newMapArea(start, end VirtPageNum, perm MapPermission) *MapArea {
	return &MapArea{StartVPN: start, EndVPN: end, Perm: perm, frames: make(map[VirtPageNum]*FrameTracker)}
}

// AddressSpace owns one PageTable plus the anonymous regions mapped into
// it, and tracks the program break — the byte address ending the heap,
// which sbrk advances or shrinks by a signed delta.
type AddressSpace struct {
	mem   *PhysicalMemory
	alloc *FrameAllocator
	pt    *PageTable
	areas []*MapArea

	brkAddr    VirtAddr    // current program break, byte-granular
	baseVPN    VirtPageNum // first heap page; brk never shrinks below this
	heapFrames map[VirtPageNum]*FrameTracker
}

// NewAddressSpace creates an empty address space with a fresh owning page
// table and an empty heap starting at baseVPN.
func NewAddressSpace(mem *PhysicalMemory, alloc *FrameAllocator, baseVPN VirtPageNum) *AddressSpace {
	return &AddressSpace{
		mem:        mem,
		alloc:      alloc,
		pt:         New(mem, alloc),
		brkAddr:    baseVPN.Addr(),
		baseVPN:    baseVPN,
		heapFrames: make(map[VirtPageNum]*FrameTracker),
	}
}

// Token returns this address space's page-table root token, installed
// into the MMU (or handed to mm.FromToken elsewhere in the kernel) when
// this address space's owner runs.
func (as *AddressSpace) Token() uint64 { return as.pt.Token() }

// PageTable exposes the owning page table for direct map/unmap/translate
// calls (e.g. from the syscall façade).
func (as *AddressSpace) PageTable() *PageTable { return as.pt }

// InsertFramedArea allocates and maps a frame for every page in
// [start, end), records the region as a MapArea the address space owns,
// and returns an error if the allocator is exhausted partway through (in
// which case, as with MapWithLen, pages mapped before the failure are not
// rolled back).
func (as *AddressSpace) InsertFramedArea(start, end VirtPageNum, perm MapPermission) error {
	area := newMapArea(start, end, perm)
	flags := PTEFlags(perm) | PTEV
	for vpn := start; vpn < end; vpn++ {
		frame, err := as.alloc.Alloc()
		if err != nil {
			return fmt.Errorf("mm: address space out of frames mapping %v: %w", vpn, err)
		}
		area.frames[vpn] = frame
		as.pt.Map(vpn, frame.PPN, flags)
	}
	as.areas = append(as.areas, area)
	return nil
}

// RemoveArea unmaps and releases every frame in the area starting at
// start, if one exists.
func (as *AddressSpace) RemoveArea(start VirtPageNum) bool {
	for i, area := range as.areas {
		if area.StartVPN != start {
			continue
		}
		for vpn := area.StartVPN; vpn < area.EndVPN; vpn++ {
			as.pt.Unmap(vpn)
			area.frames[vpn].Release()
		}
		as.areas = append(as.areas[:i], as.areas[i+1:]...)
		return true
	}
	return false
}

// ProgramBreak returns the current end of the heap as a virtual address.
func (as *AddressSpace) ProgramBreak() VirtAddr { return as.brkAddr }

// ceilVPN returns the VPN of the first page at or after a, i.e. the page
// boundary that fully covers a as an exclusive end.
func ceilVPN(a VirtAddr) VirtPageNum {
	if a.PageOffset() == 0 {
		return a.Floor()
	}
	return a.Floor() + 1
}

// ChangeProgramBrk advances (delta > 0) or shrinks (delta < 0) the heap by
// delta bytes, mapping or unmapping whole pages as the break crosses page
// boundaries. It returns the break address from before the change (sbrk's
// traditional return value) and false if the requested shrink would move
// the break below baseVPN or if growth runs out of frames.
func (as *AddressSpace) ChangeProgramBrk(delta int64) (oldBrk VirtAddr, ok bool) {
	oldBrk = as.brkAddr
	newBytes := int64(oldBrk) + delta
	if newBytes < int64(as.baseVPN.Addr()) {
		return oldBrk, false
	}
	newBrk := VirtAddr(newBytes)
	oldMappedEnd := ceilVPN(oldBrk)
	newMappedEnd := ceilVPN(newBrk)

	switch {
	case newMappedEnd > oldMappedEnd:
		flags := PTEFlags(PermR|PermW|PermU) | PTEV
		mapped := make([]VirtPageNum, 0, uint64(newMappedEnd-oldMappedEnd))
		for vpn := oldMappedEnd; vpn < newMappedEnd; vpn++ {
			frame, err := as.alloc.Alloc()
			if err != nil {
				for _, v := range mapped {
					as.pt.Unmap(v)
					as.heapFrames[v].Release()
					delete(as.heapFrames, v)
				}
				return oldBrk, false
			}
			as.heapFrames[vpn] = frame
			as.pt.Map(vpn, frame.PPN, flags)
			mapped = append(mapped, vpn)
		}
	case newMappedEnd < oldMappedEnd:
		for vpn := newMappedEnd; vpn < oldMappedEnd; vpn++ {
			as.pt.TryUnmap(vpn)
			if frame, ok := as.heapFrames[vpn]; ok {
				frame.Release()
				delete(as.heapFrames, vpn)
			}
		}
	}
	as.brkAddr = newBrk
	return oldBrk, true
}
