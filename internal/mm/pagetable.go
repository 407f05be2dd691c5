package mm

import "fmt"

// PageTable walks and mutates an SV39 three-level page table. It either
// owns the frames it allocates during walks (the normal case, built by
// New), or is a borrowed view constructed by FromToken from a raw root
// token — used for ad-hoc user-pointer translation, holding no frames of
// its own. Mutating a borrowed view is undefined behavior for callers and
// panics here instead of corrupting state silently.
type PageTable struct {
	mem     *PhysicalMemory
	alloc   *FrameAllocator
	rootPPN PhysPageNum
	frames  []*FrameTracker
	owned   bool
}

// New allocates a root frame and returns an owning PageTable. Frame
// exhaustion here panics: page tables are created at process/address-space
// construction time, where the original kernel's own contract is to
// unwrap (assume it won't OOM when creating/mapping).
func New(mem *PhysicalMemory, alloc *FrameAllocator) *PageTable {
	root := alloc.MustAlloc()
	return &PageTable{
		mem:     mem,
		alloc:   alloc,
		rootPPN: root.PPN,
		frames:  []*FrameTracker{root},
		owned:   true,
	}
}

// FromToken builds a borrowed, frame-less view over an existing root,
// identified by an SV39 SATP-style token. Used by the kernel to translate
// user pointers without taking ownership of the target process's table.
func FromToken(mem *PhysicalMemory, token uint64) *PageTable {
	return &PageTable{
		mem:     mem,
		rootPPN: RootPPNFromToken(token),
		owned:   false,
	}
}

// Token returns the SV39 SATP-style root identifier for hardware MMU
// install (or, here, for handing to FromToken elsewhere in the kernel).
func (pt *PageTable) Token() uint64 { return SatpToken(pt.rootPPN) }

// Memory returns the physical memory this page table's entries are read
// from and written to, for callers (like the syscall façade) that need to
// pair a token with the backing store to translate a user pointer.
func (pt *PageTable) Memory() *PhysicalMemory { return pt.mem }

func (pt *PageTable) pteAt(table PhysPageNum, idx uint64) PageTableEntry {
	return PageTableEntry{Bits: pt.mem.ReadUint64(table.Addr() + PhysAddr(idx*8))}
}

func (pt *PageTable) setPTEAt(table PhysPageNum, idx uint64, pte PageTableEntry) {
	pt.mem.WriteUint64(table.Addr()+PhysAddr(idx*8), pte.Bits)
}

// findPTECreate walks levels 2->1->0, allocating and installing a
// {V}-only child frame at any invalid interior slot, and returns the
// table and index holding the level-0 entry for vpn. Exhaustion while
// creating an interior table panics, matching the owning engine's
// "assume it won't OOM when mapping" contract (use TryMapUser for the
// fallible user-space variant).
func (pt *PageTable) findPTECreate(vpn VirtPageNum) (table PhysPageNum, idx uint64) {
	idxs := vpn.Indexes()
	table = pt.rootPPN
	for i, ix := range idxs {
		if i == 2 {
			return table, ix
		}
		pte := pt.pteAt(table, ix)
		if !pte.Valid() {
			child := pt.alloc.MustAlloc()
			pt.frames = append(pt.frames, child)
			pt.setPTEAt(table, ix, NewPTE(child.PPN, PTEV))
			table = child.PPN
		} else {
			table = pte.PPN()
		}
	}
	panic("mm: unreachable")
}

// findPTE walks read-only, returning ok=false if any interior entry along
// the path is invalid.
func (pt *PageTable) findPTE(vpn VirtPageNum) (table PhysPageNum, idx uint64, ok bool) {
	idxs := vpn.Indexes()
	table = pt.rootPPN
	for i, ix := range idxs {
		if i == 2 {
			return table, ix, true
		}
		pte := pt.pteAt(table, ix)
		if !pte.Valid() {
			return 0, 0, false
		}
		table = pte.PPN()
	}
	panic("mm: unreachable")
}

// Map inserts a leaf mapping. Precondition: no valid entry already exists
// at vpn — violating it panics, since it signals an invariant violation in
// the kernel itself rather than a recoverable user error. A borrowed view
// (FromToken) has no allocator and no frame ownership of its own, so
// mutating one is forbidden outright and panics before it can nil-deref
// the missing allocator or silently corrupt the table it borrows.
func (pt *PageTable) Map(vpn VirtPageNum, ppn PhysPageNum, flags PTEFlags) {
	if !pt.owned {
		panic("mm: Map on a borrowed page table view")
	}
	table, idx := pt.findPTECreate(vpn)
	if pt.pteAt(table, idx).Valid() {
		panic(fmt.Sprintf("mm: vpn %v is mapped before mapping", vpn))
	}
	pt.setPTEAt(table, idx, NewPTE(ppn, flags|PTEV))
}

// Unmap clears a leaf mapping. Precondition: the leaf is valid. Forbidden
// on a borrowed view, for the same reason as Map.
func (pt *PageTable) Unmap(vpn VirtPageNum) {
	if !pt.owned {
		panic("mm: Unmap on a borrowed page table view")
	}
	table, idx, ok := pt.findPTE(vpn)
	if !ok || !pt.pteAt(table, idx).Valid() {
		panic(fmt.Sprintf("mm: vpn %v is invalid before unmapping", vpn))
	}
	pt.setPTEAt(table, idx, PageTableEntry{})
}

// Translate walks read-only and returns the level-0 entry for vpn. found
// is false only when an interior entry along the path is invalid; a
// found, non-valid leaf is returned as-is (callers check Valid()
// themselves), matching the original engine's translate/find_pte split.
func (pt *PageTable) Translate(vpn VirtPageNum) (pte PageTableEntry, found bool) {
	table, idx, ok := pt.findPTE(vpn)
	if !ok {
		return PageTableEntry{}, false
	}
	return pt.pteAt(table, idx), true
}

// TryMapUser is the fallible, lazily-allocating user-space variant: it
// returns -1 if the leaf is already valid or if the allocator is
// exhausted at any level, and otherwise forces V|U on the leaf in
// addition to the caller-supplied flags.
func (pt *PageTable) TryMapUser(vpn VirtPageNum, flags PTEFlags) int {
	idxs := vpn.Indexes()
	table := pt.rootPPN
	for i, ix := range idxs {
		pte := pt.pteAt(table, ix)
		if i == 2 && pte.Valid() {
			return -1
		}
		if !pte.Valid() {
			frame, err := pt.alloc.Alloc()
			if err != nil {
				return -1
			}
			pt.frames = append(pt.frames, frame)
			if i == 2 {
				pt.setPTEAt(table, ix, NewPTE(frame.PPN, flags|PTEV|PTEU))
			} else {
				pt.setPTEAt(table, ix, NewPTE(frame.PPN, PTEV))
			}
			table = frame.PPN
		} else {
			table = pte.PPN()
		}
	}
	return 0
}

// TryUnmap clears a leaf if valid, returning -1 if it was not (including
// when an interior entry on the path is missing).
func (pt *PageTable) TryUnmap(vpn VirtPageNum) int {
	table, idx, ok := pt.findPTE(vpn)
	if !ok || !pt.pteAt(table, idx).Valid() {
		return -1
	}
	pt.setPTEAt(table, idx, PageTableEntry{})
	return 0
}
