package mm

// UserByteBuffer is a sequence of physical byte slices that together cover
// a contiguous user virtual-address range, even when that range straddles
// page boundaries and the backing physical frames are not contiguous.
type UserByteBuffer [][]byte

// TranslateUserBuffer covers [ptr, ptr+length) with physical byte slices.
// It floors the start address to its VPN, translates that VPN, clips to
// the next page boundary (or to end if sooner), emits the slice, and
// advances — so callers never need physically contiguous user memory.
func TranslateUserBuffer(mem *PhysicalMemory, token uint64, ptr uint64, length uint64) UserByteBuffer {
	pt := FromToken(mem, token)
	start := ptr
	end := ptr + length
	var out UserByteBuffer
	for start < end {
		startVA := VirtAddr(start)
		vpn := startVA.Floor()
		pte, ok := pt.Translate(vpn)
		if !ok || !pte.Valid() {
			panic("mm: user buffer covers an unmapped page")
		}
		ppn := pte.PPN()
		endVA := vpn.Addr().NextPage()
		if uint64(endVA) > end {
			endVA = VirtAddr(end)
		}
		frameBytes := mem.Bytes(ppn)
		startOff := startVA.PageOffset()
		var endOff uint64
		if endVA.PageOffset() == 0 {
			endOff = PageSize
		} else {
			endOff = endVA.PageOffset()
		}
		out = append(out, frameBytes[startOff:endOff])
		start = uint64(endVA)
	}
	return out
}

// TranslatePhysAddr resolves a user virtual address to the physical
// address inside the frame it maps to — used by syscall handlers that
// write a single in-bounds field (callers straddling a page boundary must
// use TranslateUserBuffer's byte-slice sequence instead; a naive single
// write silently corrupts memory across the straddle).
func TranslatePhysAddr(mem *PhysicalMemory, token uint64, ptr uint64) PhysAddr {
	pt := FromToken(mem, token)
	va := VirtAddr(ptr)
	pte, ok := pt.Translate(va.Floor())
	if !ok || !pte.Valid() {
		panic("mm: translate of unmapped user pointer")
	}
	return PhysAddr(uint64(pte.PPN().Addr()) + va.PageOffset())
}

// WriteUserStraddling writes data into the user virtual range starting at
// ptr, byte by byte across however many physical pages it straddles. This
// is the mandatory path for any fixed-size struct write where the pointer
// offset is not known to be page-aligned (TimeVal, TaskInfo): a single
// PhysAddr write would silently corrupt memory if the struct's tail lands
// on the next physical frame.
func WriteUserStraddling(mem *PhysicalMemory, token uint64, ptr uint64, data []byte) {
	slices := TranslateUserBuffer(mem, token, ptr, uint64(len(data)))
	off := 0
	for _, s := range slices {
		n := copy(s, data[off:])
		off += n
	}
}

// pagesFor returns ceil(length / PageSize).
func pagesFor(length uint64) uint64 {
	return (length + PageSize - 1) / PageSize
}

// MapWithLen maps ceil(len/PageSize) consecutive user pages starting at
// start with the given PTE flags (V|U are forced on by TryMapUser). It
// does not roll back partial mappings on failure: if any page fails, the
// caller's address space is left with whatever prefix succeeded, and the
// caller must unmap that prefix before retrying. This mirrors the reference
// engine's documented behavior rather than fixing it.
func MapWithLen(pt *PageTable, start VirtAddr, length uint64, flags PTEFlags) int {
	if length == 0 {
		return 0
	}
	pages := pagesFor(length)
	for i := uint64(0); i < pages; i++ {
		va := VirtAddr(uint64(start) + i*PageSize)
		if pt.TryMapUser(va.Floor(), flags) == -1 {
			return -1
		}
	}
	return 0
}

// UnmapWithLen is MapWithLen's symmetric counterpart.
func UnmapWithLen(pt *PageTable, start VirtAddr, length uint64) int {
	if length == 0 {
		return 0
	}
	pages := pagesFor(length)
	for i := uint64(0); i < pages; i++ {
		va := VirtAddr(uint64(start) + i*PageSize)
		if pt.TryUnmap(va.Floor()) == -1 {
			return -1
		}
	}
	return 0
}
