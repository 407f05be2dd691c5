package mm

import (
	"errors"
	"fmt"
)

// ErrFrameExhausted is returned by Alloc when no physical frame remains.
var ErrFrameExhausted = errors.New("mm: physical frame allocator exhausted")

// PhysicalMemory is the flat byte array backing the simulated machine's
// RAM. Every FrameTracker's bytes live inside it; PageTable walks read and
// write PTEs through it rather than through host pointers, so the whole
// subsystem can run (and be tested) without real hardware.
type PhysicalMemory struct {
	bytes      []byte
	frameCount int
}

// NewPhysicalMemory allocates frameCount frames worth of simulated RAM.
func NewPhysicalMemory(frameCount int) *PhysicalMemory {
	return &PhysicalMemory{
		bytes:      make([]byte, frameCount*PageSize),
		frameCount: frameCount,
	}
}

// FrameCount returns the total number of frames backing this memory.
func (m *PhysicalMemory) FrameCount() int { return m.frameCount }

// Bytes returns the byte slice covering one frame.
func (m *PhysicalMemory) Bytes(ppn PhysPageNum) []byte {
	start := uint64(ppn) * PageSize
	return m.bytes[start : start+PageSize]
}

// ReadUint64 reads a little-endian 64-bit word at a physical address.
func (m *PhysicalMemory) ReadUint64(pa PhysAddr) uint64 {
	b := m.bytes[pa:]
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

// WriteUint64 writes a little-endian 64-bit word at a physical address.
func (m *PhysicalMemory) WriteUint64(pa PhysAddr, v uint64) {
	b := m.bytes[pa:]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// zero clears one frame.
func (m *PhysicalMemory) zero(ppn PhysPageNum) {
	b := m.Bytes(ppn)
	for i := range b {
		b[i] = 0
	}
}

// FrameAllocator hands out and reclaims fixed-size physical frames.
// Algorithm: a high-water mark counting up from frame 0 plus a free list
// of recycled frames; Dealloc pushes onto the free list, Alloc pops it
// first and only bumps the mark once the list is empty. A frame returned to the pool is
// never reissued before the next Alloc call.
type FrameAllocator struct {
	mem      *PhysicalMemory
	current  int // next never-yet-issued frame index
	end      int // exclusive upper bound (= mem.frameCount)
	recycled []int
}

// NewFrameAllocator creates an allocator over the full span of mem.
func NewFrameAllocator(mem *PhysicalMemory) *FrameAllocator {
	return &FrameAllocator{mem: mem, current: 0, end: mem.frameCount}
}

// FrameTracker is scoped ownership of one physical frame. The frame is
// zero-filled at acquisition time. Release returns it to the allocator;
// callers must not use the tracker afterward (Go has no destructors, so
// unlike the Rust original this is not automatic — AddressSpace calls
// Release explicitly when it removes an area or shrinks the heap; a
// PageTable never releases the frames it holds).
type FrameTracker struct {
	PPN   PhysPageNum
	alloc *FrameAllocator
}

// Bytes returns the frame's backing bytes.
func (f *FrameTracker) Bytes() []byte { return f.alloc.mem.Bytes(f.PPN) }

// Release returns the frame to its allocator's free list.
func (f *FrameTracker) Release() {
	f.alloc.Dealloc(f.PPN)
}

// Alloc returns a zero-filled frame, or ErrFrameExhausted if none remain.
func (a *FrameAllocator) Alloc() (*FrameTracker, error) {
	var ppn PhysPageNum
	if n := len(a.recycled); n > 0 {
		ppn = PhysPageNum(a.recycled[n-1])
		a.recycled = a.recycled[:n-1]
	} else if a.current < a.end {
		ppn = PhysPageNum(a.current)
		a.current++
	} else {
		return nil, ErrFrameExhausted
	}
	a.mem.zero(ppn)
	return &FrameTracker{PPN: ppn, alloc: a}, nil
}

// MustAlloc allocates a frame and panics on exhaustion. Reserved for
// kernel image bring-up, where frame exhaustion is an unrecoverable boot
// failure rather than a caller-visible error (spec: "during initial
// kernel image construction, exhaustion is fatal").
func (a *FrameAllocator) MustAlloc() *FrameTracker {
	f, err := a.Alloc()
	if err != nil {
		panic(fmt.Sprintf("mm: frame allocator exhausted during bring-up: %v", err))
	}
	return f
}

// Dealloc returns ppn to the free list. It does not validate that ppn was
// actually on loan; double-free is a caller bug.
func (a *FrameAllocator) Dealloc(ppn PhysPageNum) {
	a.recycled = append(a.recycled, int(ppn))
}
