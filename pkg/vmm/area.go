// Copyright 2026 The vmacore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vmm

import "github.com/gophervmm/vmacore/pkg/vmmlog"

// AreaStat summarizes a MemoryArea for reporting, e.g. a /proc/[pid]/maps
// line.
type AreaStat[A any] struct {
	Start A
	End   A
	Size  uint64
	RSS   uint64 // frames_count * 4096. TODO: account for large pages.
	Swap  uint64 // always 0: swap-out is layered above this core, if at all.
}

// MemoryArea is one contiguous virtual-address range with uniform flags and
// exactly one backend. It owns a page-indexed table of frame records
// covering its own range.
type MemoryArea[A Addr[A], F Flags, PT any, B MappingBackend[B, A, F, PT]] struct {
	vaRange Range[A]
	flags   F
	backend B

	// frames holds every frame this area currently owns, keyed by its
	// 4K-aligned virtual page address. Invariant: every key lies in vaRange.
	frames map[A]FrameRef

	// mmapTagged marks areas constructed via NewMmap. It carries no
	// behavioral difference from New; it exists so higher layers (e.g. a
	// /proc/[pid]/maps renderer) can tell anonymous mmap areas apart from
	// areas a loader or brk() set up directly.
	mmapTagged bool
}

// New constructs a MemoryArea without touching the page table.
//
// It panics if start+size overflows the address space: an overflowing
// bound is a programming error, not a runtime condition to report.
func New[A Addr[A], F Flags, PT any, B MappingBackend[B, A, F, PT]](start A, size uint64, flags F, backend B) *MemoryArea[A, F, PT, B] {
	end, ok := start.CheckedAdd(size)
	if !ok {
		panic("vmm: MemoryArea start+size overflows the address space")
	}
	return &MemoryArea[A, F, PT, B]{
		vaRange: Range[A]{Start: start, End: end},
		flags:   flags,
		backend: backend,
		frames:  make(map[A]FrameRef),
	}
}

// NewWithFrames constructs a MemoryArea that already owns frames, e.g. pages
// an early-boot allocator handed out before the area existed. A nil frames
// map is equivalent to New. Ownership of every FrameRef in frames transfers
// to the area.
//
// It panics if start+size overflows the address space.
func NewWithFrames[A Addr[A], F Flags, PT any, B MappingBackend[B, A, F, PT]](start A, size uint64, frames map[A]FrameRef, flags F, backend B) *MemoryArea[A, F, PT, B] {
	area := New[A, F, PT, B](start, size, flags, backend)
	for va, ref := range frames {
		area.frames[va] = ref
	}
	return area
}

// NewMmap is functionally equivalent to New; it only sets a marker used by
// higher layers to identify anonymous-mapping areas.
func NewMmap[A Addr[A], F Flags, PT any, B MappingBackend[B, A, F, PT]](start A, size uint64, flags F, backend B) *MemoryArea[A, F, PT, B] {
	area := New[A, F, PT, B](start, size, flags, backend)
	area.mmapTagged = true
	return area
}

// IsMmap reports whether this area was constructed via NewMmap, or was split
// or cloned from such an area.
func (a *MemoryArea[A, F, PT, B]) IsMmap() bool { return a.mmapTagged }

// VARange returns the area's virtual-address range.
func (a *MemoryArea[A, F, PT, B]) VARange() Range[A] { return a.vaRange }

// Start returns the area's start address.
func (a *MemoryArea[A, F, PT, B]) Start() A { return a.vaRange.Start }

// End returns the area's end address.
func (a *MemoryArea[A, F, PT, B]) End() A { return a.vaRange.End }

// Size returns the number of bytes covered by the area.
func (a *MemoryArea[A, F, PT, B]) Size() uint64 { return a.vaRange.Size() }

// Flags returns the area's current permission/attribute flags.
func (a *MemoryArea[A, F, PT, B]) Flags() F { return a.flags }

// Backend returns the area's mapping backend.
func (a *MemoryArea[A, F, PT, B]) Backend() B { return a.backend }

// setFlags changes the stored flags. It is the set's responsibility to call
// this after a successful ProtectArea, per MappingBackend's contract.
func (a *MemoryArea[A, F, PT, B]) setFlags(newFlags F) { a.flags = newFlags }

// Stat reports start, end, size, resident set size, and swap usage.
func (a *MemoryArea[A, F, PT, B]) Stat() AreaStat[A] {
	return AreaStat[A]{
		Start: a.Start(),
		End:   a.End(),
		Size:  a.Size(),
		RSS:   uint64(len(a.frames)) * 4096,
		Swap:  0,
	}
}

// MapArea maps the whole area's range in pt with flags, defaulting to the
// area's own flags when flags is nil. Newly installed frames are merged into
// the area's frame table.
func (a *MemoryArea[A, F, PT, B]) MapArea(pt PT, flags *F) error {
	use := a.flags
	if flags != nil {
		use = *flags
	}
	newFrames, err := a.backend.Map(a.Start(), a.Size(), use, pt)
	if err != nil {
		vmmlog.Warnf("map_area backend rejected map [%v, %v)", a.Start(), a.End())
		return wrapf(ErrBadState, "map_area", "backend.Map failed for [%v,%v)", a.Start(), a.End())
	}
	for va, ref := range newFrames {
		a.frames[va] = ref
	}
	return nil
}

// UnmapArea unmaps the whole area's range in pt and releases every frame the
// area owns.
func (a *MemoryArea[A, F, PT, B]) UnmapArea(pt PT) error {
	if !a.backend.Unmap(a.Start(), a.Size(), pt) {
		return wrapf(ErrBadState, "unmap_area", "backend.Unmap failed for [%v,%v)", a.Start(), a.End())
	}
	a.dropAllFrames()
	return nil
}

// ProtectArea updates the whole area's permissions in pt. The caller is
// responsible for calling setFlags-equivalent bookkeeping; within this
// package that's handled by MemorySet.
func (a *MemoryArea[A, F, PT, B]) ProtectArea(newFlags F, pt PT) error {
	if !a.backend.Protect(a.Start(), a.Size(), newFlags, pt) {
		return wrapf(ErrBadState, "protect_area", "backend.Protect failed for [%v,%v)", a.Start(), a.End())
	}
	return nil
}

// CloneWith returns a copy of the area with flags replaced by newFlags: the
// same range, a clone of the backend, and a clone of every frame reference.
// The copy shares the underlying frames with the receiver, so a fork-style
// caller gets an area whose pages stay alive until both address spaces have
// dropped them.
//
// CloneWith does not touch the page table; the caller maps the copy into the
// child's own page table.
func (a *MemoryArea[A, F, PT, B]) CloneWith(newFlags F) *MemoryArea[A, F, PT, B] {
	clone := &MemoryArea[A, F, PT, B]{
		vaRange:    a.vaRange,
		flags:      newFlags,
		backend:    a.backend.Clone(),
		frames:     make(map[A]FrameRef, len(a.frames)),
		mmapTagged: a.mmapTagged,
	}
	for va, ref := range a.frames {
		clone.frames[va] = ref.Clone()
	}
	return clone
}

// UnmapFrames unmaps [start, start+size) inside the area without changing
// the area's range, releasing the frames the area owns in that sub-range.
// The caller must ensure the sub-range lies within the area. Pages in the
// sub-range fault next time they're touched, so this is the primitive an
// madvise(MADV_DONTNEED)-style operation builds on.
func (a *MemoryArea[A, F, PT, B]) UnmapFrames(start A, size uint64, pt PT) error {
	if !a.backend.Unmap(start, size, pt) {
		return wrapf(ErrBadState, "unmap_frames", "backend.Unmap failed for [%v,+%#x)", start, size)
	}
	end := start.WrappingAdd(size)
	cut := Range[A]{Start: start, End: end}
	for va, ref := range a.frames {
		if cut.Contains(va) {
			ref.Drop()
			delete(a.frames, va)
		}
	}
	return nil
}

// ShrinkLeft moves the start of the area forward so the area has newSize
// bytes, unmapping the cut-off prefix via the backend. newSize must be
// strictly between 0 and the current size.
func (a *MemoryArea[A, F, PT, B]) ShrinkLeft(newSize uint64, pt PT) error {
	if !(newSize > 0 && newSize < a.Size()) {
		panic("vmm: ShrinkLeft requires 0 < newSize < size")
	}
	unmapSize := a.Size() - newSize
	if !a.backend.Unmap(a.Start(), unmapSize, pt) {
		return wrapf(ErrBadState, "shrink_left", "backend.Unmap failed for prefix of [%v,%v)", a.Start(), a.End())
	}
	a.vaRange.Start = a.vaRange.Start.WrappingAdd(unmapSize)
	a.retainFramesInRange()
	return nil
}

// ShrinkRight moves the end of the area backward so the area has newSize
// bytes, unmapping the cut-off suffix via the backend. newSize must be
// strictly between 0 and the current size.
func (a *MemoryArea[A, F, PT, B]) ShrinkRight(newSize uint64, pt PT) error {
	if !(newSize > 0 && newSize < a.Size()) {
		panic("vmm: ShrinkRight requires 0 < newSize < size")
	}
	unmapSize := a.Size() - newSize
	unmapStart := a.Start().WrappingAdd(newSize)
	if !a.backend.Unmap(unmapStart, unmapSize, pt) {
		return wrapf(ErrBadState, "shrink_right", "backend.Unmap failed for suffix of [%v,%v)", a.Start(), a.End())
	}
	a.vaRange.End = a.vaRange.End.WrappingSub(unmapSize)
	a.retainFramesInRange()
	return nil
}

// ExtendLeft grows the area backward to newSize bytes, mapping the added
// prefix via the backend with the area's current flags.
//
// This is privileged: the caller must ensure the extension does not overlap
// any other area in the set. newSize must be strictly greater than the
// current size. On backend failure the area's range is NOT rolled back,
// matching the documented no-rollback contract for extend operations.
func (a *MemoryArea[A, F, PT, B]) ExtendLeft(newSize uint64, pt PT) error {
	if !(newSize > 0 && newSize > a.Size()) {
		panic("vmm: ExtendLeft requires newSize > size")
	}
	mapSize := newSize - a.Size()
	mapStart := a.Start().WrappingSub(mapSize)
	newFrames, err := a.backend.Map(mapStart, mapSize, a.flags, pt)
	if err != nil {
		return wrapf(ErrBadState, "extend_left", "backend.Map failed for prefix before [%v,%v)", a.Start(), a.End())
	}
	for va, ref := range newFrames {
		a.frames[va] = ref
	}
	a.vaRange.Start = mapStart
	return nil
}

// ExtendRight grows the area forward to newSize bytes, mapping the added
// suffix via the backend with the area's current flags.
//
// Privileged and non-rolling-back in the same way as ExtendLeft.
func (a *MemoryArea[A, F, PT, B]) ExtendRight(newSize uint64, pt PT) error {
	if !(newSize > 0 && newSize > a.Size()) {
		panic("vmm: ExtendRight requires newSize > size")
	}
	mapSize := newSize - a.Size()
	mapStart := a.Start().WrappingAdd(a.Size())
	newFrames, err := a.backend.Map(mapStart, mapSize, a.flags, pt)
	if err != nil {
		return wrapf(ErrBadState, "extend_right", "backend.Map failed for suffix after [%v,%v)", a.Start(), a.End())
	}
	for va, ref := range newFrames {
		a.frames[va] = ref
	}
	a.vaRange.End = a.vaRange.End.WrappingAdd(mapSize)
	return nil
}

// Split splits the area at pos: the receiver shrinks to [Start, pos) and a
// new area [pos, End) is returned, with the same flags and a clone of the
// backend. Frames at or after pos move to the new area. Split returns nil if
// pos is not strictly inside the area.
//
// Split does not touch the page table: the caller's existing mappings for
// [pos, End) remain installed and now belong to the returned area.
func (a *MemoryArea[A, F, PT, B]) Split(pos A) *MemoryArea[A, F, PT, B] {
	if !(a.Start().Less(pos) && pos.Less(a.End())) {
		return nil
	}
	right := &MemoryArea[A, F, PT, B]{
		vaRange:    Range[A]{Start: pos, End: a.End()},
		flags:      a.flags,
		backend:    a.backend.Clone(),
		frames:     make(map[A]FrameRef),
		mmapTagged: a.mmapTagged,
	}
	for va, ref := range a.frames {
		if !va.Less(pos) {
			right.frames[va] = ref
			delete(a.frames, va)
		}
	}
	a.vaRange.End = pos
	return right
}

// InsertFrame inserts frame at the 4K-aligned virtual page address va,
// returning the previous frame at that address, if any. The caller is
// responsible for dropping the returned frame if it is no longer needed
// elsewhere.
func (a *MemoryArea[A, F, PT, B]) InsertFrame(va A, frame FrameRef) (FrameRef, bool) {
	if !va.IsAligned4K() {
		panic("vmm: InsertFrame requires a 4K-aligned address")
	}
	old, had := a.frames[va]
	a.frames[va] = frame
	return old, had
}

// FindFrame returns the frame at the 4K-aligned virtual page address va, if
// the area owns one there.
func (a *MemoryArea[A, F, PT, B]) FindFrame(va A) (FrameRef, bool) {
	if !va.IsAligned4K() {
		panic("vmm: FindFrame requires a 4K-aligned address")
	}
	f, ok := a.frames[va]
	return f, ok
}

// FramesCount returns the number of frames this area currently owns.
func (a *MemoryArea[A, F, PT, B]) FramesCount() int { return len(a.frames) }

// retainFramesInRange drops every frame outside the area's current range.
// It must be called after any operation that changes vaRange.
func (a *MemoryArea[A, F, PT, B]) retainFramesInRange() {
	for va, ref := range a.frames {
		if !a.vaRange.Contains(va) {
			ref.Drop()
			delete(a.frames, va)
		}
	}
}

// dropAllFrames releases every frame the area owns and empties its table.
func (a *MemoryArea[A, F, PT, B]) dropAllFrames() {
	for va, ref := range a.frames {
		ref.Drop()
		delete(a.frames, va)
	}
}
