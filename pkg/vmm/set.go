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

import (
	"github.com/google/btree"

	"github.com/gophervmm/vmacore/pkg/vmmconfig"
	"github.com/gophervmm/vmacore/pkg/vmmlog"
)

// areaItem is the value stored in a MemorySet's btree: the area's start
// address plus the area itself. Storing the key alongside the pointer lets
// Less compare without dereferencing into the area on every probe, and lets
// callers build a search pivot (an areaItem with area == nil) cheaply.
type areaItem[A Addr[A], F Flags, PT any, B MappingBackend[B, A, F, PT]] struct {
	start A
	area  *MemoryArea[A, F, PT, B]
}

func lessAreaItem[A Addr[A], F Flags, PT any, B MappingBackend[B, A, F, PT]](a, b areaItem[A, F, PT, B]) bool {
	return a.start.Less(b.start)
}

// MemorySet is an ordered, non-overlapping collection of MemoryAreas keyed
// by start address.
//
// Invariants, maintained on every successful public call: every entry's key
// equals its area's start address; no two areas overlap; no stored area is
// empty.
//
// MemorySet is not safe for concurrent use. Every mutating method requires
// exclusive access to both the set and the page table passed to it; callers
// serialize access externally (see package doc).
type MemorySet[A Addr[A], F Flags, PT any, B MappingBackend[B, A, F, PT]] struct {
	tree *btree.BTreeG[areaItem[A, F, PT, B]]
	cfg  *vmmconfig.Config
}

// NewSet creates an empty MemorySet with default tunables.
func NewSet[A Addr[A], F Flags, PT any, B MappingBackend[B, A, F, PT]]() *MemorySet[A, F, PT, B] {
	return NewSetWithConfig[A, F, PT, B](vmmconfig.Default())
}

// NewSetWithConfig creates an empty MemorySet governed by cfg. A nil cfg is
// treated as vmmconfig.Default().
func NewSetWithConfig[A Addr[A], F Flags, PT any, B MappingBackend[B, A, F, PT]](cfg *vmmconfig.Config) *MemorySet[A, F, PT, B] {
	if cfg == nil {
		cfg = vmmconfig.Default()
	}
	return &MemorySet[A, F, PT, B]{
		tree: btree.NewG(32, lessAreaItem[A, F, PT, B]),
		cfg:  cfg,
	}
}

// Len returns the number of areas in the set.
func (s *MemorySet[A, F, PT, B]) Len() int { return s.tree.Len() }

// IsEmpty reports whether the set has no areas.
func (s *MemorySet[A, F, PT, B]) IsEmpty() bool { return s.tree.Len() == 0 }

// Iter calls yield for every area in the set, in ascending start-address
// order, stopping early if yield returns false.
func (s *MemorySet[A, F, PT, B]) Iter(yield func(*MemoryArea[A, F, PT, B]) bool) {
	s.tree.Ascend(func(it areaItem[A, F, PT, B]) bool {
		return yield(it.area)
	})
}

// snapshot returns every area in ascending order. Mutating methods that need
// to inspect the whole set while also mutating it (Unmap's contained-area
// pass, Protect's full pass) iterate a snapshot rather than the live tree.
func (s *MemorySet[A, F, PT, B]) snapshot() []*MemoryArea[A, F, PT, B] {
	out := make([]*MemoryArea[A, F, PT, B], 0, s.tree.Len())
	s.tree.Ascend(func(it areaItem[A, F, PT, B]) bool {
		out = append(out, it.area)
		return true
	})
	return out
}

// predecessor returns the area with the largest start strictly less than
// addr, if any.
func (s *MemorySet[A, F, PT, B]) predecessor(addr A) (*MemoryArea[A, F, PT, B], bool) {
	var found *MemoryArea[A, F, PT, B]
	s.tree.DescendLessOrEqual(areaItem[A, F, PT, B]{start: addr}, func(it areaItem[A, F, PT, B]) bool {
		if it.start == addr {
			return true // keep descending past an exact match
		}
		found = it.area
		return false
	})
	return found, found != nil
}

// successor returns the area with the smallest start greater than or equal
// to addr, if any.
func (s *MemorySet[A, F, PT, B]) successor(addr A) (*MemoryArea[A, F, PT, B], bool) {
	var found *MemoryArea[A, F, PT, B]
	s.tree.AscendGreaterOrEqual(areaItem[A, F, PT, B]{start: addr}, func(it areaItem[A, F, PT, B]) bool {
		found = it.area
		return false
	})
	return found, found != nil
}

// atOrBefore returns the area with the largest start less than or equal to
// addr, if any.
func (s *MemorySet[A, F, PT, B]) atOrBefore(addr A) (*MemoryArea[A, F, PT, B], bool) {
	var found *MemoryArea[A, F, PT, B]
	s.tree.DescendLessOrEqual(areaItem[A, F, PT, B]{start: addr}, func(it areaItem[A, F, PT, B]) bool {
		found = it.area
		return false
	})
	return found, found != nil
}

func (s *MemorySet[A, F, PT, B]) insertArea(area *MemoryArea[A, F, PT, B]) {
	_, existed := s.tree.ReplaceOrInsert(areaItem[A, F, PT, B]{start: area.Start(), area: area})
	if existed {
		panic("vmm: duplicate area start address")
	}
}

func (s *MemorySet[A, F, PT, B]) removeAreaAt(start A) (*MemoryArea[A, F, PT, B], bool) {
	old, ok := s.tree.Delete(areaItem[A, F, PT, B]{start: start})
	if !ok {
		return nil, false
	}
	return old.area, true
}

// Find returns the area containing addr, if one exists. It takes the
// largest key at or before addr and checks containment: O(log n).
func (s *MemorySet[A, F, PT, B]) Find(addr A) (*MemoryArea[A, F, PT, B], bool) {
	area, ok := s.atOrBefore(addr)
	if !ok || !area.VARange().Contains(addr) {
		return nil, false
	}
	return area, true
}

// FindMut is an alias for Find: Go pointers already give mutable access, so
// a separate mutable lookup carries no extra capability. It exists so call
// sites can spell out that they intend to mutate the returned area.
func (s *MemorySet[A, F, PT, B]) FindMut(addr A) (*MemoryArea[A, F, PT, B], bool) {
	return s.Find(addr)
}

// Overlaps reports whether rng overlaps any area in the set. Only the
// immediate predecessor and successor of rng.Start need inspecting, since
// areas never overlap each other.
func (s *MemorySet[A, F, PT, B]) Overlaps(rng Range[A]) bool {
	if before, ok := s.predecessor(rng.Start); ok && before.VARange().Overlaps(rng) {
		return true
	}
	if after, ok := s.successor(rng.Start); ok && after.VARange().Overlaps(rng) {
		return true
	}
	return false
}

// FindFreeArea performs a deterministic, left-to-right first-fit search for
// size free bytes within limit, starting no earlier than
// max(hint, limit.Start). A zero-value hint is replaced by the set's
// configured DefaultSearchHint. It returns the start of the free range, or
// false if none exists. Overflow of `+ size` is treated as no-fit at that
// candidate.
func (s *MemorySet[A, F, PT, B]) FindFreeArea(hint A, size uint64, limit Range[A]) (A, bool) {
	var zeroAddr A
	if hint == zeroAddr && s.cfg.DefaultSearchHint != 0 {
		if withHint, ok := zeroAddr.CheckedAdd(s.cfg.DefaultSearchHint); ok {
			hint = withHint
		}
	}
	lastEnd := hint
	if limit.Start.Less(hint) {
		// lastEnd already >= limit.Start
	} else {
		lastEnd = limit.Start
	}

	if area, ok := s.predecessor(lastEnd); ok && lastEnd.Less(area.End()) {
		lastEnd = area.End()
	}

	fits := func(candidate A) (A, bool) {
		end, ok := candidate.CheckedAdd(size)
		return end, ok
	}

	var result A
	found := false
	s.tree.AscendGreaterOrEqual(areaItem[A, F, PT, B]{start: lastEnd}, func(it areaItem[A, F, PT, B]) bool {
		end, ok := fits(lastEnd)
		if ok && !it.start.Less(end) {
			// Later candidates only start further right, so a gap that
			// runs past limit.End ends the search.
			if !limit.End.Less(end) {
				result = lastEnd
				found = true
			}
			return false
		}
		lastEnd = it.area.End()
		return true
	})
	if found {
		return result, true
	}

	if end, ok := fits(lastEnd); ok && !limit.End.Less(end) {
		return lastEnd, true
	}
	var zero A
	return zero, false
}

// Insert adds area to the set without touching the page table. It rejects
// an empty range with InvalidParam. If area overlaps an existing area,
// unmapOverlap decides whether that's an AlreadyExists error or permitted
// (the caller is expected to have already unmapped the overlap themselves).
func (s *MemorySet[A, F, PT, B]) Insert(area *MemoryArea[A, F, PT, B], unmapOverlap bool) error {
	if area.VARange().IsEmpty() {
		vmmlog.Warnf("insert: area range is empty")
		return wrapf(ErrInvalidParam, "insert", "area range is empty")
	}
	if s.cfg.MaxAreas > 0 && s.tree.Len() >= s.cfg.MaxAreas {
		vmmlog.Warnf("insert: set already holds the configured maximum of %d areas", s.cfg.MaxAreas)
		return wrapf(ErrInvalidParam, "insert", "set already holds the configured maximum of %d areas", s.cfg.MaxAreas)
	}
	if s.Overlaps(area.VARange()) && !unmapOverlap {
		vmmlog.Warnf("insert: [%v,%v) overlaps an existing area", area.Start(), area.End())
		return wrapf(ErrAlreadyExists, "insert", "[%v,%v) overlaps an existing area", area.Start(), area.End())
	}
	s.insertArea(area)
	return nil
}

// Delete removes the area starting at vaddr without unmapping it. It is
// used after the caller has already unmapped the area itself.
func (s *MemorySet[A, F, PT, B]) Delete(vaddr A) {
	s.removeAreaAt(vaddr)
}

// Map adds a new mapping represented by area. If area overlaps an existing
// area, unmapOverlap selects whether the overlap is unmapped first or the
// call fails with AlreadyExists. On success, area.MapArea is invoked with
// overwriteFlags (nil meaning "use the area's own flags") before it is
// inserted.
func (s *MemorySet[A, F, PT, B]) Map(area *MemoryArea[A, F, PT, B], pt PT, unmapOverlap bool, overwriteFlags *F) error {
	if area.VARange().IsEmpty() {
		vmmlog.Warnf("map: area range is empty")
		return wrapf(ErrInvalidParam, "map", "area range is empty")
	}
	if s.cfg.MaxAreas > 0 && s.tree.Len() >= s.cfg.MaxAreas {
		vmmlog.Warnf("map: set already holds the configured maximum of %d areas", s.cfg.MaxAreas)
		return wrapf(ErrInvalidParam, "map", "set already holds the configured maximum of %d areas", s.cfg.MaxAreas)
	}
	if s.Overlaps(area.VARange()) {
		if unmapOverlap {
			if err := s.Unmap(area.Start(), area.Size(), pt); err != nil {
				return err
			}
		} else {
			vmmlog.Warnf("map: [%v,%v) overlaps an existing area", area.Start(), area.End())
			return wrapf(ErrAlreadyExists, "map", "[%v,%v) overlaps an existing area", area.Start(), area.End())
		}
	}
	if err := area.MapArea(pt, overwriteFlags); err != nil {
		vmmlog.Warnf("map: backend rejected [%v,%v)", area.Start(), area.End())
		return err
	}
	s.insertArea(area)
	return nil
}

// Unmap removes mappings within [start, start+size). Areas fully contained
// in the range are removed outright. An area straddling the left boundary
// is trimmed (and split, if the unmapped range is entirely inside it). An
// area straddling the right boundary is trimmed. A backend failure at any
// point returns BadState; the set may be left partially modified, as
// documented for multi-area operations.
func (s *MemorySet[A, F, PT, B]) Unmap(start A, size uint64, pt PT) error {
	end, ok := start.CheckedAdd(size)
	if !ok {
		vmmlog.Warnf("unmap: start+size overflows the address space")
		return wrapf(ErrInvalidParam, "unmap", "start+size overflows the address space")
	}
	rng := Range[A]{Start: start, End: end}
	if rng.IsEmpty() {
		return nil
	}

	// Phase 1: remove every area fully contained in the hole.
	for _, area := range s.snapshot() {
		if area.VARange().ContainedIn(rng) {
			if err := area.UnmapArea(pt); err != nil {
				vmmlog.Warnf("unmap: failed to unmap contained area [%v,%v)", area.Start(), area.End())
				return err
			}
			s.removeAreaAt(area.Start())
		}
	}

	// Phase 2: at most one area starts before `start`.
	if before, ok := s.predecessor(start); ok {
		beforeEnd := before.End()
		if beforeEnd.Less(start) || beforeEnd == start {
			// before.End() <= start: no intersection with the hole.
		} else {
			if !end.Less(beforeEnd) {
				// before.End() <= end: right-trim only.
				if err := before.ShrinkRight(start.SubAddr(before.Start()), pt); err != nil {
					vmmlog.Warnf("unmap: failed to shrink area starting at %v", before.Start())
					return err
				}
			} else {
				// The hole is entirely inside `before`: split, then trim.
				right := before.Split(end)
				if err := before.ShrinkRight(start.SubAddr(before.Start()), pt); err != nil {
					vmmlog.Warnf("unmap: failed to shrink area starting at %v", before.Start())
					return err
				}
				s.insertArea(right)
			}
		}
	}

	// Phase 3: at most one area starts in [start, end).
	if after, ok := s.successor(start); ok && after.Start().Less(end) {
		afterEnd := after.End()
		s.removeAreaAt(after.Start())
		if err := after.ShrinkLeft(afterEnd.SubAddr(end), pt); err != nil {
			vmmlog.Warnf("unmap: failed to shrink area starting at %v", after.Start())
			return err
		}
		s.insertArea(after)
	}

	return nil
}

// AdjustArea resizes the area currently starting at areaAddr so its range
// becomes [newStart, newEnd). Both bounds must be aligned to the set's
// configured page size (4096 if unset) and newStart < newEnd. Each side is
// independently extended or shrunk by the minimal amount needed to reach the
// target; the caller is responsible for ensuring an extension does not
// collide with a neighboring area.
func (s *MemorySet[A, F, PT, B]) AdjustArea(areaAddr, newStart, newEnd A, pt PT) error {
	area, ok := s.tree.Get(areaItem[A, F, PT, B]{start: areaAddr})
	if !ok {
		panic("vmm: AdjustArea called with an address that names no area")
	}
	pageSize := s.cfg.PageSize
	if pageSize == 0 {
		pageSize = 4096
	}
	if !newStart.IsAlignedTo(pageSize) || !newEnd.IsAlignedTo(pageSize) {
		panic("vmm: AdjustArea requires bounds aligned to the configured page size")
	}
	if !newStart.Less(newEnd) {
		vmmlog.Warnf("adjust_area: new_start must be before new_end")
		return wrapf(ErrInvalidParam, "adjust_area", "new_start must be before new_end")
	}

	a := area.area
	curStart, curEnd := a.Start(), a.End()

	if newStart != curStart {
		if newStart.Less(curStart) {
			if err := a.ExtendLeft(curEnd.SubAddr(newStart), pt); err != nil {
				vmmlog.Warnf("adjust_area: failed to extend area starting at %v leftward", areaAddr)
				return err
			}
		} else {
			if err := a.ShrinkLeft(curEnd.SubAddr(newStart), pt); err != nil {
				vmmlog.Warnf("adjust_area: failed to shrink area starting at %v from the left", areaAddr)
				return err
			}
		}
	}

	// The left side may already have moved the start; size the right side
	// against the area's current start.
	if newEnd != curEnd {
		if curEnd.Less(newEnd) {
			if err := a.ExtendRight(newEnd.SubAddr(a.Start()), pt); err != nil {
				vmmlog.Warnf("adjust_area: failed to extend area starting at %v rightward", areaAddr)
				return err
			}
		} else {
			if err := a.ShrinkRight(newEnd.SubAddr(a.Start()), pt); err != nil {
				vmmlog.Warnf("adjust_area: failed to shrink area starting at %v from the right", areaAddr)
				return err
			}
		}
	}

	// The area's key may have moved (its start address changed); re-key it.
	if a.Start() != areaAddr {
		s.removeAreaAt(areaAddr)
		s.insertArea(a)
	}
	return nil
}

// Clear unmaps and removes every area, in key order.
func (s *MemorySet[A, F, PT, B]) Clear(pt PT) error {
	for _, area := range s.snapshot() {
		if err := area.UnmapArea(pt); err != nil {
			vmmlog.Warnf("clear: failed to unmap area starting at %v", area.Start())
			return err
		}
	}
	s.tree = btree.NewG(32, lessAreaItem[A, F, PT, B])
	return nil
}

// Protect changes the flags of mappings within [start, start+size) via
// updateFlags, which maps each area's current flags to its new flags, or
// returns false for "no change". Areas are classified against the protect
// range by the six possible overlap cases and split as needed;
// iteration stops once an area starts at or after the end of the range.
func (s *MemorySet[A, F, PT, B]) Protect(start A, size uint64, updateFlags func(F) (F, bool), pt PT) error {
	end, ok := start.CheckedAdd(size)
	if !ok {
		vmmlog.Warnf("protect: start+size overflows the address space")
		return wrapf(ErrInvalidParam, "protect", "start+size overflows the address space")
	}
	var toInsert []*MemoryArea[A, F, PT, B]
	for _, area := range s.snapshot() {
		areaStart, areaEnd := area.Start(), area.End()
		if !areaStart.Less(end) {
			break // [ prot ] [ area ] or beyond: nothing left to do.
		}
		newFlags, change := updateFlags(area.Flags())
		if !change {
			continue
		}
		if areaEnd.Less(start) || areaEnd == start {
			//          [ prot ]
			// [ area ]           (area ends at or before the range start)
			continue
		}
		switch {
		case !areaStart.Less(start) && !end.Less(areaEnd):
			// [   prot   ]
			//   [ area ]      area fully inside the hole.
			if err := area.ProtectArea(newFlags, pt); err != nil {
				vmmlog.Warnf("protect: failed to update flags on area starting at %v", areaStart)
				return err
			}
			area.setFlags(newFlags)
		case areaStart.Less(start) && end.Less(areaEnd):
			//        [ prot ]
			// [ left | area | right ]   hole strictly inside area: 3-way split.
			right := area.Split(end)
			middle := area.Split(start)
			if err := middle.ProtectArea(newFlags, pt); err != nil {
				vmmlog.Warnf("protect: failed to update flags on area starting at %v", middle.Start())
				return err
			}
			middle.setFlags(newFlags)
			toInsert = append(toInsert, right, middle)
		case end.Less(areaEnd):
			// [    prot ]
			//   [  area | right ]   area straddles the right edge of the hole.
			right := area.Split(end)
			if err := area.ProtectArea(newFlags, pt); err != nil {
				vmmlog.Warnf("protect: failed to update flags on area starting at %v", areaStart)
				return err
			}
			area.setFlags(newFlags)
			toInsert = append(toInsert, right)
		default:
			//        [ prot    ]
			// [ left |  area ]      area straddles the left edge of the hole.
			right := area.Split(start)
			if err := right.ProtectArea(newFlags, pt); err != nil {
				vmmlog.Warnf("protect: failed to update flags on area starting at %v", right.Start())
				return err
			}
			right.setFlags(newFlags)
			toInsert = append(toInsert, right)
		}
	}
	for _, area := range toInsert {
		s.insertArea(area)
	}
	return nil
}

// FindFrame locates the area containing vaddr and returns the frame it owns
// there, if any.
func (s *MemorySet[A, F, PT, B]) FindFrame(vaddr A) (FrameRef, bool) {
	if area, ok := s.Find(vaddr); ok {
		return area.FindFrame(vaddr)
	}
	return FrameRef{}, false
}

// InsertFrame locates the area containing vaddr and inserts frame into its
// frame table, returning any frame it replaced.
func (s *MemorySet[A, F, PT, B]) InsertFrame(vaddr A, frame FrameRef) (FrameRef, bool) {
	if area, ok := s.FindMut(vaddr); ok {
		return area.InsertFrame(vaddr, frame)
	}
	return FrameRef{}, false
}

// RemapFrame replaces the frame at vaddr with newFrame. It panics if no
// frame exists there: remapping an unpopulated page is an invariant
// violation in the caller, not a recoverable condition.
func (s *MemorySet[A, F, PT, B]) RemapFrame(vaddr A, newFrame FrameRef) {
	if _, had := s.InsertFrame(vaddr, newFrame); !had {
		panic("vmm: RemapFrame called on an address with no existing frame")
	}
}
