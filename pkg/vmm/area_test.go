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

package vmm_test

import (
	"errors"
	"testing"

	"github.com/gophervmm/vmacore/pkg/vaddr"
	"github.com/gophervmm/vmacore/pkg/vmm"
)

func newArea(t *testing.T, start uint64, size uint64, flags vaddr.Flags) (*vmm.MemoryArea[vaddr.Addr, vaddr.Flags, *noopPT, trackingBackend], trackingBackend) {
	t.Helper()
	b := newTrackingBackend()
	return vmm.New[vaddr.Addr, vaddr.Flags, *noopPT, trackingBackend](vaddr.Addr(start), size, flags, b), b
}

func TestAreaMapAndUnmap(t *testing.T) {
	area, _ := newArea(t, 0x1000, 0x3000, vaddr.FlagRead|vaddr.FlagWrite)
	pt := &noopPT{}

	if err := area.MapArea(pt, nil); err != nil {
		t.Fatalf("MapArea: %v", err)
	}
	if got := area.FramesCount(); got != 3 {
		t.Fatalf("FramesCount after map = %d, want 3", got)
	}
	if err := area.UnmapArea(pt); err != nil {
		t.Fatalf("UnmapArea: %v", err)
	}
	if got := area.FramesCount(); got != 0 {
		t.Fatalf("FramesCount after unmap = %d, want 0", got)
	}
}

func TestAreaShrinkRightDropsFrames(t *testing.T) {
	// Area [0x1000, 0x4000) mapped (3 pages); ShrinkRight(0x1000) drops
	// frames outside the new [0x1000, 0x2000) range.
	area, _ := newArea(t, 0x1000, 0x3000, vaddr.FlagRead|vaddr.FlagWrite)
	pt := &noopPT{}
	if err := area.MapArea(pt, nil); err != nil {
		t.Fatalf("MapArea: %v", err)
	}
	if got := area.FramesCount(); got != 3 {
		t.Fatalf("FramesCount = %d, want 3", got)
	}

	if err := area.ShrinkRight(0x1000, pt); err != nil {
		t.Fatalf("ShrinkRight: %v", err)
	}
	if got := area.FramesCount(); got != 1 {
		t.Fatalf("FramesCount after shrink = %d, want 1", got)
	}
	if area.End() != vaddr.Addr(0x2000) {
		t.Fatalf("End = %v, want 0x2000", area.End())
	}
}

func TestAreaSplitMovesFrames(t *testing.T) {
	area, _ := newArea(t, 0x1000, 0x4000, vaddr.FlagRead)
	pt := &noopPT{}
	if err := area.MapArea(pt, nil); err != nil {
		t.Fatalf("MapArea: %v", err)
	}

	right := area.Split(vaddr.Addr(0x3000))
	if right == nil {
		t.Fatal("Split returned nil")
	}
	if area.Start() != vaddr.Addr(0x1000) || area.End() != vaddr.Addr(0x3000) {
		t.Fatalf("left range = [%v,%v)", area.Start(), area.End())
	}
	if right.Start() != vaddr.Addr(0x3000) || right.End() != vaddr.Addr(0x5000) {
		t.Fatalf("right range = [%v,%v)", right.Start(), right.End())
	}
	if area.FramesCount() != 2 || right.FramesCount() != 2 {
		t.Fatalf("frame split = %d/%d, want 2/2", area.FramesCount(), right.FramesCount())
	}
}

func TestAreaSplitOutsideRangeReturnsNil(t *testing.T) {
	area, _ := newArea(t, 0x1000, 0x1000, vaddr.FlagRead)
	if got := area.Split(vaddr.Addr(0x1000)); got != nil {
		t.Fatal("Split at Start should return nil")
	}
	if got := area.Split(vaddr.Addr(0x2000)); got != nil {
		t.Fatal("Split at End should return nil")
	}
}

func TestAreaMapBackendRejectionIsBadState(t *testing.T) {
	area := vmm.New[vaddr.Addr, vaddr.Flags, *noopPT, rejectingBackend](vaddr.Addr(0x1000), 0x1000, vaddr.FlagRead, rejectingBackend{})
	pt := &noopPT{}
	err := area.MapArea(pt, nil)
	if !errors.Is(err, vmm.ErrBadState) {
		t.Fatalf("MapArea error = %v, want ErrBadState", err)
	}
}

func TestNewWithFramesTransfersOwnership(t *testing.T) {
	ref := vmm.NewFrameRef(vaddr.AllocPage())
	frames := map[vaddr.Addr]vmm.FrameRef{vaddr.Addr(0x1000): ref}
	area := vmm.NewWithFrames[vaddr.Addr, vaddr.Flags, *noopPT, trackingBackend](vaddr.Addr(0x1000), 0x2000, frames, vaddr.FlagRead, newTrackingBackend())

	if got := area.FramesCount(); got != 1 {
		t.Fatalf("FramesCount = %d, want 1", got)
	}
	pt := &noopPT{}
	if err := area.UnmapArea(pt); err != nil {
		t.Fatalf("UnmapArea: %v", err)
	}
	if ref.Tracker().Bytes() != nil {
		t.Fatal("frame should have been released with the area")
	}
}

func TestCloneWithSharesFrames(t *testing.T) {
	pt := &noopPT{}
	area, _ := newArea(t, 0x1000, 0x2000, vaddr.FlagRead|vaddr.FlagWrite)
	if err := area.MapArea(pt, nil); err != nil {
		t.Fatalf("MapArea: %v", err)
	}

	child := area.CloneWith(vaddr.FlagRead)
	if child.Flags() != vaddr.FlagRead {
		t.Fatalf("child flags = %v, want r", child.Flags())
	}
	if child.Start() != area.Start() || child.End() != area.End() {
		t.Fatalf("child range = [%v,%v), want [%v,%v)", child.Start(), child.End(), area.Start(), area.End())
	}
	if child.FramesCount() != 2 {
		t.Fatalf("child FramesCount = %d, want 2", child.FramesCount())
	}

	ref, _ := child.FindFrame(vaddr.Addr(0x1000))
	if got := ref.RefCount(); got != 2 {
		t.Fatalf("shared frame RefCount = %d, want 2", got)
	}

	// The parent's teardown must not release pages the child still uses.
	if err := area.UnmapArea(pt); err != nil {
		t.Fatalf("UnmapArea: %v", err)
	}
	if ref.Tracker().Bytes() == nil {
		t.Fatal("frame released while the child area still references it")
	}
	if err := child.UnmapArea(pt); err != nil {
		t.Fatalf("UnmapArea: %v", err)
	}
	if ref.Tracker().Bytes() != nil {
		t.Fatal("frame not released after the last area dropped it")
	}
}

func TestUnmapFramesReleasesSubRange(t *testing.T) {
	pt := &noopPT{}
	area, b := newArea(t, 0x1000, 0x3000, vaddr.FlagRead)
	if err := area.MapArea(pt, nil); err != nil {
		t.Fatalf("MapArea: %v", err)
	}
	*b.log = nil

	if err := area.UnmapFrames(vaddr.Addr(0x2000), 0x1000, pt); err != nil {
		t.Fatalf("UnmapFrames: %v", err)
	}
	if area.Start() != vaddr.Addr(0x1000) || area.End() != vaddr.Addr(0x4000) {
		t.Fatalf("UnmapFrames changed the range to [%v,%v)", area.Start(), area.End())
	}
	if got := area.FramesCount(); got != 2 {
		t.Fatalf("FramesCount = %d, want 2", got)
	}
	if _, ok := area.FindFrame(vaddr.Addr(0x2000)); ok {
		t.Fatal("frame at 0x2000 should be gone")
	}
	if len(*b.log) != 1 || (*b.log)[0].Op != "unmap" || (*b.log)[0].Start != vaddr.Addr(0x2000) {
		t.Fatalf("backend log = %+v, want one unmap at 0x2000", *b.log)
	}
}

func TestNewPanicsOnOverflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New did not panic on start+size overflow")
		}
	}()
	vmm.New[vaddr.Addr, vaddr.Flags, *noopPT, trackingBackend](vaddr.Addr(^uint64(0)-0x100), 0x1000, vaddr.FlagRead, newTrackingBackend())
}

func TestNewMmapIsTagged(t *testing.T) {
	area := vmm.NewMmap[vaddr.Addr, vaddr.Flags, *noopPT, trackingBackend](vaddr.Addr(0x1000), 0x1000, vaddr.FlagRead, newTrackingBackend())
	if !area.IsMmap() {
		t.Fatal("NewMmap area should report IsMmap() == true")
	}
	plain, _ := newArea(t, 0x1000, 0x1000, vaddr.FlagRead)
	if plain.IsMmap() {
		t.Fatal("New area should report IsMmap() == false")
	}
}
