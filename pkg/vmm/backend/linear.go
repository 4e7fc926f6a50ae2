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

package backend

import (
	"github.com/gophervmm/vmacore/pkg/vaddr"
	"github.com/gophervmm/vmacore/pkg/vmm"
)

// Linear is a backend for mappings at a fixed virtual-to-physical offset,
// e.g. a kernel's direct physical map. Map installs every page in the
// range eagerly; the physical addresses involved are never separately
// allocated or released, so the FrameRefs it returns wrap untracked
// trackers.
type Linear struct {
	// Offset is added to a virtual address to get its physical address.
	Offset uint64
}

// Map installs every 4K page in [start, start+size) at start+Offset.
func (b Linear) Map(start vaddr.Addr, size uint64, flags vaddr.Flags, pt PageTable) (map[vaddr.Addr]vmm.FrameRef, error) {
	frames := make(map[vaddr.Addr]vmm.FrameRef)
	bits := flags.PTEBits()
	for off := uint64(0); off < size; off += vaddr.PageSize4K {
		va := start.WrappingAdd(off)
		phys := va.Uint64() + b.Offset
		if !pt.Install(va, phys, bits) {
			return frames, vmm.ErrBadState
		}
		frames[va] = vmm.NewFrameRef(vaddr.NoTrackPage(phys, make([]byte, vaddr.PageSize4K)))
	}
	return frames, nil
}

// Unmap removes every 4K page in [start, start+size) from pt.
func (b Linear) Unmap(start vaddr.Addr, size uint64, pt PageTable) bool {
	for off := uint64(0); off < size; off += vaddr.PageSize4K {
		pt.Remove(start.WrappingAdd(off))
	}
	return true
}

// Protect updates the PTE bits for every 4K page in [start, start+size).
func (b Linear) Protect(start vaddr.Addr, size uint64, newFlags vaddr.Flags, pt PageTable) bool {
	bits := newFlags.PTEBits()
	ok := true
	for off := uint64(0); off < size; off += vaddr.PageSize4K {
		if !pt.UpdateFlags(start.WrappingAdd(off), bits) {
			ok = false
		}
	}
	return ok
}

// Clone returns a copy of b. Linear has no mutable state, so this is a
// plain value copy.
func (b Linear) Clone() Linear { return b }
