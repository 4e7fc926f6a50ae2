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
	"github.com/gophervmm/vmacore/pkg/vaddr"
	"github.com/gophervmm/vmacore/pkg/vmm"
)

// noopPT stands in for a real page table in tests that only need to
// observe backend calls, not actual page-table state.
type noopPT struct{}

// call records one backend invocation, for assertions of the form "the
// backend saw exactly one unmap(0x2000, 0x2000)".
type call struct {
	Op    string
	Start vaddr.Addr
	Size  uint64
}

// trackingBackend is a vmm.MappingBackend that logs every Map/Unmap/Protect
// call it receives into a shared log, so a test can assert on exactly what
// the set asked the backend to do, including after a Split hands a piece of
// the original area to a cloned backend.
type trackingBackend struct {
	log *[]call
}

// newTrackingBackend returns a trackingBackend with a fresh, empty log.
func newTrackingBackend() trackingBackend {
	return trackingBackend{log: &[]call{}}
}

func (b trackingBackend) Map(start vaddr.Addr, size uint64, flags vaddr.Flags, pt *noopPT) (map[vaddr.Addr]vmm.FrameRef, error) {
	*b.log = append(*b.log, call{Op: "map", Start: start, Size: size})
	frames := make(map[vaddr.Addr]vmm.FrameRef)
	for off := uint64(0); off < size; off += vaddr.PageSize4K {
		va := start.WrappingAdd(off)
		frames[va] = vmm.NewFrameRef(vaddr.AllocPage())
	}
	return frames, nil
}

func (b trackingBackend) Unmap(start vaddr.Addr, size uint64, pt *noopPT) bool {
	*b.log = append(*b.log, call{Op: "unmap", Start: start, Size: size})
	return true
}

func (b trackingBackend) Protect(start vaddr.Addr, size uint64, newFlags vaddr.Flags, pt *noopPT) bool {
	*b.log = append(*b.log, call{Op: "protect", Start: start, Size: size})
	return true
}

// Clone shares the same log, so calls the backend makes after an area
// splits are still visible to the original test's assertions.
func (b trackingBackend) Clone() trackingBackend { return b }

// rejectingBackend always fails Map, to exercise BadState propagation.
type rejectingBackend struct{}

func (rejectingBackend) Map(start vaddr.Addr, size uint64, flags vaddr.Flags, pt *noopPT) (map[vaddr.Addr]vmm.FrameRef, error) {
	return nil, vmm.ErrBadState
}
func (rejectingBackend) Unmap(start vaddr.Addr, size uint64, pt *noopPT) bool  { return false }
func (rejectingBackend) Protect(start vaddr.Addr, size uint64, f vaddr.Flags, pt *noopPT) bool {
	return false
}
func (rejectingBackend) Clone() rejectingBackend { return rejectingBackend{} }
