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

// Lazy is a backend for demand-paged mappings: Map installs nothing, and a
// real page-fault handler is expected to call PageTable.Install itself the
// first time a page in the range faults. Unmap and Protect are no-ops,
// since there is nothing installed in pt for an unfaulted range.
type Lazy struct{}

// Map installs nothing and returns an empty frame map, letting the first
// access to the range fault and populate it lazily.
func (b Lazy) Map(start vaddr.Addr, size uint64, flags vaddr.Flags, pt PageTable) (map[vaddr.Addr]vmm.FrameRef, error) {
	return map[vaddr.Addr]vmm.FrameRef{}, nil
}

// Unmap is a no-op: a Lazy range has nothing installed to remove unless a
// fault already populated it, and faulted pages are tracked by the area's
// frame table rather than by this backend.
func (b Lazy) Unmap(start vaddr.Addr, size uint64, pt PageTable) bool { return true }

// Protect is a no-op for the same reason Unmap is.
func (b Lazy) Protect(start vaddr.Addr, size uint64, newFlags vaddr.Flags, pt PageTable) bool {
	return true
}

// Clone returns a copy of b. Lazy carries no state.
func (b Lazy) Clone() Lazy { return b }
