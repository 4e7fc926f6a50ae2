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

// Package backend provides two reference vmm.MappingBackend
// implementations, Linear and Lazy, over a minimal PageTable capability
// interface. A real kernel's page-table walker is an external collaborator;
// PageTable exists so these two backends, and the tests that exercise
// pkg/vmm through them, have something concrete to install entries into.
package backend

import "github.com/gophervmm/vmacore/pkg/vaddr"

// PageTable is the capability Linear and Lazy require of the page table
// they're handed. A real implementation walks actual page-table hardware
// structures; callers embedding this core into a kernel supply their own.
type PageTable interface {
	// Install maps the virtual page va to the physical address phys with
	// the given PTE bits (see vaddr.Flags.PTEBits), reporting false if the
	// page table rejects the request (e.g. a filled walker, an
	// architectural constraint violation).
	Install(va vaddr.Addr, phys uint64, pteBits uint64) bool

	// Remove unmaps the virtual page va, reporting whether an entry was
	// present.
	Remove(va vaddr.Addr) bool

	// UpdateFlags changes the PTE bits for an already-installed virtual
	// page, reporting false if no entry exists there.
	UpdateFlags(va vaddr.Addr, pteBits uint64) bool
}
