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

// Package vmm provides the virtual-memory-area (VMA) data structure that
// sits underneath an mmap/munmap/mprotect implementation: a sorted,
// non-overlapping set of address ranges, each bound to a permission set and
// a pluggable MappingBackend, kept consistent with a caller-owned page
// table as areas are split, merged, shrunk, extended, or removed.
//
// Concurrency: every exported MemorySet method requires exclusive access to
// both the set and the page table passed to it. The package takes no locks
// of its own; callers serialize access the way the Linux mm_struct uses
// mmap_sem, or the way a kernel's own memory manager might split a
// mappingMu/activeMu pair around its vma and page-table state.
package vmm
