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

// MappingBackend is the per-area strategy for touching the page table. It is
// always invoked with a sub-range fully inside the owning area.
//
// B is the concrete backend type itself; constraining it this way lets Map's
// return value and Clone's return value refer to the caller's own type
// instead of erasing it to an interface, the same curiously-recurring
// pattern used for Addr[T] in constraints.go.
type MappingBackend[B any, A Addr[A], F Flags, PT any] interface {
	// Map installs mappings for [start, start+size) with flags in pt, and
	// returns the set of frames it newly installed, keyed by page address.
	// It covers only the requested sub-range.
	Map(start A, size uint64, flags F, pt PT) (map[A]FrameRef, error)

	// Unmap removes mappings for [start, start+size) from pt. It must not
	// release any frames: the owning MemoryArea's frame table is the
	// authoritative owner and centralizes every release.
	Unmap(start A, size uint64, pt PT) bool

	// Protect updates the permissions of [start, start+size) in pt.
	Protect(start A, size uint64, newFlags F, pt PT) bool

	// Clone returns a value equivalent to this backend, suitable for
	// attaching to the right-hand area produced by Split.
	Clone() B
}
