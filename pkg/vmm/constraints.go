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

import "fmt"

// Addr is the constraint a virtual-address type must satisfy to be used as
// the B.Addr of a MemorySet: ordering, checked/wrapping arithmetic, and a
// page-alignment query. pkg/vaddr.Addr is the reference implementation.
type Addr[T any] interface {
	comparable

	// Less reports whether this address sorts before other.
	Less(other T) bool

	// CheckedAdd returns this address plus size, and false if that overflows
	// the address space.
	CheckedAdd(size uint64) (T, bool)

	// WrappingAdd and WrappingSub perform the same arithmetic without an
	// overflow check. Callers only use these where a precondition already
	// guarantees the result is in range.
	WrappingAdd(size uint64) T
	WrappingSub(size uint64) T

	// SubAddr returns this address minus other, as a byte count. The caller
	// must ensure other <= this address.
	SubAddr(other T) uint64

	// IsAligned4K reports whether the address is a multiple of 4096.
	IsAligned4K() bool

	// IsAlignedTo reports whether the address is a multiple of size. size is
	// assumed to be a power of two; callers pass a configured page size here
	// rather than the hardcoded 4096 of IsAligned4K.
	IsAlignedTo(size uint64) bool
}

// Flags is the constraint a permission/attribute bag must satisfy: it must
// be comparable (areas compare flags for equality) and renderable.
type Flags interface {
	comparable
	fmt.Stringer
}
