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
	"errors"
	"fmt"
)

// The three-kind error taxonomy is closed and exhaustive: every failure a
// MemoryArea or MemorySet method can report is one of these three.
var (
	// ErrInvalidParam reports an empty range, a misordered bound, or
	// arithmetic overflow on a byte count that wasn't the programmer error
	// checked by New (which panics instead).
	ErrInvalidParam = errors.New("vmm: invalid parameter")

	// ErrAlreadyExists reports that a requested range overlaps an existing
	// area and the caller did not ask for the overlap to be unmapped first.
	ErrAlreadyExists = errors.New("vmm: range already mapped")

	// ErrBadState reports that a MappingBackend rejected a map, unmap, or
	// protect request against the page table.
	ErrBadState = errors.New("vmm: backend rejected request")
)

// wrapf attaches op/detail context to one of the sentinel errors above while
// keeping it discoverable through errors.Is.
func wrapf(base error, op string, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", op, base, fmt.Sprintf(format, args...))
}
