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

package vaddr

import "strings"

// Flags is an opaque permission/attribute bitmask. It satisfies
// vmm.Flags (comparable + fmt.Stringer).
type Flags uint8

const (
	// FlagRead grants read access.
	FlagRead Flags = 1 << iota
	// FlagWrite grants write access.
	FlagWrite
	// FlagExec grants execute access.
	FlagExec
	// FlagUser marks the mapping as user-accessible, as opposed to
	// kernel-only.
	FlagUser
)

// String renders flags in "rwxu" order, using '-' for unset bits, matching
// the conventional /proc/[pid]/maps rendering.
func (f Flags) String() string {
	var b strings.Builder
	bits := []struct {
		mask Flags
		ch   byte
	}{
		{FlagRead, 'r'},
		{FlagWrite, 'w'},
		{FlagExec, 'x'},
		{FlagUser, 'u'},
	}
	for _, bit := range bits {
		if f&bit.mask != 0 {
			b.WriteByte(bit.ch)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Has reports whether every bit set in want is also set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }

// PTEBits maps Flags to the bit pattern backend.Linear installs in a
// page-table entry: bit 0 present, bit 1 writable, bit 2 executable,
// bit 3 user-accessible. This is a made-up, architecture-neutral encoding,
// not a real CPU's PTE format: the page-table walker itself is an
// external collaborator, not part of this module.
func (f Flags) PTEBits() uint64 {
	var bits uint64 = 1 // present
	if f&FlagWrite != 0 {
		bits |= 1 << 1
	}
	if f&FlagExec != 0 {
		bits |= 1 << 2
	}
	if f&FlagUser != 0 {
		bits |= 1 << 3
	}
	return bits
}
