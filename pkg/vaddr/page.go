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

import "sync/atomic"

// pageCounter hands out fake physical addresses for AllocPage, so distinct
// pages never alias in tests. The real frame allocator is out of scope;
// this exists only so Page is usable on its own.
var pageCounter atomic.Uint64

// Page is a reference FrameTracker implementation backed by a plain Go byte
// slice rather than real physical memory, since the physical frame
// allocator itself is out of scope for this module.
type Page struct {
	start    uint64
	bytes    []byte
	tracked  bool
	released bool
}

// AllocPage returns a freshly "allocated" page, deallocated when the last
// FrameRef referencing it is dropped.
func AllocPage() *Page {
	start := pageCounter.Add(PageSize4K)
	return &Page{start: start, bytes: make([]byte, PageSize4K), tracked: true}
}

// NoTrackPage wraps an existing byte slice (which must be PageSize4K bytes)
// as a FrameTracker that does nothing on release, e.g. for mapping memory
// this package does not own.
func NoTrackPage(start uint64, backing []byte) *Page {
	return &Page{start: start, bytes: backing, tracked: false}
}

// Start returns the page's fake physical address.
func (p *Page) Start() uint64 { return p.start }

// PageSize returns PageSize4K.
func (p *Page) PageSize() uint64 { return PageSize4K }

// Bytes returns the full backing slice.
func (p *Page) Bytes() []byte { return p.bytes }

// Slice returns the n bytes at offset off.
func (p *Page) Slice(off, n int) []byte { return p.bytes[off : off+n] }

// Deallocate marks the page released. It implements vmm's optional
// deallocator interface, so FrameRef calls it when the last reference is
// dropped; for NoTrackPage-constructed pages it does nothing.
func (p *Page) Deallocate() {
	if !p.tracked || p.released {
		return
	}
	p.released = true
	p.bytes = nil
}
