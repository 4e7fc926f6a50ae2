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

import "sync/atomic"

// FrameTracker is the capability a physical frame allocator exposes over a
// single physical page: its start address, fixed page size, and raw/sliced
// byte views. pkg/vaddr.Page is the reference implementation; the real
// allocator is an external collaborator.
type FrameTracker interface {
	// Start returns the physical address of the first byte of the frame.
	Start() uint64

	// PageSize returns the fixed size of the frame in bytes.
	PageSize() uint64

	// Bytes returns the full backing slice for the frame.
	Bytes() []byte

	// Slice returns the n bytes at offset off within the frame.
	Slice(off, n int) []byte
}

// deallocator is implemented by FrameTrackers that own memory needing an
// explicit release step when the last FrameRef referencing them is dropped.
// Dropping the last reference to a tracker that doesn't implement it releases
// nothing. vaddr.Page implements it for every page and makes it a no-op for
// pages built with NoTrackPage.
type deallocator interface {
	Deallocate()
}

// frameBox is the shared, reference-counted cell behind a FrameRef.
type frameBox struct {
	tracker FrameTracker
	refs    atomic.Int32
}

// FrameRef is a cloneable, reference-counted handle to a FrameTracker.
// Cloning increments the reference count; Drop decrements it and, on the
// last reference, deallocates the underlying frame. Go has no destructors,
// so every owner of a FrameRef (a MemoryArea's frame table, most commonly)
// must call Drop exactly once when it stops holding the reference.
type FrameRef struct {
	box *frameBox
}

// NewFrameRef wraps a freshly allocated FrameTracker in a FrameRef with a
// reference count of one.
func NewFrameRef(tracker FrameTracker) FrameRef {
	b := &frameBox{tracker: tracker}
	b.refs.Store(1)
	return FrameRef{box: b}
}

// Clone returns a new handle to the same frame, incrementing the shared
// reference count. The caller now owns an additional reference and must
// eventually call Drop on it.
func (r FrameRef) Clone() FrameRef {
	r.box.refs.Add(1)
	return r
}

// Drop releases this reference. It reports whether this was the last
// reference, in which case the underlying tracker has been deallocated.
func (r FrameRef) Drop() bool {
	if r.box == nil {
		return false
	}
	if r.box.refs.Add(-1) == 0 {
		if d, ok := r.box.tracker.(deallocator); ok {
			d.Deallocate()
		}
		return true
	}
	return false
}

// Tracker returns the underlying FrameTracker.
func (r FrameRef) Tracker() FrameTracker {
	return r.box.tracker
}

// RefCount returns the current number of live clones of this handle. It
// exists to make frame-ownership assertions easy to write in tests.
func (r FrameRef) RefCount() int32 {
	return r.box.refs.Load()
}
