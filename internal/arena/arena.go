// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arena implements a fixed-capacity bump allocator.
//
// The interpreter gives each run one arena and stages scratch bytes for
// string and byte-slice construction in it. A caller takes a Mark when
// it enters a scope and calls ReleaseTo on the way out, so the scratch
// space of a block is reclaimed in one step when the block ends.
package arena

import "fmt"

// An Arena is a bump allocator over a fixed buffer.
// The zero value is an arena with no capacity.
type Arena struct {
	buf []byte
	off int
}

// An OutOfCapacityError reports an allocation that exceeded the
// arena's remaining free space.
type OutOfCapacityError struct {
	Requested, Remaining int
}

func (e *OutOfCapacityError) Error() string {
	return fmt.Sprintf("arena out of capacity: requested %d remaining %d", e.Requested, e.Remaining)
}

// New returns an arena with the given capacity in bytes.
func New(capacity int) *Arena {
	return &Arena{buf: newBuffer(capacity)}
}

// Capacity returns the total capacity in bytes.
func (a *Arena) Capacity() int { return len(a.buf) }

// Remaining returns the free space in bytes.
func (a *Arena) Remaining() int { return len(a.buf) - a.off }

// Alloc returns a zeroed slice of size bytes carved from the arena,
// or an OutOfCapacityError. The slice is valid until the enclosing
// mark is released.
func (a *Arena) Alloc(size int) ([]byte, error) {
	if size > a.Remaining() {
		return nil, &OutOfCapacityError{Requested: size, Remaining: a.Remaining()}
	}
	start := a.off
	a.off += size
	b := a.buf[start:a.off:a.off]
	for i := range b {
		b[i] = 0
	}
	return b, nil
}

// Mark returns the current allocation offset.
func (a *Arena) Mark() int { return a.off }

// ReleaseTo rolls the arena back to a previous Mark, reclaiming
// everything allocated since. Slices handed out after the mark
// become invalid.
func (a *Arena) ReleaseTo(mark int) {
	if 0 <= mark && mark <= a.off {
		a.off = mark
	}
}

// Reset reclaims the entire arena.
func (a *Arena) Reset() { a.off = 0 }
