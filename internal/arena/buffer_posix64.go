// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build (linux || darwin || dragonfly || freebsd || netbsd || solaris) && (amd64 || arm64 || mips64x || ppc64x || loong64) && !nommapbuf
// +build linux darwin dragonfly freebsd netbsd solaris
// +build amd64 arm64 mips64x ppc64x loong64
// +build !nommapbuf

package arena

// This file reserves the arena's backing store with mmap on 64-bit
// POSIX systems. An anonymous private mapping consumes address space
// but no committed memory until a page is touched, so a generously
// sized arena costs only what the program actually allocates.

import (
	"log"

	"golang.org/x/sys/unix"
)

func newBuffer(capacity int) []byte {
	if capacity <= 0 {
		return nil
	}
	b, err := unix.Mmap(-1, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		log.Printf("gaut: failed to mmap %d byte arena: %v; falling back to the heap", capacity, err)
		return make([]byte, capacity)
	}
	return b
}
