// Copyright 2021 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build linux
// +build linux

package osutil

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// CreateCoverageMapping allocates a memfd-backed mapping of size bytes
// for a subprocess target's coverage table, so a CommandExecutor can
// hand the child a file descriptor to write edge hits into instead of
// streaming them back over a pipe.
func CreateCoverageMapping(size int) (f *os.File, mem []byte, err error) {
	// The memfd name is only diagnostic; every coverage mapping can share it.
	fd, err := unix.MemfdCreate("fuzzforge-coverage", 0)
	if err != nil {
		err = fmt.Errorf("memfd_create for coverage map: %v", err)
		return
	}
	f = os.NewFile(uintptr(fd), fmt.Sprintf("/proc/self/fd/%d", fd))
	if err = f.Truncate(int64(size)); err != nil {
		err = fmt.Errorf("truncate coverage map to %d bytes: %v", size, err)
		f.Close()
		os.Remove(f.Name())
		return
	}
	mem, err = syscall.Mmap(fd, 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		err = fmt.Errorf("mmap coverage map: %v", err)
		f.Close()
		os.Remove(f.Name())
		return
	}
	return
}

// CloseCoverageMapping tears down a mapping created by CreateCoverageMapping.
func CloseCoverageMapping(f *os.File, mem []byte) error {
	err1 := syscall.Munmap(mem)
	err2 := f.Close()
	switch {
	case err1 != nil:
		return err1
	case err2 != nil:
		return err2
	default:
		return nil
	}
}
