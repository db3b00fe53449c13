// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package asan

import "fmt"

// AllocationMetadata tracks one live or freed allocation. Address is the
// user-visible pointer handed back by Alloc, the same value callers pass
// to Release/FindMetadata/Bytes as a hint or key.
type AllocationMetadata struct {
	Address      uintptr
	Size         uintptr
	ActualSize   uintptr // rounded-up size plus guard pages
	IsMallocZero bool
	Freed        bool

	// regionBase is the mapping's real start, one guard page before
	// Address; only the allocator's own bookkeeping needs it.
	regionBase uintptr

	AllocBacktrace   []string
	ReleaseBacktrace []string
}

// UnallocatedFreeError is reported when Release is called on an address
// the allocator never handed out.
type UnallocatedFreeError struct {
	Address   uintptr
	Backtrace []string
}

func (e *UnallocatedFreeError) Error() string {
	return fmt.Sprintf("asan: attempted free of unallocated address 0x%x", e.Address)
}

// DoubleFreeError is reported when Release is called twice on the same
// allocation.
type DoubleFreeError struct {
	Address   uintptr
	Metadata  AllocationMetadata
	Backtrace []string
}

func (e *DoubleFreeError) Error() string {
	return fmt.Sprintf("asan: double free of address 0x%x (size %d)", e.Address, e.Metadata.Size)
}

// LeakError is reported for every still-live allocation found at shutdown.
type LeakError struct {
	Metadata AllocationMetadata
}

func (e *LeakError) Error() string {
	return fmt.Sprintf("asan: leaked %d bytes allocated at 0x%x", e.Metadata.Size, e.Metadata.Address)
}
