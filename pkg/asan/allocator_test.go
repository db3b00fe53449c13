// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package asan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	a, err := New(Options{ArenaSize: 1 << 20, MaxAllocation: 1 << 18, MaxTotalAllocation: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestMapToShadowIdempotentWithinAnEightByteGranule(t *testing.T) {
	a := newTestAllocator(t)
	base := a.arenaBase + 64
	want := a.MapToShadow(base)
	for i := uintptr(1); i < 8; i++ {
		require.Equal(t, want, a.MapToShadow(base+i))
	}
	require.Equal(t, want+1, a.MapToShadow(base+8))
}

func TestAllocReleaseCyclePoisonsShadowAndDetectsDoubleFree(t *testing.T) {
	a := newTestAllocator(t)

	addr, err := a.Alloc(100)
	require.NoError(t, err)
	require.True(t, a.IsManaged(addr))

	idx := a.shadowIndex(addr)
	require.Equal(t, byte(0xFF), a.shadow[idx])

	require.NoError(t, a.Release(addr))
	for i := uintptr(0); i < 100/8; i++ {
		require.Equal(t, byte(0x00), a.shadow[idx+i], "byte %d should be poisoned", i)
	}

	err = a.Release(addr)
	require.Error(t, err)
	var dfe *DoubleFreeError
	require.ErrorAs(t, err, &dfe)
}

func TestReleaseUnallocatedAddressReportsUnallocatedFree(t *testing.T) {
	a := newTestAllocator(t)
	err := a.Release(a.arenaBase + 4096)
	require.Error(t, err)
	var uaf *UnallocatedFreeError
	require.ErrorAs(t, err, &uaf)
}

func TestResetRecyclesFreedAllocationsForSameSizeClass(t *testing.T) {
	a := newTestAllocator(t)

	p1, err := a.Alloc(100)
	require.NoError(t, err)
	_, err = a.Alloc(200)
	require.NoError(t, err)
	require.NoError(t, a.Release(p1))

	a.Reset()
	require.Empty(t, a.allocations[p1])

	p3, err := a.Alloc(100)
	require.NoError(t, err)
	require.Equal(t, p1, p3, "reset should recycle the size-100 slot")

	for _, list := range a.freelist {
		require.Empty(t, list, "freelist should be drained after the matching alloc")
	}

	idx := a.shadowIndex(p3)
	require.Equal(t, byte(0xFF), a.shadow[idx])
}

func TestFindMetadataAddressMatchesTheUserVisiblePointer(t *testing.T) {
	a := newTestAllocator(t)

	p1, err := a.Alloc(64)
	require.NoError(t, err)

	// Address is the pointer Alloc actually returned, not the guard-page-
	// earlier region base the allocator tracks internally.
	require.Equal(t, p1, a.allocations[p1].Address)

	meta := a.FindMetadata(p1, p1)
	require.NotNil(t, meta)
	require.Equal(t, p1, meta.Address)
}

func TestFindMetadataReturnsNearestWithoutHint(t *testing.T) {
	a := newTestAllocator(t)

	p1, err := a.Alloc(64)
	require.NoError(t, err)
	_, err = a.Alloc(64)
	require.NoError(t, err)

	meta := a.FindMetadata(p1+1, 0)
	require.NotNil(t, meta)
	require.Equal(t, a.allocations[p1].Address, meta.Address)
}

func TestCheckForLeaksReportsOnlyLiveAllocations(t *testing.T) {
	a := newTestAllocator(t)

	p1, err := a.Alloc(32)
	require.NoError(t, err)
	_, err = a.Alloc(32)
	require.NoError(t, err)
	require.NoError(t, a.Release(p1))

	leaks := a.CheckForLeaks()
	require.Len(t, leaks, 1)
}

func TestAllocRejectsSizesOverMaxAllocation(t *testing.T) {
	a, err := New(Options{ArenaSize: 1 << 20, MaxAllocation: 128, MaxTotalAllocation: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Alloc(4096)
	require.Error(t, err)
}

func TestZeroSizeAllocIsFlaggedMallocZero(t *testing.T) {
	a := newTestAllocator(t)
	addr, err := a.Alloc(0)
	require.NoError(t, err)
	require.True(t, a.allocations[addr].IsMallocZero)
	require.EqualValues(t, 16, a.allocations[addr].Size)
}

func TestBytesReturnsLiveAllocationViewAndRejectsFreed(t *testing.T) {
	a := newTestAllocator(t)
	addr, err := a.Alloc(8)
	require.NoError(t, err)

	buf, err := a.Bytes(addr)
	require.NoError(t, err)
	require.Len(t, buf, 8)
	buf[0] = 0xAB

	require.NoError(t, a.Release(addr))
	_, err = a.Bytes(addr)
	require.Error(t, err)
}
