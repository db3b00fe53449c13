// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package asan

import "runtime"

// shadowBitCandidates returns the shadow-bit widths the allocator would
// probe, in preference order, on the current platform. The original
// allocator used these to pick a fixed virtual address for the shadow
// mapping; this port instead sizes an arena-relative shadow array (see
// New), so the candidates only pick the reported ShadowBit() value.
func shadowBitCandidates() []uint {
	if runtime.GOARCH == "arm64" && runtime.GOOS == "android" {
		return []uint{44, 36}
	}
	return []uint{44}
}

func chooseShadowBit() uint {
	candidates := shadowBitCandidates()
	return candidates[0]
}

func roundUpToPage(pageSize, size uintptr) uintptr {
	return ((size + pageSize) / pageSize) * pageSize
}

// poison marks size bytes of shadow starting at index as invalid,
// mirroring the bit-packing of Allocator::poison: a full 0x00 byte per 8
// user bytes, and a 0x00 partial byte covering the remainder.
func poison(shadow []byte, index, size uintptr) {
	full := size / 8
	for i := uintptr(0); i < full; i++ {
		shadow[index+i] = 0x00
	}
	if rem := size % 8; rem > 0 {
		shadow[index+full] = 0x00
	}
}

// unpoison marks size bytes of shadow starting at index as valid: 0xFF
// for every full byte, and a mask covering only the remainder's bits for
// the partial byte, matching Allocator::unpoison.
func unpoison(shadow []byte, index, size uintptr) {
	full := size / 8
	for i := uintptr(0); i < full; i++ {
		shadow[index+i] = 0xFF
	}
	if rem := size % 8; rem > 0 {
		shadow[index+full] = byte((0xFF << (8 - rem)) & 0xFF)
	}
}
