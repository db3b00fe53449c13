// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mutator implements the byte-level and structural input
// mutators plus the scheduled-mutator combinator. Algorithms follow
// libafl/src/mutators/mutations.rs and token_mutations.rs; the Mutator
// interface shape follows the small-interface-plus-ordered-slice idiom
// used throughout pkg/fuzzer (Stage, Mutator are dispatched the same
// way a job queue entry is).
package mutator

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// Result reports whether a Mutator call changed its input.
type Result int

const (
	// Skipped means the input was left byte-for-byte identical, e.g.
	// because a precondition (minimum length, available metadata,
	// corpus size) was not met.
	Skipped Result = iota
	Mutated
)

func (r Result) String() string {
	if r == Mutated {
		return "mutated"
	}
	return "skipped"
}

// Mutator perturbs in in place (or reports Skipped without touching
// it). st gives access to corpus siblings (for crossover/splice) and
// optional metadata (Tokens, CmpValuesMetadata); stageIdx is the
// 0-based index of the current stage iteration, passed through
// unexamined by every mutator the core ships, but part of the contract
// so a driver-defined mutator can vary behavior per iteration.
type Mutator interface {
	Name() string
	Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error)
}

// copyWithinOrAcross copies length bytes from src[from:] to dst[to:].
// Both a zero length and src==dst with from==to are no-ops: libafl's
// copy_from_slice / core::ptr::copy degrade to a no-op on a zero-length
// range rather than touching memory, a detail preserved here rather
// than special-cased away.
func copyWithinOrAcross(dst []byte, to int, src []byte, from, length int) {
	if length <= 0 {
		return
	}
	copy(dst[to:to+length], src[from:from+length])
}

// readWindow reads a native-endian unsigned integer of byteWidth bytes
// starting at off.
func readWindow(b []byte, off, byteWidth int) uint64 {
	var v uint64
	for i := 0; i < byteWidth; i++ {
		v |= uint64(b[off+i]) << (8 * uint(i))
	}
	return v
}

// writeWindow writes a native-endian unsigned integer of byteWidth
// bytes starting at off.
func writeWindow(b []byte, off, byteWidth int, v uint64) {
	for i := 0; i < byteWidth; i++ {
		b[off+i] = byte(v >> (8 * uint(i)))
	}
}

func byteSwap(v uint64, byteWidth int) uint64 {
	var out uint64
	for i := 0; i < byteWidth; i++ {
		out = out<<8 | (v & 0xff)
		v >>= 8
	}
	return out
}
