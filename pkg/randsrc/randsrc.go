// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package randsrc provides the deterministic, seedable random source
// shared by every mutator and scheduler in fuzzforge. Distribution is
// uniform modulo the bias acceptable for fuzzing; there is no
// cryptographic guarantee, only that the same seed and call sequence
// reproduce the same outputs on any platform.
package randsrc

import "math/rand"

// Source wraps a *rand.Rand the same way Fuzzer holds one, adding the
// range-sampling and uniform-choice helpers mutators need.
type Source struct {
	rnd  *rand.Rand
	seed int64
	// calls counts Next and Below invocations so a snapshot can record the call
	// count alongside the seed and resume at the same point in the
	// stream after a restart (see pkg/state/snapshot.go).
	calls uint64
}

// New creates a Source seeded from a 64-bit seed.
func New(seed int64) *Source {
	return &Source{rnd: rand.New(rand.NewSource(seed)), seed: seed}
}

// Resume recreates a Source at the same point in its output stream by
// replaying `calls` draws. Used by state snapshot restore.
func Resume(seed int64, calls uint64) *Source {
	s := New(seed)
	for i := uint64(0); i < calls; i++ {
		s.rnd.Uint64()
	}
	s.calls = calls
	return s
}

// Seed returns the seed this Source was constructed with.
func (s *Source) Seed() int64 { return s.seed }

// Calls returns the number of draws made so far.
func (s *Source) Calls() uint64 { return s.calls }

// Next returns the next raw 64-bit value.
func (s *Source) Next() uint64 {
	s.calls++
	return s.rnd.Uint64()
}

// Below returns a value in [0, n). Panics if n == 0, matching the
// original's debug-assert-on-empty-range contract.
func (s *Source) Below(n uint64) uint64 {
	if n == 0 {
		panic("randsrc: Below called with n == 0")
	}
	s.calls++
	return uint64(s.rnd.Int63n(int64(n)))
}

// Between returns a value in [lo, hi], inclusive on both ends.
func (s *Source) Between(lo, hi int64) int64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + int64(s.Below(uint64(hi-lo+1)))
}

// Choose returns the index of a uniformly chosen element of a sequence
// of length n. Callers index their own slice with it; Go generics make a
// by-reference "choose an element" helper impossible to expose safely
// across unrelated slice element types.
func (s *Source) Choose(n int) int {
	if n <= 0 {
		panic("randsrc: Choose called with n <= 0")
	}
	return int(s.Below(uint64(n)))
}

// Bool returns true or false with equal probability.
func (s *Source) Bool() bool {
	return s.Below(2) == 1
}
