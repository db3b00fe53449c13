// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

// Corpus is the ordered, densely-indexed collection of Testcases a
// scheduler picks from and a mutator's crossover/splice operations read
// from. Indices are never recycled within a run.
// Remove tombstones rather than compacting, so a later Get on a removed
// index always returns ErrKeyNotFound instead of silently resolving to a
// different testcase that shifted into its slot.
type Corpus interface {
	// Add appends tc and returns its newly assigned index.
	Add(tc *Testcase) int
	// Get returns the testcase at idx, or ErrKeyNotFound.
	Get(idx int) (*Testcase, error)
	// Replace overwrites the testcase at idx.
	Replace(idx int, tc *Testcase) error
	// Remove tombstones idx and returns the testcase that was there.
	Remove(idx int) (*Testcase, error)
	// Count returns the number of live (non-removed) testcases.
	Count() int
	// Len returns the number of index slots ever assigned, including
	// tombstoned ones; scheduler bookkeeping iterates [0, Len()).
	Len() int
	// Current returns the cursor set by SetCurrent, if any.
	Current() (int, bool)
	// SetCurrent moves the cursor, so crossover mutators do not splice
	// an input with itself.
	SetCurrent(idx int) error
}
