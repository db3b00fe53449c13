// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// maxIterationShiftDraw bounds the exponent draw: rand.below(6) yields
// 0..5, so 1+that is a shift of 1..6, giving an upper bound of 2..64
// iterations for k ∈ [1, 1<<(1+rand.below(6))].
const maxIterationShiftDraw = 6

// ScheduledMutator holds an ordered tuple of child mutators and, on each
// invocation, runs between 1 and a randomly chosen power-of-two bound
// (2..64) of randomly chosen children against the same input.
type ScheduledMutator struct {
	children []Mutator
}

// NewScheduledMutator builds a combinator over children.
func NewScheduledMutator(children ...Mutator) *ScheduledMutator {
	return &ScheduledMutator{children: children}
}

func (m *ScheduledMutator) Name() string { return "ScheduledMutator" }

func (m *ScheduledMutator) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	if len(m.children) == 0 {
		return Skipped, nil
	}
	shift := 1 + rnd.Below(maxIterationShiftDraw)
	upper := uint64(1) << shift
	iterations := 1 + rnd.Below(upper)

	overall := Skipped
	for i := uint64(0); i < iterations; i++ {
		child := m.children[rnd.Choose(len(m.children))]
		res, err := child.Mutate(rnd, st, in, stageIdx)
		if err != nil {
			return overall, err
		}
		if res == Mutated {
			overall = Mutated
		}
	}
	return overall, nil
}

// Children exposes the wrapped mutators, mirroring pkg/feedback's
// combinator Children() accessor.
func (m *ScheduledMutator) Children() []Mutator { return m.children }
