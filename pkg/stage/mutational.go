// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stage

import (
	"context"

	"github.com/fuzzforge/fuzzforge/pkg/mutator"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// StdMutationalStage runs N = 1+rand.below(128) mutation rounds against
// the selected testcase: each round clones the base input, mutates the
// clone, and hands it to the evaluator.
type StdMutationalStage struct {
	mutator mutator.Mutator
}

// NewStdMutationalStage wraps m, typically a ScheduledMutator over the
// full havoc mutator set.
func NewStdMutationalStage(m mutator.Mutator) *StdMutationalStage {
	return &StdMutationalStage{mutator: m}
}

func (s *StdMutationalStage) Name() string { return "std_mutational" }

func (s *StdMutationalStage) Perform(ctx context.Context, ev Evaluator, st *state.State, corpusIdx int) error {
	base, err := loadCurrent(st, corpusIdx)
	if err != nil {
		return err
	}
	iterations := 1 + st.Rand.Below(128)
	for i := uint64(0); i < iterations; i++ {
		candidate := base.Clone()
		if _, err := s.mutator.Mutate(st.Rand, st, candidate, int(i)); err != nil {
			return err
		}
		if _, err := ev.Evaluate(ctx, candidate); err != nil {
			return err
		}
	}
	return nil
}
