// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stage

import (
	"context"

	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// ConcolicSolver turns a raw symbolic trace into zero or more candidate
// substitution sets, each mapping a byte offset in the input to a
// replacement value that should flip the branch the trace recorded. The
// actual constraint solving (SAT/SMT) is an external collaborator this
// module does not implement; a caller supplies a real implementation,
// e.g. an RPC client to a solver service.
type ConcolicSolver interface {
	Solve(trace []byte) ([]map[int]byte, error)
}

// SimpleConcolicMutationalStage consumes the most recent concolic trace
// metadata under obsName, solves it, and submits one mutated clone per
// returned substitution set for evaluation.
type SimpleConcolicMutationalStage struct {
	obsName string
	solver  ConcolicSolver
}

// NewSimpleConcolicMutationalStage builds a stage reading trace metadata
// from obsName (the same key a ConcolicTracingStage wrote it under).
func NewSimpleConcolicMutationalStage(obsName string, solver ConcolicSolver) *SimpleConcolicMutationalStage {
	return &SimpleConcolicMutationalStage{obsName: obsName, solver: solver}
}

func (s *SimpleConcolicMutationalStage) Name() string { return "simple_concolic_mutational" }

func (s *SimpleConcolicMutationalStage) Perform(ctx context.Context, ev Evaluator, st *state.State, corpusIdx int) error {
	v, ok := st.GetMetadata(s.obsName)
	if !ok {
		return nil
	}
	trace, ok := v.([]byte)
	if !ok || len(trace) == 0 {
		return nil
	}

	base, err := loadCurrent(st, corpusIdx)
	if err != nil {
		return err
	}
	substitutions, err := s.solver.Solve(trace)
	if err != nil {
		return err
	}
	for _, sub := range substitutions {
		candidate := base.Clone()
		b := candidate.Bytes()
		for offset, value := range sub {
			if offset >= 0 && offset < len(b) {
				b[offset] = value
			}
		}
		if _, err := ev.Evaluate(ctx, candidate); err != nil {
			return err
		}
	}
	return nil
}
