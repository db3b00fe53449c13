// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package stage implements one pass of input-evolution work performed
// against a single selected corpus entry: mutation rounds, compare-log
// and concolic tracing runs, and concolic-guided mutation. A Stage never
// decides corpus/solutions membership itself; it hands every candidate
// input to an Evaluator, which runs the target and applies the
// feedback/objective pipeline.
package stage

import (
	"context"

	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// Evaluator runs a candidate input through the full driver pipeline:
// execute against the target, increment the executions counter, run the
// feedback and objective pipelines, add to corpus or solutions (or
// discard), and notify the event manager. Stage implementations depend
// only on this interface, not on the concrete fuzzer driver, so
// pkg/stage never imports pkg/fuzzer.
type Evaluator interface {
	Evaluate(ctx context.Context, in *corpus.Input) (*executor.ExitStatus, error)
}

// Stage is one self-contained unit of per-testcase work a driver runs in
// a fixed order for each scheduled corpus index.
type Stage interface {
	Name() string
	Perform(ctx context.Context, ev Evaluator, st *state.State, corpusIdx int) error
}

func loadCurrent(st *state.State, corpusIdx int) (*corpus.Input, error) {
	tc, err := st.Corpus.Get(corpusIdx)
	if err != nil {
		return nil, err
	}
	return tc.Load()
}
