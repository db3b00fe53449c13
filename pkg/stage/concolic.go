// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stage

import (
	"context"
	"errors"
	"os"

	"github.com/fuzzforge/fuzzforge/pkg/executor"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// ConcolicInputEnvVar is the environment variable a concolic child
// process reads to learn where to write its symbolic trace, mirroring
// SymCC's own SYMCC_INPUT_FILE convention.
const ConcolicInputEnvVar = "SYMCC_INPUT_FILE"

// ConcolicTracingStage runs the selected testcase once under a child
// process executor that writes a symbolic trace into the shared file
// tracePath (normally a tmpfs path, passed to the child via
// ConcolicInputEnvVar); the trace bytes are then attached to state as
// metadata under obsName for a SimpleConcolicMutationalStage to consume.
type ConcolicTracingStage struct {
	exec      executor.Executor
	tracePath string
	obsName   string
}

// NewConcolicTracingStage builds a concolic tracing stage. exec should
// already be configured (e.g. via CommandExecutor.WithEnv) to export
// tracePath under ConcolicInputEnvVar to the child process.
func NewConcolicTracingStage(exec executor.Executor, tracePath, obsName string) *ConcolicTracingStage {
	return &ConcolicTracingStage{exec: exec, tracePath: tracePath, obsName: obsName}
}

func (s *ConcolicTracingStage) Name() string { return "concolic_tracing" }

func (s *ConcolicTracingStage) Perform(ctx context.Context, ev Evaluator, st *state.State, corpusIdx int) error {
	in, err := loadCurrent(st, corpusIdx)
	if err != nil {
		return err
	}
	_ = os.Remove(s.tracePath)
	if _, err := s.exec.Run(ctx, in.Bytes()); err != nil {
		return err
	}
	trace, err := os.ReadFile(s.tracePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		trace = nil // the child raised no symbolic branch this run
	}
	st.SetMetadata(s.obsName, trace)
	return nil
}
