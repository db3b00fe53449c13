// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stage

import (
	"context"

	"github.com/fuzzforge/fuzzforge/pkg/cmplog"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
	"github.com/fuzzforge/fuzzforge/pkg/observer"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// TracingStage runs the selected testcase once through a tracing
// executor, an Executor instrumented to also populate a
// CompareLogObserver as it runs (the harness closure records each
// comparison the way it records coverage edges). The resulting table
// replaces whatever CmpValuesMetadata was on state before.
type TracingStage struct {
	exec executor.Executor
	obs  *observer.CompareLogObserver
	name string
}

// NewTracingStage builds a tracing stage over exec, which must populate
// obs during Run.
func NewTracingStage(exec executor.Executor, obs *observer.CompareLogObserver) *TracingStage {
	return &TracingStage{exec: exec, obs: obs, name: "tracing"}
}

func (s *TracingStage) Name() string { return s.name }

func (s *TracingStage) Perform(ctx context.Context, ev Evaluator, st *state.State, corpusIdx int) error {
	in, err := loadCurrent(st, corpusIdx)
	if err != nil {
		return err
	}
	s.obs.Reset()
	if _, err := s.exec.Run(ctx, in.Bytes()); err != nil {
		return err
	}
	st.SetMetadata(cmplog.MetadataTag, s.obs.Metadata())
	return nil
}

// ShadowTracingStage is a TracingStage under its own name, for use with
// a dedicated shadow executor. It runs the executor it is given once and
// stores obs's table as the cmplog metadata, exactly as TracingStage
// does; it does not switch obs on or off, so whether obs also sees other
// stages' executions depends only on how the caller wires executor and
// harness.
type ShadowTracingStage struct {
	*TracingStage
}

// NewShadowTracingStage builds a shadow tracing stage over shadowExec,
// which must populate obs during Run the same way a TracingStage's
// executor does.
func NewShadowTracingStage(shadowExec executor.Executor, obs *observer.CompareLogObserver) *ShadowTracingStage {
	ts := NewTracingStage(shadowExec, obs)
	ts.name = "shadow_tracing"
	return &ShadowTracingStage{TracingStage: ts}
}
