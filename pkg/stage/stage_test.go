// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzforge/fuzzforge/pkg/cmplog"
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
	"github.com/fuzzforge/fuzzforge/pkg/feedback"
	"github.com/fuzzforge/fuzzforge/pkg/mutator"
	"github.com/fuzzforge/fuzzforge/pkg/observer"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// recordingEvaluator stands in for the driver: it records every
// candidate handed to it without applying any feedback logic.
type recordingEvaluator struct {
	seen [][]byte
}

func (e *recordingEvaluator) Evaluate(ctx context.Context, in *corpus.Input) (*executor.ExitStatus, error) {
	e.seen = append(e.seen, append([]byte{}, in.Bytes()...))
	return &executor.ExitStatus{Kind: executor.ExitOK}, nil
}

func newTestState(t *testing.T, seed []byte) (*state.State, int) {
	t.Helper()
	c := corpus.NewInMemory()
	idx := c.Add(corpus.NewTestcase(corpus.NewInput(seed)))
	require.NoError(t, c.SetCurrent(idx))
	st := state.New(1, c, corpus.NewInMemory(), feedback.NewCrashFeedback(), feedback.NewCrashFeedback())
	return st, idx
}

func TestStdMutationalStageRunsBetween1And128Iterations(t *testing.T) {
	st, idx := newTestState(t, []byte("0123456789"))
	ev := &recordingEvaluator{}
	s := NewStdMutationalStage(mutator.NewScheduledMutator(mutator.ByteFlip(), mutator.BitFlip()))
	require.NoError(t, s.Perform(context.Background(), ev, st, idx))
	require.GreaterOrEqual(t, len(ev.seen), 1)
	require.LessOrEqual(t, len(ev.seen), 128)
}

type compareHarnessExecutor struct {
	obs *observer.CompareLogObserver
}

func (e *compareHarnessExecutor) Run(ctx context.Context, input []byte) (*executor.ExitStatus, error) {
	if len(input) >= 2 {
		e.obs.Record(0x1000,
			cmplog.Value{Kind: cmplog.KindU8, U: uint64(input[0])},
			cmplog.Value{Kind: cmplog.KindU8, U: uint64(input[1])},
		)
	}
	return &executor.ExitStatus{Kind: executor.ExitOK}, nil
}

func TestTracingStageReplacesMetadata(t *testing.T) {
	st, idx := newTestState(t, []byte("ab"))
	obs := observer.NewCompareLogObserver()
	ts := NewTracingStage(&compareHarnessExecutor{obs: obs}, obs)
	require.NoError(t, ts.Perform(context.Background(), &recordingEvaluator{}, st, idx))

	v, ok := st.GetMetadata(cmplog.MetadataTag)
	require.True(t, ok)
	meta := v.(*cmplog.Metadata)
	require.Equal(t, 1, meta.Len())
}

func TestShadowTracingStageHasOwnName(t *testing.T) {
	obs := observer.NewCompareLogObserver()
	ss := NewShadowTracingStage(&compareHarnessExecutor{obs: obs}, obs)
	require.Equal(t, "shadow_tracing", ss.Name())
}

type fakeConcolicExecutor struct {
	tracePath string
	payload   []byte
}

func (e *fakeConcolicExecutor) Run(ctx context.Context, input []byte) (*executor.ExitStatus, error) {
	if err := os.WriteFile(e.tracePath, e.payload, 0o644); err != nil {
		return nil, err
	}
	return &executor.ExitStatus{Kind: executor.ExitOK}, nil
}

func TestConcolicTracingStageCopiesTraceOut(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace")
	st, idx := newTestState(t, []byte("seed"))
	cs := NewConcolicTracingStage(&fakeConcolicExecutor{tracePath: tracePath, payload: []byte("trace-bytes")}, tracePath, "concolic")
	require.NoError(t, cs.Perform(context.Background(), &recordingEvaluator{}, st, idx))

	v, ok := st.GetMetadata("concolic")
	require.True(t, ok)
	require.Equal(t, []byte("trace-bytes"), v.([]byte))
}

func TestConcolicTracingStageToleratesMissingTraceFile(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "never-written")
	st, idx := newTestState(t, []byte("seed"))
	cs := NewConcolicTracingStage(&fakeConcolicExecutor{tracePath: filepath.Join(dir, "elsewhere")}, tracePath, "concolic")
	require.NoError(t, cs.Perform(context.Background(), &recordingEvaluator{}, st, idx))

	v, ok := st.GetMetadata("concolic")
	require.True(t, ok)
	require.Nil(t, v)
}

type constSolver struct {
	subs []map[int]byte
}

func (s *constSolver) Solve(trace []byte) ([]map[int]byte, error) { return s.subs, nil }

func TestSimpleConcolicMutationalStageAppliesSubstitutions(t *testing.T) {
	st, idx := newTestState(t, []byte("AAAA"))
	st.SetMetadata("concolic", []byte("some-trace"))
	solver := &constSolver{subs: []map[int]byte{{0: 'B'}, {1: 'C', 2: 'D'}}}
	cs := NewSimpleConcolicMutationalStage("concolic", solver)
	ev := &recordingEvaluator{}
	require.NoError(t, cs.Perform(context.Background(), ev, st, idx))

	require.Len(t, ev.seen, 2)
	require.Equal(t, []byte("BAAA"), ev.seen[0])
	require.Equal(t, []byte("ACDA"), ev.seen[1])
}

func TestSimpleConcolicMutationalStageNoopsWithoutTrace(t *testing.T) {
	st, idx := newTestState(t, []byte("AAAA"))
	cs := NewSimpleConcolicMutationalStage("concolic", &constSolver{})
	ev := &recordingEvaluator{}
	require.NoError(t, cs.Perform(context.Background(), ev, st, idx))
	require.Empty(t, ev.seen)
}
