// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/event"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
	"github.com/fuzzforge/fuzzforge/pkg/feedback"
	"github.com/fuzzforge/fuzzforge/pkg/metrics"
	"github.com/fuzzforge/fuzzforge/pkg/observer"
	"github.com/fuzzforge/fuzzforge/pkg/stage"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// singleShotStage evaluates exactly one fixed input, for driver tests
// that do not need a real mutator.
type singleShotStage struct {
	in *corpus.Input
}

func (s *singleShotStage) Name() string { return "single_shot" }

func (s *singleShotStage) Perform(ctx context.Context, ev stage.Evaluator, st *state.State, idx int) error {
	_, err := ev.Evaluate(ctx, s.in)
	return err
}

func newTestDriver(t *testing.T, cov *observer.CoverageMap) *Driver {
	t.Helper()
	harness := func(input []byte) executor.ExitKind {
		if len(input) > 0 {
			cov.Bytes()[input[0]] = 1
		}
		if len(input) > 0 && input[0] == 0xFF {
			return executor.ExitCrash
		}
		return executor.ExitOK
	}
	exec := executor.NewInProcessExecutor(harness, nil)

	fb := feedback.NewMaxMapFeedback("cov", cov, true)
	obj := feedback.NewCrashFeedback()

	seedCorpus := corpus.NewInMemory()
	solutions := corpus.NewInMemory()
	seedCorpus.Add(corpus.NewTestcase(corpus.NewInput([]byte{0x00})))

	st := state.New(1, seedCorpus, solutions, fb, obj)

	return &Driver{
		State:     st,
		Scheduler: corpus.NewQueueCorpusScheduler(),
		Executor:  exec,
		Coverage:  cov,
		Time:      observer.NewTimeObserver(),
		Rarity:    corpus.NewEdgeRarityTracker(),
	}
}

func TestDriverEvaluateAddsFeedbackInterestingInputToCorpus(t *testing.T) {
	cov := observer.NewLocalCoverageMap(256)
	d := newTestDriver(t, cov)

	status, err := d.Evaluate(context.Background(), corpus.NewInput([]byte{0x01}))
	require.NoError(t, err)
	require.Equal(t, executor.ExitOK, status.Kind)
	require.Equal(t, 2, d.State.Corpus.Count()) // seed + new
	require.Equal(t, uint64(1), d.State.ExecutionsCount())
}

func TestDriverEvaluateRoutesCrashingInputToSolutions(t *testing.T) {
	cov := observer.NewLocalCoverageMap(256)
	d := newTestDriver(t, cov)

	status, err := d.Evaluate(context.Background(), corpus.NewInput([]byte{0xFF}))
	require.NoError(t, err)
	require.Equal(t, executor.ExitCrash, status.Kind)
	require.Equal(t, 1, d.State.Solutions.Count())
	require.Equal(t, 1, d.State.Corpus.Count()) // unchanged: objective wins over feedback
}

func TestDriverEvaluateNotifiesEventManager(t *testing.T) {
	cov := observer.NewLocalCoverageMap(256)
	d := newTestDriver(t, cov)
	mgr := event.NewChannelManager(4)
	d.Events = mgr

	_, err := d.Evaluate(context.Background(), corpus.NewInput([]byte{0x02}))
	require.NoError(t, err)

	got := <-mgr.Events()
	require.Equal(t, event.NewTestcase, got.Kind)
}

func TestDriverEvaluateRecordsMetrics(t *testing.T) {
	cov := observer.NewLocalCoverageMap(256)
	d := newTestDriver(t, cov)
	d.Metrics = metrics.NewRecorder("test-worker")

	_, err := d.Evaluate(context.Background(), corpus.NewInput([]byte{0x03}))
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(d.Metrics.Executions))
}

func TestDriverRunOnceSchedulesAndRunsStages(t *testing.T) {
	cov := observer.NewLocalCoverageMap(256)
	d := newTestDriver(t, cov)
	d.Stages = []stage.Stage{&singleShotStage{in: corpus.NewInput([]byte{0x04})}}

	require.NoError(t, d.RunOnce(context.Background()))
	require.Equal(t, 2, d.State.Corpus.Count())
}

func TestDriverEvaluateLogsDiffSummaryOnSolution(t *testing.T) {
	cov := observer.NewLocalCoverageMap(256)
	d := newTestDriver(t, cov)
	mgr := event.NewChannelManager(4)
	d.Events = mgr
	require.NoError(t, d.State.Corpus.SetCurrent(0))

	_, err := d.Evaluate(context.Background(), corpus.NewInput([]byte{0xFF, 0xFF}))
	require.NoError(t, err)

	require.Equal(t, event.NewSolution, (<-mgr.Events()).Kind)
	logEvent := <-mgr.Events()
	require.Equal(t, event.Log, logEvent.Kind)
	require.Contains(t, logEvent.Message, "bytes vs parent")
}

func TestDriverResumeToleratesMissingSnapshot(t *testing.T) {
	cov := observer.NewLocalCoverageMap(256)
	d := newTestDriver(t, cov)
	d.SnapshotPath = "/nonexistent/path/state.snapshot.xz"

	d.Resume() // must not panic on a missing file
}
