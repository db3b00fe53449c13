// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fuzzer implements the per-iteration driver loop: schedule a
// corpus entry, run every configured stage against it, and evaluate each
// stage-produced candidate against the feedback/objective pipeline.
package fuzzer

import (
	"context"

	"github.com/fuzzforge/fuzzforge/pkg/asan"
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/event"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
	"github.com/fuzzforge/fuzzforge/pkg/feedback"
	"github.com/fuzzforge/fuzzforge/pkg/metrics"
	"github.com/fuzzforge/fuzzforge/pkg/observer"
	"github.com/fuzzforge/fuzzforge/pkg/stage"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// Driver owns one worker's fuzzing loop. It implements stage.Evaluator
// so every Stage submits candidates back through Evaluate without the
// stage package ever importing this one.
type Driver struct {
	State     *state.State
	Stages    []stage.Stage
	Scheduler corpus.Scheduler
	Executor  executor.Executor
	Coverage  *observer.CoverageMap
	Time      *observer.TimeObserver
	Events    event.Manager     // nil disables notification
	Metrics   *metrics.Recorder // nil disables metrics

	// Rarity tracks edge diversity across recent corpus additions, purely
	// for the EdgeRarityScore gauge; it never influences IsInteresting.
	Rarity *corpus.EdgeRarityTracker

	// Allocator, when set, is checked for leaks on shutdown. nil when the
	// target is an external subprocess with no shared Go heap to watch.
	Allocator *asan.Allocator

	// SnapshotPath, when non-empty, is where State is persisted after
	// every stage completes, so a restart loses at most one stage's
	// worth of work for the in-flight corpus index.
	SnapshotPath string
}

// Evaluate runs in against the target and applies the full evaluation
// pipeline: execute, increment executions, evaluate feedback and
// objective (both always evaluated), add to solutions/corpus/discard,
// and notify the event manager.
func (d *Driver) Evaluate(ctx context.Context, in *corpus.Input) (*executor.ExitStatus, error) {
	in.Truncate(d.State.MaxSize)

	d.Coverage.Reset()
	d.Time.Start()
	status, err := d.Executor.Run(ctx, in.Bytes())
	d.Time.Stop()
	if err != nil {
		return nil, err
	}
	d.State.IncrementExecutions()
	if d.Metrics != nil {
		d.Metrics.Executions.Inc()
		d.Metrics.RunLatencyUs.Observe(float64(d.Time.Last().Microseconds()))
	}

	tc := corpus.NewTestcase(in)
	feedbackInteresting := d.State.Feedback.IsInteresting(tc, status)
	objectiveInteresting := d.State.Objective.IsInteresting(tc, status)

	switch {
	case objectiveInteresting:
		d.State.Objective.AppendMetadata(tc)
		d.State.Feedback.DiscardMetadata(tc)
		idx := d.State.Solutions.Add(tc)
		if d.Metrics != nil {
			d.Metrics.Solutions.Inc()
		}
		d.fire(event.NewSolutionEvent(idx))
		d.fire(event.LogEvent("solution %d: %s", idx, d.diffAgainstParent(in)))
	case feedbackInteresting:
		d.State.Feedback.AppendMetadata(tc)
		d.State.Objective.DiscardMetadata(tc)
		idx := d.State.Corpus.Add(tc)
		edges, _ := feedback.NovelEdges(tc)
		execTime, _ := feedback.ExecTime(tc)
		d.Scheduler.OnAdd(idx, edges, in.Len(), execTime)
		if d.Rarity != nil {
			if d.Metrics != nil {
				d.Metrics.EdgeRarityScore.Set(float64(d.Rarity.Score(edges)))
			}
			d.Rarity.Record(edges)
		}
		if d.Metrics != nil {
			d.Metrics.CorpusSize.Set(float64(d.State.Corpus.Count()))
		}
		d.fire(event.NewTestcaseEvent(idx, edges))
	default:
		d.State.Feedback.DiscardMetadata(tc)
		d.State.Objective.DiscardMetadata(tc)
	}
	return status, nil
}

// diffAgainstParent summarizes how in diverged from the corpus entry
// currently under the scheduler's cursor, for the log line accompanying
// a new solution. Falls back to a parent-less summary when
// no cursor is set or the parent fails to load.
func (d *Driver) diffAgainstParent(in *corpus.Input) string {
	idx, ok := d.State.Corpus.Current()
	if !ok {
		return "no parent"
	}
	parent, err := d.State.Corpus.Get(idx)
	if err != nil {
		return "no parent"
	}
	parentInput, err := parent.Load()
	if err != nil {
		return "no parent"
	}
	return corpus.DiffSummary(parentInput.Bytes(), in.Bytes())
}

func (d *Driver) fire(e event.Event) {
	if d.Events == nil {
		return
	}
	_ = d.Events.Fire(e)
}

// checkLeaks reports every still-live allocation as a Log event, the
// same point in the lifecycle the original allocator's leak check runs
// at: process shutdown.
func (d *Driver) checkLeaks() {
	if d.Allocator == nil {
		return
	}
	for _, err := range d.Allocator.CheckForLeaks() {
		d.fire(event.LogEvent("%s", err))
	}
}

// RunOnce performs one scheduler pick plus every configured stage
// against it, persisting State after each stage if SnapshotPath is set.
func (d *Driver) RunOnce(ctx context.Context) error {
	idx, err := d.Scheduler.Next(d.State.Rand, d.State.Corpus)
	if err != nil {
		return err
	}
	if err := d.State.Corpus.SetCurrent(idx); err != nil {
		return err
	}
	for _, s := range d.Stages {
		if err := s.Perform(ctx, d, d.State, idx); err != nil {
			return err
		}
		if d.SnapshotPath != "" {
			if err := d.State.Save(d.SnapshotPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run drives RunOnce in a loop until ctx is canceled.
func (d *Driver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.checkLeaks()
			d.fire(event.ShuttingDownEvent())
			return nil
		default:
		}
		if err := d.RunOnce(ctx); err != nil {
			return err
		}
	}
}

// Resume restores State from SnapshotPath if present. Per Load's
// contract, on-disk corpora must be reloaded from their directories
// before State.Load rebinds the random stream and metadata onto them,
// so Resume reloads any *corpus.OnDisk corpus/solutions first. A missing
// or corrupt snapshot, or a reload failure, is tolerated: the driver
// simply continues with whatever State it was already constructed with.
func (d *Driver) Resume() {
	if d.SnapshotPath == "" {
		return
	}
	if oc, ok := d.State.Corpus.(*corpus.OnDisk); ok {
		if reloaded, err := corpus.LoadDir(oc.Dir()); err == nil {
			d.State.Corpus = reloaded
		}
	}
	if oc, ok := d.State.Solutions.(*corpus.OnDisk); ok {
		if reloaded, err := corpus.LoadDir(oc.Dir()); err == nil {
			d.State.Solutions = reloaded
		}
	}
	_ = d.State.Load(d.SnapshotPath)
}
