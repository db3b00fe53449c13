// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"log"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/fuzzforge/fuzzforge/pkg/asan"
	"github.com/fuzzforge/fuzzforge/pkg/cmplog"
	"github.com/fuzzforge/fuzzforge/pkg/config"
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/event"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
	"github.com/fuzzforge/fuzzforge/pkg/feedback"
	"github.com/fuzzforge/fuzzforge/pkg/fuzzer"
	"github.com/fuzzforge/fuzzforge/pkg/metrics"
	"github.com/fuzzforge/fuzzforge/pkg/mutator"
	"github.com/fuzzforge/fuzzforge/pkg/observer"
	"github.com/fuzzforge/fuzzforge/pkg/stage"
	"github.com/fuzzforge/fuzzforge/pkg/state"
	"github.com/fuzzforge/fuzzforge/pkg/tokens"
)

// coverageMapSize is the demo harness's edge table size; an
// instrumented real target would report its own map size instead.
const coverageMapSize = 1 << 16

// demoMagic is the byte string the bundled demo harness hides a crash
// behind, giving the compare-log tracing stage and I2SRandReplace
// something concrete to discover when no --command target is configured.
var demoMagic = []byte("FUZZ_CRASH")

// newDemoHarness returns an in-process target that records coverage by
// xoring each byte's value with its position modulo 8 and hides a panic behind
// demoMagic appearing anywhere in the input, additionally logging every
// byte comparison against demoMagic so the compare-log/I2S machinery has
// something to chew on without a real instrumented binary.
//
// It also round-trips the input through the shadow allocator: every run
// copies the input into a freshly Alloc'd buffer and Releases it before
// returning, so a build with -race or an external checker watching the
// allocator's bookkeeping exercises the same alloc/release/shadow path a
// real instrumented target's malloc hooks would drive.
func newDemoHarness(cov *observer.CoverageMap, cmp *observer.CompareLogObserver, alloc *asan.Allocator) executor.Harness {
	return func(input []byte) executor.ExitKind {
		if alloc != nil {
			if addr, err := alloc.Alloc(len(input)); err == nil {
				if buf, err := alloc.Bytes(addr); err == nil {
					copy(buf, input)
				}
				defer func() {
					_ = alloc.Release(addr)
					alloc.Reset()
				}()
			}
		}

		buf := cov.Bytes()
		for i, b := range input {
			edge := (uint32(b) ^ uint32(i%8)) % uint32(len(buf))
			if buf[edge] < 255 {
				buf[edge]++
			}
			if i < len(demoMagic) {
				cmp.Record(uint64(i),
					cmplog.Value{Kind: cmplog.KindU8, U: uint64(b)},
					cmplog.Value{Kind: cmplog.KindU8, U: uint64(demoMagic[i])})
			}
		}
		if bytes.Contains(input, demoMagic) {
			panic("demo target: found the hidden magic value")
		}
		return executor.ExitOK
	}
}

// buildExecutor returns the executor a worker runs inputs against: a
// subprocess if cfg names a command, otherwise the bundled demo harness.
func buildExecutor(cfg *config.Config, cov *observer.CoverageMap, cmp *observer.CompareLogObserver, alloc *asan.Allocator) executor.Executor {
	var limiter *rate.Limiter
	if cfg.Executor.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Executor.RateLimitPerSec), 1)
	}
	if len(cfg.Executor.Command) > 0 {
		return executor.NewCommandExecutor(cfg.Executor.Command[0], cfg.Executor.Command[1:], limiter)
	}
	return executor.NewInProcessExecutor(newDemoHarness(cov, cmp, alloc), limiter)
}

// buildAllocator constructs the shadow allocator a worker's in-process
// harness exercises. A subprocess target has no shared Go heap for this
// allocator to watch, so it is only built for the in-process demo path.
func buildAllocator(cfg *config.Config) (*asan.Allocator, error) {
	if len(cfg.Executor.Command) > 0 {
		return nil, nil
	}
	return asan.New(asan.Options{
		MaxAllocation:      cfg.Asan.MaxAllocation,
		MaxTotalAllocation: cfg.Asan.MaxTotalAllocation,
		CaptureBacktraces:  cfg.Asan.CaptureBacktraces,
	})
}

// havocMutator builds the standard byte/structural mutator set, the
// same library a ScheduledMutator draws randomly from on every round.
func havocMutator() mutator.Mutator {
	return mutator.NewScheduledMutator(
		mutator.BitFlip(), mutator.ByteFlip(), mutator.ByteInc(), mutator.ByteDec(),
		mutator.ByteNeg(), mutator.ByteRand(),
		mutator.ByteAdd(), mutator.WordAdd(), mutator.DwordAdd(), mutator.QwordAdd(),
		mutator.ByteInteresting(), mutator.WordInteresting(), mutator.DwordInteresting(),
		mutator.BytesDelete(), mutator.BytesExpand(), mutator.BytesInsert(), mutator.BytesRandInsert(),
		mutator.BytesSet(), mutator.BytesRandSet(), mutator.BytesCopy(), mutator.BytesInsertCopy(),
		mutator.BytesSwap(),
		mutator.CrossoverInsert(), mutator.CrossoverReplace(), mutator.Splice(),
		mutator.TokenInsert(), mutator.TokenReplace(),
	)
}

// buildDriver wires one worker's State, feedback/objective pipelines,
// scheduler, stages, and collaborators from cfg. workerID distinguishes
// this worker's corpus/solutions subdirectories and metrics labels when
// several run in the same process.
func buildDriver(cfg *config.Config, workerID int) (*fuzzer.Driver, error) {
	corpusDir := cfg.CorpusDir
	solutionsDir := cfg.SolutionsDir
	workerName := fmt.Sprintf("worker-%d", workerID)
	if workerID > 0 {
		corpusDir = filepath.Join(corpusDir, workerName)
		solutionsDir = filepath.Join(solutionsDir, workerName)
	}

	corpusStore, err := corpus.NewOnDisk(corpusDir)
	if err != nil {
		return nil, err
	}
	solutionsStore, err := corpus.NewOnDisk(solutionsDir)
	if err != nil {
		return nil, err
	}

	cov := observer.NewLocalCoverageMap(coverageMapSize)
	timeObs := observer.NewTimeObserver()
	cmplogObs := observer.NewCompareLogObserver()

	fb := feedback.Or(
		feedback.NewMaxMapFeedback("cov", cov, false),
		feedback.NewTimeFeedback(timeObs),
	)
	obj := feedback.Or(
		feedback.And(feedback.NewCrashFeedback(), feedback.NewTLSHDedupFeedback(cfg.DedupThreshold)),
		feedback.NewTimeoutFeedback(),
	)

	st := state.New(cfg.Seed+int64(workerID), corpusStore, solutionsStore, fb, obj)
	st.MaxSize = cfg.MaxInputSize
	if corpusStore.Count() == 0 {
		corpusStore.Add(corpus.NewTestcase(corpus.NewInput([]byte("seed"))))
	}

	for _, path := range cfg.TokenFiles {
		t, err := tokens.FromFile(path)
		if err != nil {
			return nil, err
		}
		st.SetMetadata(tokens.MetadataTag, t)
	}

	alloc, err := buildAllocator(cfg)
	if err != nil {
		return nil, err
	}

	exec := buildExecutor(cfg, cov, cmplogObs, alloc)

	sched := corpus.NewIndexesLenTimeMinimizerCorpusScheduler(corpus.NewQueueCorpusScheduler())

	// Ordering matters: the shadow tracing stage must populate cmplog
	// metadata before I2SRandReplace's own mutational stage can use it,
	// and that I2S-only stage must run before the general havoc stage so
	// it draws from fresh, untouched cmp metadata rather than leftovers
	// from whatever the havoc stage already mangled.
	stages := []stage.Stage{
		stage.NewShadowTracingStage(exec, cmplogObs),
		stage.NewStdMutationalStage(mutator.I2SRandReplace()),
		stage.NewStdMutationalStage(havocMutator()),
	}

	events := event.NewChannelManager(256)
	go func() {
		for e := range events.Events() {
			log.Printf("[%s] %s idx=%d edges=%d msg=%s", workerName, e.Kind, e.Index, len(e.Edges), e.Message)
		}
	}()

	return &fuzzer.Driver{
		State:        st,
		Stages:       stages,
		Scheduler:    sched,
		Executor:     exec,
		Coverage:     cov,
		Time:         timeObs,
		Events:       events,
		Metrics:      metrics.NewRecorder(workerName),
		Rarity:       corpus.NewEdgeRarityTracker(),
		Allocator:    alloc,
		SnapshotPath: snapshotPathFor(cfg.SnapshotPath, workerID),
	}, nil
}

func snapshotPathFor(base string, workerID int) string {
	if base == "" {
		return ""
	}
	if workerID == 0 {
		return base
	}
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s.%d%s", base[:len(base)-len(ext)], workerID, ext)
}
