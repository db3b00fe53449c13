// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package state holds the evolutionary state one fuzzing worker owns
// exclusively for the duration of a run: its random stream, corpora,
// feedback state, metadata, and size limits. Grounded on original_source
// libafl/src/state/mod.rs's StdState field layout, expressed as a plain
// Go struct guarded by a mutex rather than the source's interior-
// mutability-via-RefCell pattern.
package state

import (
	"sync"
	"time"

	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/feedback"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
)

// defaultMaxSize is the default cap on a mutated input's length.
const defaultMaxSize = 1 << 20

// Stateful is implemented by a Feedback that carries persistent data
// worth including in a snapshot (e.g. MaxMapFeedback's best[] map).
// Feedbacks that don't implement it are simply reconstructed fresh on
// restart.
type Stateful interface {
	SnapshotState() any
	RestoreState(any)
}

// State is constructed once per worker process and borrowed mutably by
// each fuzzing iteration. It exclusively owns the corpus, the solutions
// corpus, the random source, the feedback pipeline's persistent data,
// and the free-form metadata map.
type State struct {
	mu sync.Mutex

	Rand       *randsrc.Source
	Executions uint64
	StartTime  time.Time

	Corpus    corpus.Corpus
	Solutions corpus.Corpus

	Feedback  feedback.Feedback
	Objective feedback.Feedback

	Metadata map[string]any

	MaxSize int
	// StabilityRatio is the fraction of reruns of the same input that
	// reproduce identical coverage. No stage in this module sets it; zero
	// means it has not been measured.
	StabilityRatio float64
}

// New constructs a fresh State with the given seed, corpora, and
// feedback/objective pipelines.
func New(seed int64, c, solutions corpus.Corpus, fb, obj feedback.Feedback) *State {
	return &State{
		Rand:      randsrc.New(seed),
		StartTime: time.Now(),
		Corpus:    c,
		Solutions: solutions,
		Feedback:  fb,
		Objective: obj,
		Metadata:  make(map[string]any),
		MaxSize:   defaultMaxSize,
	}
}

// IncrementExecutions bumps the monotonic executions counter by one and
// returns the new value.
func (s *State) IncrementExecutions() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Executions++
	return s.Executions
}

// ExecutionsCount reads the executions counter.
func (s *State) ExecutionsCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Executions
}

// SetMetadata attaches a record under tag to the global state.
func (s *State) SetMetadata(tag string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metadata[tag] = v
}

// GetMetadata fetches a record previously attached with SetMetadata.
func (s *State) GetMetadata(tag string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Metadata[tag]
	return v, ok
}
