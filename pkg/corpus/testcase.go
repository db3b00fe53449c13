// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"sync"
	"time"

	"github.com/fuzzforge/fuzzforge/pkg/ferr"
)

// Testcase wraps an Input plus the bookkeeping the scheduler and feedback
// pipeline hang off it: cached execution time, an on-disk handle when
// lazily loaded, per-testcase metadata, and an executions-since-last-
// interesting counter.
type Testcase struct {
	mu sync.Mutex

	input    *Input
	path     string // empty unless backed by a file
	loaded   bool
	execTime time.Duration

	metadata map[string]any

	// ExecSinceInteresting is the executions-since-last-interesting
	// counter. Nothing in this module updates or reads it: the driver
	// leaves it at zero, and the minimizer scheduler recomputes its
	// favored set from OnAdd alone.
	ExecSinceInteresting int
}

// NewTestcase wraps an already-loaded Input.
func NewTestcase(in *Input) *Testcase {
	return &Testcase{input: in, loaded: true, metadata: map[string]any{}}
}

// newLazyTestcase builds a handle that will load its Input from path on
// first access, for the OnDisk corpus variant.
func newLazyTestcase(path string) *Testcase {
	return &Testcase{path: path, metadata: map[string]any{}}
}

// Load returns the Testcase's Input, reading it from disk on first call
// if the Testcase was created lazily.
func (tc *Testcase) Load() (*Input, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.loaded {
		return tc.input, nil
	}
	if tc.path == "" {
		return nil, ferr.Wrap(ferr.ErrIllegalState, "testcase has neither input nor path")
	}
	in, err := LoadInput(tc.path)
	if err != nil {
		return nil, err
	}
	tc.input = in
	tc.loaded = true
	return tc.input, nil
}

// Input returns the already-loaded Input without touching disk, or nil
// if this is a lazy handle that has not been loaded yet.
func (tc *Testcase) Input() *Input {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.input
}

// Path returns the on-disk path, or "" for an in-memory-only testcase.
func (tc *Testcase) Path() string { return tc.path }

// ExecTime returns the cached execution time recorded by TimeFeedback.
func (tc *Testcase) ExecTime() time.Duration {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.execTime
}

// SetExecTime records the execution time.
func (tc *Testcase) SetExecTime(d time.Duration) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.execTime = d
}

// SetMetadata attaches a metadata record under a type-tag key.
func (tc *Testcase) SetMetadata(tag string, v any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.metadata[tag] = v
}

// Metadata fetches a metadata record by type-tag.
func (tc *Testcase) Metadata(tag string) (any, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	v, ok := tc.metadata[tag]
	return v, ok
}

// DeleteMetadata drops a metadata record, used when an input is
// discarded rather than kept (feedback.DiscardMetadata).
func (tc *Testcase) DeleteMetadata(tag string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	delete(tc.metadata, tag)
}
