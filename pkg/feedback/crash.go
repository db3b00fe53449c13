// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
)

// CrashFeedback is used as an objective: interesting iff the run
// crashed.
type CrashFeedback struct{}

func NewCrashFeedback() *CrashFeedback { return &CrashFeedback{} }

func (f *CrashFeedback) Name() string { return "crash" }

func (f *CrashFeedback) IsInteresting(tc *corpus.Testcase, status *executor.ExitStatus) bool {
	return status.Kind == executor.ExitCrash
}

func (f *CrashFeedback) AppendMetadata(tc *corpus.Testcase)  {}
func (f *CrashFeedback) DiscardMetadata(tc *corpus.Testcase) {}

// TimeoutFeedback is used as an objective: interesting iff the run
// timed out.
type TimeoutFeedback struct{}

func NewTimeoutFeedback() *TimeoutFeedback { return &TimeoutFeedback{} }

func (f *TimeoutFeedback) Name() string { return "timeout" }

func (f *TimeoutFeedback) IsInteresting(tc *corpus.Testcase, status *executor.ExitStatus) bool {
	return status.Kind == executor.ExitTimeout
}

func (f *TimeoutFeedback) AppendMetadata(tc *corpus.Testcase)  {}
func (f *TimeoutFeedback) DiscardMetadata(tc *corpus.Testcase) {}
