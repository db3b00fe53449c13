// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
)

type countingFeedback struct {
	name   string
	result bool
	calls  int
}

func (f *countingFeedback) Name() string { return f.name }
func (f *countingFeedback) IsInteresting(tc *corpus.Testcase, status *executor.ExitStatus) bool {
	f.calls++
	return f.result
}
func (f *countingFeedback) AppendMetadata(tc *corpus.Testcase)  {}
func (f *countingFeedback) DiscardMetadata(tc *corpus.Testcase) {}

func TestOrEvaluatesAllChildren(t *testing.T) {
	a := &countingFeedback{name: "a", result: true}
	b := &countingFeedback{name: "b", result: false}
	combined := Or(a, b)

	tc := corpus.NewTestcase(corpus.NewInput(nil))
	require.True(t, combined.IsInteresting(tc, &executor.ExitStatus{}))
	require.Equal(t, 1, a.calls)
	require.Equal(t, 1, b.calls, "feedback_or must not short-circuit")
}

func TestAndEvaluatesAllChildren(t *testing.T) {
	a := &countingFeedback{name: "a", result: true}
	b := &countingFeedback{name: "b", result: false}
	combined := And(a, b)

	tc := corpus.NewTestcase(corpus.NewInput(nil))
	require.False(t, combined.IsInteresting(tc, &executor.ExitStatus{}))
	require.Equal(t, 1, a.calls)
	require.Equal(t, 1, b.calls, "feedback_and must not short-circuit")
}

func TestCrashAndTimeoutFeedback(t *testing.T) {
	tc := corpus.NewTestcase(corpus.NewInput(nil))
	crash := NewCrashFeedback()
	timeout := NewTimeoutFeedback()

	require.True(t, crash.IsInteresting(tc, &executor.ExitStatus{Kind: executor.ExitCrash}))
	require.False(t, crash.IsInteresting(tc, &executor.ExitStatus{Kind: executor.ExitOK}))
	require.True(t, timeout.IsInteresting(tc, &executor.ExitStatus{Kind: executor.ExitTimeout}))
	require.False(t, timeout.IsInteresting(tc, &executor.ExitStatus{Kind: executor.ExitCrash}))
}
