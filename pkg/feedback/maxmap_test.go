// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
	"github.com/fuzzforge/fuzzforge/pkg/observer"
)

func TestMaxMapFeedbackNewMaximumIsInteresting(t *testing.T) {
	cov := observer.NewLocalCoverageMap(4)
	f := NewMaxMapFeedback("cov", cov, false)
	tc := corpus.NewTestcase(corpus.NewInput(nil))
	status := &executor.ExitStatus{Kind: executor.ExitOK}

	cov.Bytes()[1] = 5
	require.True(t, f.IsInteresting(tc, status))
	f.AppendMetadata(tc)
	edges, ok := NovelEdges(tc)
	require.True(t, ok)
	require.Equal(t, []uint32{1}, edges)

	// Same hit count again: not a new maximum, not interesting.
	cov.Reset()
	cov.Bytes()[1] = 5
	require.False(t, f.IsInteresting(tc, status))

	// A higher hit count at the same edge is interesting again.
	cov.Reset()
	cov.Bytes()[1] = 9
	require.True(t, f.IsInteresting(tc, status))
}

func TestMaxMapFeedbackIndexesOnlyMode(t *testing.T) {
	cov := observer.NewLocalCoverageMap(4)
	f := NewMaxMapFeedback("cov", cov, true)
	tc := corpus.NewTestcase(corpus.NewInput(nil))
	status := &executor.ExitStatus{}

	cov.Bytes()[2] = 1
	require.True(t, f.IsInteresting(tc, status))

	cov.Reset()
	cov.Bytes()[2] = 200 // higher count, but indexes mode only cares about presence
	require.False(t, f.IsInteresting(tc, status))
}
