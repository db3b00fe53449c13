// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
	"github.com/fuzzforge/fuzzforge/pkg/observer"
)

// metadataNovelEdges is the testcase metadata tag MaxMapFeedback attaches
// on interesting inputs: the list of newly-discovered edges, consumed by
// the corpus scheduler's minimizer.
const metadataNovelEdges = "novel_edges"

// MaxMapFeedback is interesting iff the attached coverage map hit any
// edge it had not hit harder (or, in indexes mode, at all) before.
// The persistent best[] array is kept directly on the struct.
type MaxMapFeedback struct {
	name string
	cov  *observer.CoverageMap
	best map[uint32]byte

	// indexesOnly switches from "new maximum" tracking to "any hit at
	// all" tracking, for coverage sources that only report booleans.
	indexesOnly bool

	lastNovel []uint32
}

// NewMaxMapFeedback builds a MaxMapFeedback reading from cov.
func NewMaxMapFeedback(name string, cov *observer.CoverageMap, indexesOnly bool) *MaxMapFeedback {
	return &MaxMapFeedback{
		name:        name,
		cov:         cov,
		best:        make(map[uint32]byte),
		indexesOnly: indexesOnly,
	}
}

func (f *MaxMapFeedback) Name() string { return f.name }

func (f *MaxMapFeedback) IsInteresting(tc *corpus.Testcase, status *executor.ExitStatus) bool {
	f.lastNovel = f.lastNovel[:0]
	hits := f.cov.AllHit()
	interesting := false
	for _, edge := range hits {
		cur := f.cov.Bytes()[edge]
		prevBest, seen := f.best[edge]
		if f.indexesOnly {
			if !seen {
				f.best[edge] = 1
				f.lastNovel = append(f.lastNovel, edge)
				interesting = true
			}
			continue
		}
		if !seen || cur > prevBest {
			f.best[edge] = cur
			f.lastNovel = append(f.lastNovel, edge)
			interesting = true
		}
	}
	return interesting
}

func (f *MaxMapFeedback) AppendMetadata(tc *corpus.Testcase) {
	novel := make([]uint32, len(f.lastNovel))
	copy(novel, f.lastNovel)
	tc.SetMetadata(metadataNovelEdges, novel)
}

func (f *MaxMapFeedback) DiscardMetadata(tc *corpus.Testcase) {
	tc.DeleteMetadata(metadataNovelEdges)
}

// NovelEdges returns the metadata MaxMapFeedback attached to tc, if any.
func NovelEdges(tc *corpus.Testcase) ([]uint32, bool) {
	v, ok := tc.Metadata(metadataNovelEdges)
	if !ok {
		return nil, false
	}
	edges, ok := v.([]uint32)
	return edges, ok
}

// SnapshotState returns the persistent best[] map for inclusion in a
// State snapshot, satisfying pkg/state's optional stateful-feedback
// interface.
func (f *MaxMapFeedback) SnapshotState() any { return f.best }

// RestoreState reinstates a best[] map loaded from a snapshot.
func (f *MaxMapFeedback) RestoreState(v any) {
	if m, ok := v.(map[uint32]byte); ok {
		f.best = m
	}
}
