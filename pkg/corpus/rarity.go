// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import "sync"

// maxRarityWindow bounds how many recent edge sets EdgeRarityTracker
// keeps counts for, so a long-running worker's memory stays flat instead
// of growing with total executions.
const maxRarityWindow = 2500

// rarityThreshold is the per-edge occurrence count below which an edge
// still counts as rare.
const rarityThreshold = 25

// EdgeRarityTracker scores how many of a candidate's hit edges are still
// rare across a sliding window of recent additions. It is a pure
// diagnostic: nothing in the feedback pipeline consults it, so it can
// never change which inputs MaxMapFeedback keeps. A Driver uses it only
// to report a corpus-diversity gauge alongside the executions/solutions
// counters.
type EdgeRarityTracker struct {
	mu       sync.Mutex
	counts   map[uint32]int
	window   [][]uint32
	windowAt int
}

// NewEdgeRarityTracker returns an empty tracker.
func NewEdgeRarityTracker() *EdgeRarityTracker {
	return &EdgeRarityTracker{counts: make(map[uint32]int)}
}

// Score reports how many of edges have been seen fewer than
// rarityThreshold times in the current window. Higher is more diverse.
func (t *EdgeRarityTracker) Score(edges []uint32) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	score := 0
	for _, e := range edges {
		if t.counts[e] < rarityThreshold {
			score++
		}
	}
	return score
}

// Record folds edges into the sliding window, evicting the oldest entry
// once the window is full.
func (t *EdgeRarityTracker) Record(edges []uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.window) < maxRarityWindow {
		t.window = append(t.window, edges)
	} else {
		old := t.window[t.windowAt]
		t.window[t.windowAt] = edges
		t.windowAt = (t.windowAt + 1) % maxRarityWindow
		for _, e := range old {
			t.counts[e]--
		}
	}
	for _, e := range edges {
		t.counts[e]++
	}
}
