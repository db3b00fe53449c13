// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"time"

	"github.com/fuzzforge/fuzzforge/pkg/ferr"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
)

// Scheduler picks which live testcase the driver runs a mutation round
// against next, and learns about newly discovered coverage edges as the
// corpus grows. The shape follows a ChooseProgram/SaveProgram-style
// selection interface, generalized from "select a *prog.Prog weighted
// by per-PC instance count" to "select an Input index, either
// round-robin or weighted toward the greedy AFL favored set".
type Scheduler interface {
	// Next returns the index of the testcase to run next.
	Next(rnd *randsrc.Source, c Corpus) (int, error)
	// OnAdd is called every time idx is added to the corpus, with the set
	// of coverage edges idx was the first (or a cheaper) testcase to hit.
	OnAdd(idx int, edges []uint32, length int, execTime time.Duration)
}

// QueueCorpusScheduler walks the corpus round-robin, skipping tombstoned
// indices — the plain FIFO fallback for when no PC weighting data is
// available yet.
type QueueCorpusScheduler struct {
	cursor int
}

// NewQueueCorpusScheduler returns a scheduler that advances a cursor
// modulo the corpus size, wrapping around forever.
func NewQueueCorpusScheduler() *QueueCorpusScheduler {
	return &QueueCorpusScheduler{cursor: -1}
}

func (s *QueueCorpusScheduler) Next(rnd *randsrc.Source, c Corpus) (int, error) {
	n := c.Len()
	if n == 0 {
		return 0, ferr.Wrap(ferr.ErrIllegalState, "schedule from empty corpus")
	}
	for i := 0; i < n; i++ {
		s.cursor = (s.cursor + 1) % n
		if _, err := c.Get(s.cursor); err == nil {
			return s.cursor, nil
		}
	}
	return 0, ferr.Wrap(ferr.ErrIllegalState, "corpus has no live testcases")
}

func (s *QueueCorpusScheduler) OnAdd(int, []uint32, int, time.Duration) {}

// favoredProbability is the fraction of schedule calls that pick from the
// minimized favored set rather than falling back to the base scheduler,
// matching AFL's fuzz_one "mostly pick favorites, occasionally explore
// everything else" cadence.
const favoredProbability = 0.95

// IndexesLenTimeMinimizerCorpusScheduler wraps a base Scheduler and
// layers AFL's greedy minimization on top: for every coverage edge ever
// seen, it remembers the index of the testcase with the smallest
// length*execTime product that still covers that edge. The union of
// those indices is the favored set. The bookkeeping follows a per-PC
// weighted-selection-tree shape, generalized from "weight =
// 1/instance_count" to "favor the cheapest representative of each edge".
type IndexesLenTimeMinimizerCorpusScheduler struct {
	base Scheduler

	bestForEdge map[uint32]int // edge -> index of cheapest known testcase
	cost        map[int]int64  // index -> length*execTime(ns), cached
	favored     map[int]bool   // recomputed after every OnAdd
}

// NewIndexesLenTimeMinimizerCorpusScheduler wraps base with greedy
// favored-set selection.
func NewIndexesLenTimeMinimizerCorpusScheduler(base Scheduler) *IndexesLenTimeMinimizerCorpusScheduler {
	return &IndexesLenTimeMinimizerCorpusScheduler{
		base:        base,
		bestForEdge: make(map[uint32]int),
		cost:        make(map[int]int64),
		favored:     make(map[int]bool),
	}
}

func (s *IndexesLenTimeMinimizerCorpusScheduler) Next(rnd *randsrc.Source, c Corpus) (int, error) {
	if len(s.favored) > 0 && rnd.Below(1000) < uint64(favoredProbability*1000) {
		// Pick uniformly among the favored indices that are still live.
		live := make([]int, 0, len(s.favored))
		for idx := range s.favored {
			if _, err := c.Get(idx); err == nil {
				live = append(live, idx)
			}
		}
		if len(live) > 0 {
			return live[rnd.Below(uint64(len(live)))], nil
		}
	}
	return s.base.Next(rnd, c)
}

// OnAdd records idx's cost for each edge it covers and recomputes the
// favored set whenever a cheaper representative displaces the current
// one for any edge. The favored set is never cached across a Remove: a
// removed index simply stops appearing live in Next, so callers do not
// need to notify this scheduler on removal.
func (s *IndexesLenTimeMinimizerCorpusScheduler) OnAdd(idx int, edges []uint32, length int, execTime time.Duration) {
	cost := int64(length) * int64(execTime)
	s.cost[idx] = cost

	changed := false
	for _, e := range edges {
		cur, ok := s.bestForEdge[e]
		if !ok || cost < s.cost[cur] {
			s.bestForEdge[e] = idx
			changed = true
		}
	}
	if changed {
		s.recompute()
	}
}

func (s *IndexesLenTimeMinimizerCorpusScheduler) recompute() {
	favored := make(map[int]bool, len(s.bestForEdge))
	for _, idx := range s.bestForEdge {
		favored[idx] = true
	}
	s.favored = favored
}

// Favored reports whether idx is currently in the minimized favored set,
// for metrics and tests.
func (s *IndexesLenTimeMinimizerCorpusScheduler) Favored(idx int) bool {
	return s.favored[idx]
}
