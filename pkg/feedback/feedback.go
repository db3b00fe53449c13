// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package feedback classifies one execution as worth keeping (feedback
// pipeline) or worth reporting as a solution (objective pipeline).
// Grounded on original_source libafl/src/state/mod.rs's FeedbackState
// lifetime: each Feedback owns its own persistent data directly, and a
// Feedback whose data must survive a restart exposes it through
// state.Stateful (SnapshotState/RestoreState) for State's snapshot to
// save and restore, rather than splitting trait and state into two
// types the way the Rust source does.
package feedback

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
)

// Feedback is a post-execution predicate with side effects on whatever
// persistent data it owns. Both feedback_or and feedback_and evaluate
// every child, never short-circuiting, so accumulated state (e.g. a
// coverage maximum) stays monotonic regardless of the final verdict.
type Feedback interface {
	Name() string
	// IsInteresting inspects the just-finished run and reports whether
	// tc is worth keeping by this feedback's criteria.
	IsInteresting(tc *corpus.Testcase, status *executor.ExitStatus) bool
	// AppendMetadata attaches this feedback's per-testcase record when
	// tc is kept.
	AppendMetadata(tc *corpus.Testcase)
	// DiscardMetadata drops any per-testcase record when tc is not kept,
	// e.g. to free an observer snapshot that was tentatively attached.
	DiscardMetadata(tc *corpus.Testcase)
}

// orFeedback is feedback_or: interesting iff any child is, but every
// child's IsInteresting always runs.
type orFeedback struct {
	children []Feedback
}

// Or builds a total-evaluation logical-OR combinator.
func Or(children ...Feedback) Feedback {
	return &orFeedback{children: children}
}

func (f *orFeedback) Name() string { return "or" }

// Children exposes the wrapped feedbacks so callers (e.g. a State
// snapshot walking for Stateful feedbacks) can recurse into a
// combinator tree.
func (f *orFeedback) Children() []Feedback { return f.children }

func (f *orFeedback) IsInteresting(tc *corpus.Testcase, status *executor.ExitStatus) bool {
	interesting := false
	for _, c := range f.children {
		if c.IsInteresting(tc, status) {
			interesting = true
		}
	}
	return interesting
}

func (f *orFeedback) AppendMetadata(tc *corpus.Testcase) {
	for _, c := range f.children {
		c.AppendMetadata(tc)
	}
}

func (f *orFeedback) DiscardMetadata(tc *corpus.Testcase) {
	for _, c := range f.children {
		c.DiscardMetadata(tc)
	}
}

// andFeedback is feedback_and: interesting iff every child is, with the
// same total-evaluation rule as Or.
type andFeedback struct {
	children []Feedback
}

// And builds a total-evaluation logical-AND combinator.
func And(children ...Feedback) Feedback {
	return &andFeedback{children: children}
}

func (f *andFeedback) Name() string { return "and" }

// Children exposes the wrapped feedbacks, symmetric with orFeedback.
func (f *andFeedback) Children() []Feedback { return f.children }

func (f *andFeedback) IsInteresting(tc *corpus.Testcase, status *executor.ExitStatus) bool {
	interesting := true
	for _, c := range f.children {
		if !c.IsInteresting(tc, status) {
			interesting = false
		}
	}
	return interesting
}

func (f *andFeedback) AppendMetadata(tc *corpus.Testcase) {
	for _, c := range f.children {
		c.AppendMetadata(tc)
	}
}

func (f *andFeedback) DiscardMetadata(tc *corpus.Testcase) {
	for _, c := range f.children {
		c.DiscardMetadata(tc)
	}
}
