// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"github.com/glaslos/tlsh"

	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/executor"
)

const metadataTLSH = "tlsh"

// TLSHDedupFeedback wraps a crash-classifying feedback and additionally
// requires the crash's backtrace text to be fuzzily dissimilar from
// every previously accepted crash, so a fuzzer that finds the same bug
// through a thousand different inputs only reports it once. Compose as
// feedback.And(CrashFeedback, TLSHDedupFeedback).
type TLSHDedupFeedback struct {
	// threshold is the minimum TLSH diff distance from every known
	// cluster for a new crash to count as distinct; below it, the crash
	// is considered a duplicate and reported as not interesting.
	threshold int
	known     []*tlsh.Tlsh
	lastHash  *tlsh.Tlsh
}

// NewTLSHDedupFeedback returns a dedup feedback using threshold as the
// minimum distance (TLSH's own documented scale, 0 == identical) for a
// crash to be treated as a new cluster.
func NewTLSHDedupFeedback(threshold int) *TLSHDedupFeedback {
	return &TLSHDedupFeedback{threshold: threshold}
}

func (f *TLSHDedupFeedback) Name() string { return "tlsh_dedup" }

func (f *TLSHDedupFeedback) IsInteresting(tc *corpus.Testcase, status *executor.ExitStatus) bool {
	f.lastHash = nil
	if status.Kind != executor.ExitCrash {
		return false
	}
	if len(status.Stderr) == 0 {
		// No text to fingerprint at all; treat as distinct rather than
		// drop the crash.
		return true
	}
	h, err := tlsh.HashBytes(status.Stderr)
	if err != nil {
		// Too little/too uniform text to fingerprint (TLSH needs some
		// minimum entropy); treat as distinct rather than drop the crash.
		return true
	}
	f.lastHash = h
	for _, k := range f.known {
		if h.Diff(k) < f.threshold {
			return false
		}
	}
	return true
}

func (f *TLSHDedupFeedback) AppendMetadata(tc *corpus.Testcase) {
	if f.lastHash == nil {
		return
	}
	f.known = append(f.known, f.lastHash)
	tc.SetMetadata(metadataTLSH, f.lastHash.String())
}

func (f *TLSHDedupFeedback) DiscardMetadata(tc *corpus.Testcase) {
	tc.DeleteMetadata(metadataTLSH)
}
