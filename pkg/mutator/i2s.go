// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"github.com/fuzzforge/fuzzforge/pkg/cmplog"
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

type i2sCandidate struct {
	pattern, replacement []byte
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

// i2sCandidates builds the set of (pattern, replacement) pairs
// I2SRandReplace tries for one captured comparison: the literal and
// counterpart bytes, each also tried byte-swapped, for integer widths;
// decreasing-length shared prefixes for byte-string
// operands.
func i2sCandidates(cv cmplog.CmpValues) []i2sCandidate {
	if cv.Lhs.Kind == cmplog.KindBytes || cv.Rhs.Kind == cmplog.KindBytes {
		a, b := cv.Lhs.AsBytes(), cv.Rhs.AsBytes()
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		var out []i2sCandidate
		for length := n; length > 0; length-- {
			out = append(out,
				i2sCandidate{pattern: a[:length], replacement: b[:length]},
				i2sCandidate{pattern: b[:length], replacement: a[:length]},
			)
		}
		return out
	}
	a, b := cv.Lhs.AsBytes(), cv.Rhs.AsBytes()
	return []i2sCandidate{
		{pattern: a, replacement: b},
		{pattern: b, replacement: a},
		{pattern: reversed(a), replacement: reversed(b)},
		{pattern: reversed(b), replacement: reversed(a)},
	}
}

type i2sRandReplace struct{}

// I2SRandReplace replaces the first occurrence (scanning from a random
// start) of a captured compare operand's byte pattern with its
// counterpart, so the input is nudged toward satisfying a branch the
// tracing run observed but did not take.
func I2SRandReplace() Mutator { return i2sRandReplace{} }

func (i2sRandReplace) Name() string { return "I2SRandReplace" }

func (i2sRandReplace) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	v, ok := st.GetMetadata(cmplog.MetadataTag)
	if !ok {
		return Skipped, nil
	}
	meta, ok := v.(*cmplog.Metadata)
	if !ok || meta.Len() == 0 {
		return Skipped, nil
	}
	all := meta.All()
	cv := all[rnd.Choose(len(all))]
	candidates := i2sCandidates(cv)
	if len(candidates) == 0 {
		return Skipped, nil
	}

	b := in.Bytes()
	if len(b) == 0 {
		return Skipped, nil
	}
	start := rnd.Choose(len(b))
	for i := 0; i < len(b); i++ {
		off := (start + i) % len(b)
		for _, c := range candidates {
			if len(c.pattern) == 0 || off+len(c.pattern) > len(b) {
				continue
			}
			if matchesAt(b, off, c.pattern) {
				copy(b[off:off+len(c.replacement)], c.replacement)
				return Mutated, nil
			}
		}
	}
	return Skipped, nil
}

func matchesAt(b []byte, off int, pattern []byte) bool {
	for i, p := range pattern {
		if b[off+i] != p {
			return false
		}
	}
	return true
}
