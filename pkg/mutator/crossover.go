// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// pickOtherCorpusEntry returns a live corpus entry whose index differs
// from the scheduler's current cursor, or ok=false if none exists.
func pickOtherCorpusEntry(rnd *randsrc.Source, st *state.State) (*corpus.Input, bool) {
	c := st.Corpus
	n := c.Len()
	if n == 0 {
		return nil, false
	}
	current, hasCurrent := c.Current()

	start := rnd.Choose(n)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if hasCurrent && idx == current {
			continue
		}
		tc, err := c.Get(idx)
		if err != nil {
			continue
		}
		in, err := tc.Load()
		if err != nil || in == nil {
			continue
		}
		return in, true
	}
	return nil, false
}

type crossover struct {
	name    string
	replace bool
}

// CrossoverInsert takes a random slice of a different corpus input and
// inserts it at a random offset of this one, clamped to max_size.
func CrossoverInsert() Mutator { return crossover{name: "CrossoverInsert"} }

// CrossoverReplace takes a random slice of a different corpus input and
// overwrites a random window of this one with it.
func CrossoverReplace() Mutator { return crossover{name: "CrossoverReplace", replace: true} }

func (m crossover) Name() string { return m.name }

func (m crossover) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	other, ok := pickOtherCorpusEntry(rnd, st)
	if !ok || other.Len() == 0 {
		return Skipped, nil
	}
	b := in.Bytes()
	ob := other.Bytes()

	sliceLen := 1 + rnd.Choose(len(ob))
	sliceOff := rnd.Choose(len(ob) - sliceLen + 1)
	slice := ob[sliceOff : sliceOff+sliceLen]

	if m.replace {
		if len(b) == 0 {
			return Skipped, nil
		}
		at := rnd.Choose(len(b))
		n := sliceLen
		if at+n > len(b) {
			n = len(b) - at
		}
		copy(b[at:at+n], slice[:n])
		return Mutated, nil
	}

	maxSize := st.MaxSize
	if len(b)+sliceLen > maxSize {
		sliceLen = maxSize - len(b)
	}
	if sliceLen <= 0 {
		return Skipped, nil
	}
	at := rnd.Choose(len(b) + 1)
	out := make([]byte, 0, len(b)+sliceLen)
	out = append(out, b[:at]...)
	out = append(out, slice[:sliceLen]...)
	out = append(out, b[at:]...)
	in.SetBytes(out)
	return Mutated, nil
}

type splice struct{}

// Splice replaces this input's tail, starting at a random point within
// the range the two inputs first differ, with the other input's tail.
func Splice() Mutator { return splice{} }

func (splice) Name() string { return "Splice" }

// locateDiffs returns the first and last byte offsets within the common
// prefix of a and b where they differ, and ok=false if they are
// identical over that common prefix.
func locateDiffs(a, b []byte) (first, last int, ok bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	first, last = -1, -1
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		return 0, 0, false
	}
	return first, last, true
}

func (splice) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	const maxRetries = 3
	b := in.Bytes()
	for attempt := 0; attempt < maxRetries; attempt++ {
		other, ok := pickOtherCorpusEntry(rnd, st)
		if !ok {
			return Skipped, nil
		}
		ob := other.Bytes()
		first, last, ok := locateDiffs(b, ob)
		if !ok || first == last {
			continue
		}
		split := first + 1 + rnd.Choose(last-first)
		out := make([]byte, 0, split+(len(ob)-split))
		out = append(out, b[:split]...)
		if split < len(ob) {
			out = append(out, ob[split:]...)
		}
		in.SetBytes(out)
		return Mutated, nil
	}
	return Skipped, nil
}
