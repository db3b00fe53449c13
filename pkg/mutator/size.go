// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// maxInsertLen bounds a single insert/set operation's length, matching
// the source's hard-coded small-window constant for these mutators.
const maxInsertLen = 16

type bytesDelete struct{}

// BytesDelete drops a random contiguous range, requiring size > 2 so a
// minimal 1-2 byte input is left alone rather than emptied.
func BytesDelete() Mutator { return bytesDelete{} }

func (bytesDelete) Name() string { return "BytesDelete" }

func (bytesDelete) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	b := in.Bytes()
	if len(b) <= 2 {
		return Skipped, nil
	}
	off := rnd.Choose(len(b))
	length := rnd.Choose(len(b) - off)
	out := make([]byte, 0, len(b)-length)
	out = append(out, b[:off]...)
	out = append(out, b[off+length:]...)
	in.SetBytes(out)
	return Mutated, nil
}

type growInsert struct {
	name string
	// fill picks the one byte written into every position of the new region;
	// existing is the input being grown, for modes that reuse a byte
	// already present in it.
	fill func(rnd *randsrc.Source, existing []byte) byte
}

func (m growInsert) Name() string { return m.name }

func (m growInsert) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	b := in.Bytes()
	maxSize := st.MaxSize
	if len(b) >= maxSize {
		return Skipped, nil
	}
	off := rnd.Choose(len(b) + 1)
	length := 1 + rnd.Choose(maxInsertLen)
	if len(b)+length > maxSize {
		length = maxSize - len(b)
	}
	if length <= 0 {
		return Skipped, nil
	}
	region := make([]byte, length)
	fillByte := m.fill(rnd, b)
	for i := range region {
		region[i] = fillByte
	}
	out := make([]byte, 0, len(b)+length)
	out = append(out, b[:off]...)
	out = append(out, region...)
	out = append(out, b[off:]...)
	in.SetBytes(out)
	return Mutated, nil
}

// BytesExpand grows the input by a zero-filled region.
func BytesExpand() Mutator {
	return growInsert{name: "BytesExpand", fill: func(*randsrc.Source, []byte) byte { return 0 }}
}

// BytesInsert grows the input by a region filled with a byte already
// present elsewhere in it.
func BytesInsert() Mutator {
	return growInsert{name: "BytesInsert", fill: func(rnd *randsrc.Source, existing []byte) byte {
		if len(existing) == 0 {
			return 0
		}
		return existing[rnd.Choose(len(existing))]
	}}
}

// BytesRandInsert grows the input by a region filled with one fresh
// random byte.
func BytesRandInsert() Mutator {
	return growInsert{name: "BytesRandInsert", fill: func(rnd *randsrc.Source, _ []byte) byte {
		return byte(rnd.Below(256))
	}}
}

type fillRange struct {
	name string
	fill func(rnd *randsrc.Source, existing []byte) byte
}

func (m fillRange) Name() string { return m.name }

func (m fillRange) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	b := in.Bytes()
	if len(b) == 0 {
		return Skipped, nil
	}
	off := rnd.Choose(len(b))
	maxLen := len(b) - off
	if maxLen > maxInsertLen {
		maxLen = maxInsertLen
	}
	length := 1 + rnd.Choose(maxLen)
	fillByte := m.fill(rnd, b)
	for i := 0; i < length; i++ {
		b[off+i] = fillByte
	}
	return Mutated, nil
}

// BytesSet overwrites a random range with a byte already present
// elsewhere in the input.
func BytesSet() Mutator {
	return fillRange{name: "BytesSet", fill: func(rnd *randsrc.Source, existing []byte) byte {
		return existing[rnd.Choose(len(existing))]
	}}
}

// BytesRandSet overwrites a random range with a fresh random byte.
func BytesRandSet() Mutator {
	return fillRange{name: "BytesRandSet", fill: func(rnd *randsrc.Source, _ []byte) byte {
		return byte(rnd.Below(256))
	}}
}

type bytesCopy struct{}

// BytesCopy overlap-safely copies one range onto another within the
// same input.
func BytesCopy() Mutator { return bytesCopy{} }

func (bytesCopy) Name() string { return "BytesCopy" }

func (bytesCopy) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	b := in.Bytes()
	if len(b) < 2 {
		return Skipped, nil
	}
	from := rnd.Choose(len(b))
	to := rnd.Choose(len(b))
	maxOf := from
	if to > maxOf {
		maxOf = to
	}
	avail := len(b) - maxOf
	if avail <= 0 {
		return Skipped, nil
	}
	length := 1 + rnd.Choose(avail)
	tmp := make([]byte, length)
	copyWithinOrAcross(tmp, 0, b, from, length)
	copyWithinOrAcross(b, to, tmp, 0, length)
	return Mutated, nil
}

type bytesInsertCopy struct{}

// BytesInsertCopy copies a random slice of the input into a freshly
// opened gap elsewhere in it.
func BytesInsertCopy() Mutator { return bytesInsertCopy{} }

func (bytesInsertCopy) Name() string { return "BytesInsertCopy" }

func (bytesInsertCopy) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	b := in.Bytes()
	if len(b) == 0 {
		return Skipped, nil
	}
	maxSize := st.MaxSize
	if len(b) >= maxSize {
		return Skipped, nil
	}
	maxLen := len(b)
	if maxLen > maxInsertLen {
		maxLen = maxInsertLen
	}
	if len(b)+maxLen > maxSize {
		maxLen = maxSize - len(b)
	}
	if maxLen <= 0 {
		return Skipped, nil
	}
	length := 1 + rnd.Choose(maxLen)
	from := rnd.Choose(len(b) - length + 1)
	to := rnd.Choose(len(b) + 1)

	region := make([]byte, length)
	copy(region, b[from:from+length])

	out := make([]byte, 0, len(b)+length)
	out = append(out, b[:to]...)
	out = append(out, region...)
	out = append(out, b[to:]...)
	in.SetBytes(out)
	return Mutated, nil
}

type bytesSwap struct{}

// BytesSwap exchanges the bytes at two randomly chosen equal-length
// ranges via a scratch buffer. When the two ranges partially overlap the
// result is not a true exchange: part of the overlap is written twice,
// so some bytes end up duplicated and others are lost.
func BytesSwap() Mutator { return bytesSwap{} }

func (bytesSwap) Name() string { return "BytesSwap" }

func (bytesSwap) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	b := in.Bytes()
	size := len(b)
	if size <= 1 {
		return Skipped, nil
	}
	first := rnd.Choose(size)
	second := rnd.Choose(size)
	maxOf := first
	if second > maxOf {
		maxOf = second
	}
	length := 1 + rnd.Choose(size-maxOf)

	tmp := make([]byte, length)
	copy(tmp, b[first:first+length])
	copy(b[first:first+length], b[second:second+length])
	copy(b[second:second+length], tmp)
	return Mutated, nil
}
