// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// interesting8/16/32 are AFL's INTERESTING_8/16/32 tables: values known
// to trigger edge-case behavior in common integer-handling code (sign
// boundaries, zero, powers of two minus one).
var interesting8 = []int64{-128, -1, 0, 1, 16, 32, 64, 100, 127}

var interesting16 = append(append([]int64{}, interesting8...),
	-32768, -129, 128, 255, 256, 512, 1000, 1024, 4096, 32767)

var interesting32 = append(append([]int64{}, interesting16...),
	-2147483648, -100663046, -32769, 32768, 65535, 65536, 100663045, 2147483647)

type interestingOp struct {
	name      string
	byteWidth int
	values    []int64
}

func (m *interestingOp) Name() string { return m.name }

func (m *interestingOp) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	b := in.Bytes()
	if len(b) < m.byteWidth {
		return Skipped, nil
	}
	off := rnd.Choose(len(b) - m.byteWidth + 1)
	val := uint64(m.values[rnd.Choose(len(m.values))])

	bigEndian := rnd.Bool()
	if bigEndian {
		val = byteSwap(val, m.byteWidth)
	}
	writeWindow(b, off, m.byteWidth, val)
	return Mutated, nil
}

// ByteInteresting writes one of AFL's 8-bit interesting values at a
// random offset.
func ByteInteresting() Mutator {
	return &interestingOp{name: "ByteInteresting", byteWidth: 1, values: interesting8}
}

// WordInteresting writes one of AFL's 16-bit interesting values, in a
// randomly chosen endianness.
func WordInteresting() Mutator {
	return &interestingOp{name: "WordInteresting", byteWidth: 2, values: interesting16}
}

// DwordInteresting writes one of AFL's 32-bit interesting values, in a
// randomly chosen endianness.
func DwordInteresting() Mutator {
	return &interestingOp{name: "DwordInteresting", byteWidth: 4, values: interesting32}
}
