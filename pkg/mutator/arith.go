// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

// arithMax bounds the magnitude of the random delta arithmetic mutators
// add or subtract, matching AFL's ARITH_MAX.
const arithMax = 35

type arithOp struct {
	name      string
	byteWidth int
}

func (m *arithOp) Name() string { return m.name }

func (m *arithOp) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	b := in.Bytes()
	if len(b) < m.byteWidth {
		return Skipped, nil
	}
	off := rnd.Choose(len(b) - m.byteWidth + 1)
	v := readWindow(b, off, m.byteWidth)
	n := uint64(1 + rnd.Below(arithMax))

	switch rnd.Choose(4) {
	case 0:
		v += n
	case 1:
		v -= n
	case 2:
		v = byteSwap(byteSwap(v, m.byteWidth)+n, m.byteWidth)
	case 3:
		v = byteSwap(byteSwap(v, m.byteWidth)-n, m.byteWidth)
	}
	writeWindow(b, off, m.byteWidth, v)
	return Mutated, nil
}

// ByteAdd applies an AFL-style arithmetic perturbation to a random
// 1-byte window.
func ByteAdd() Mutator { return &arithOp{name: "ByteAdd", byteWidth: 1} }

// WordAdd applies the same perturbation to a random 2-byte window.
func WordAdd() Mutator { return &arithOp{name: "WordAdd", byteWidth: 2} }

// DwordAdd applies the same perturbation to a random 4-byte window.
func DwordAdd() Mutator { return &arithOp{name: "DwordAdd", byteWidth: 4} }

// QwordAdd applies the same perturbation to a random 8-byte window.
func QwordAdd() Mutator { return &arithOp{name: "QwordAdd", byteWidth: 8} }
