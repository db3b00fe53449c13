// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

type singleByteOp struct {
	name  string
	apply func(b byte, rnd *randsrc.Source) byte
}

func (m *singleByteOp) Name() string { return m.name }

func (m *singleByteOp) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	b := in.Bytes()
	if len(b) == 0 {
		return Skipped, nil
	}
	idx := rnd.Choose(len(b))
	b[idx] = m.apply(b[idx], rnd)
	return Mutated, nil
}

// BitFlip XORs one random bit of one random byte.
func BitFlip() Mutator {
	return &singleByteOp{name: "BitFlip", apply: func(b byte, rnd *randsrc.Source) byte {
		return b ^ (1 << uint(rnd.Choose(8)))
	}}
}

// ByteFlip XORs a random byte with 0xFF.
func ByteFlip() Mutator {
	return &singleByteOp{name: "ByteFlip", apply: func(b byte, _ *randsrc.Source) byte {
		return b ^ 0xFF
	}}
}

// ByteInc increments a random byte, wrapping at 0xFF.
func ByteInc() Mutator {
	return &singleByteOp{name: "ByteInc", apply: func(b byte, _ *randsrc.Source) byte {
		return b + 1
	}}
}

// ByteDec decrements a random byte, wrapping at 0x00.
func ByteDec() Mutator {
	return &singleByteOp{name: "ByteDec", apply: func(b byte, _ *randsrc.Source) byte {
		return b - 1
	}}
}

// ByteNeg computes the two's-complement negation of a random byte.
func ByteNeg() Mutator {
	return &singleByteOp{name: "ByteNeg", apply: func(b byte, _ *randsrc.Source) byte {
		return ^b + 1
	}}
}

// ByteRand overwrites a random byte with a fresh random value.
func ByteRand() Mutator {
	return &singleByteOp{name: "ByteRand", apply: func(_ byte, rnd *randsrc.Source) byte {
		return byte(rnd.Below(256))
	}}
}
