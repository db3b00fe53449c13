// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/feedback"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
	"github.com/fuzzforge/fuzzforge/pkg/state"
)

func newTestState(maxSize int) *state.State {
	c := corpus.NewInMemory()
	st := state.New(1, c, corpus.NewInMemory(), feedback.NewCrashFeedback(), feedback.NewCrashFeedback())
	st.MaxSize = maxSize
	return st
}

func TestByteFlipTogglesAllBits(t *testing.T) {
	in := corpus.NewInput([]byte{0x0F})
	st := newTestState(1024)
	rnd := randsrc.New(1)
	res, err := ByteFlip().Mutate(rnd, st, in, 0)
	require.NoError(t, err)
	require.Equal(t, Mutated, res)
	require.Equal(t, byte(0xF0), in.Bytes()[0])
}

func TestByteLevelMutatorsSkipEmptyInput(t *testing.T) {
	in := corpus.NewInput(nil)
	st := newTestState(1024)
	rnd := randsrc.New(1)
	for _, m := range []Mutator{BitFlip(), ByteFlip(), ByteInc(), ByteDec(), ByteNeg(), ByteRand()} {
		res, err := m.Mutate(rnd, st, in, 0)
		require.NoError(t, err)
		require.Equal(t, Skipped, res, m.Name())
	}
}

func TestArithRequiresWidth(t *testing.T) {
	in := corpus.NewInput([]byte{1, 2, 3})
	st := newTestState(1024)
	rnd := randsrc.New(1)
	res, err := QwordAdd().Mutate(rnd, st, in, 0)
	require.NoError(t, err)
	require.Equal(t, Skipped, res)
	require.Equal(t, []byte{1, 2, 3}, in.Bytes())
}

func TestGrowingMutatorsRespectMaxSize(t *testing.T) {
	in := corpus.NewInput([]byte{1, 2, 3})
	st := newTestState(3) // already at max
	rnd := randsrc.New(1)
	for _, m := range []Mutator{BytesExpand(), BytesInsert(), BytesRandInsert()} {
		res, err := m.Mutate(rnd, st, in, 0)
		require.NoError(t, err)
		require.Equal(t, Skipped, res, m.Name())
	}
}

func TestBytesDeleteRequiresMoreThanTwoBytes(t *testing.T) {
	in := corpus.NewInput([]byte{1, 2})
	st := newTestState(1024)
	rnd := randsrc.New(1)
	res, err := BytesDelete().Mutate(rnd, st, in, 0)
	require.NoError(t, err)
	require.Equal(t, Skipped, res)
}

func TestMutatorNeverExceedsMaxSize(t *testing.T) {
	rnd := randsrc.New(99)
	for trial := 0; trial < 200; trial++ {
		st := newTestState(32)
		in := corpus.NewInput([]byte("0123456789"))
		for _, m := range []Mutator{BytesExpand(), BytesInsert(), BytesRandInsert(), BytesInsertCopy(), CrossoverInsert()} {
			_, err := m.Mutate(rnd, st, in, 0)
			require.NoError(t, err)
			require.LessOrEqual(t, in.Len(), st.MaxSize, m.Name())
		}
	}
}

func TestCrossoverSkippedWithoutOtherCandidate(t *testing.T) {
	c := corpus.NewInMemory()
	idx := c.Add(corpus.NewTestcase(corpus.NewInput([]byte("only"))))
	require.NoError(t, c.SetCurrent(idx))
	st := state.New(1, c, corpus.NewInMemory(), feedback.NewCrashFeedback(), feedback.NewCrashFeedback())

	in := corpus.NewInput([]byte("only"))
	rnd := randsrc.New(1)
	res, err := CrossoverInsert().Mutate(rnd, st, in, 0)
	require.NoError(t, err)
	require.Equal(t, Skipped, res)
	require.Equal(t, []byte("only"), in.Bytes())
}

func TestScheduledMutatorReportsMutatedIfAnyChildDid(t *testing.T) {
	in := corpus.NewInput([]byte{1, 2, 3, 4})
	st := newTestState(1024)
	rnd := randsrc.New(7)
	sm := NewScheduledMutator(ByteFlip())
	res, err := sm.Mutate(rnd, st, in, 0)
	require.NoError(t, err)
	require.Equal(t, Mutated, res)
}

func TestTokenMutatorsSkipWithoutTokensMetadata(t *testing.T) {
	in := corpus.NewInput([]byte("abc"))
	st := newTestState(1024)
	rnd := randsrc.New(1)
	res, err := TokenInsert().Mutate(rnd, st, in, 0)
	require.NoError(t, err)
	require.Equal(t, Skipped, res)
}

func TestBytesSwapRequiresAtLeastTwoBytes(t *testing.T) {
	in := corpus.NewInput([]byte{0x42})
	st := newTestState(1024)
	rnd := randsrc.New(1)
	res, err := BytesSwap().Mutate(rnd, st, in, 0)
	require.NoError(t, err)
	require.Equal(t, Skipped, res)
}

func TestBytesSwapAlwaysReportsMutatedAndPreservesLength(t *testing.T) {
	rnd := randsrc.New(42)
	for trial := 0; trial < 200; trial++ {
		in := corpus.NewInput([]byte("0123456789"))
		st := newTestState(1024)
		res, err := BytesSwap().Mutate(rnd, st, in, 0)
		require.NoError(t, err)
		require.Equal(t, Mutated, res, "trial %d", trial)
		require.Equal(t, 10, in.Len(), "trial %d", trial)
	}
}

func TestBytesSwapOnTwoBytesAlwaysConservesTheMultiset(t *testing.T) {
	// With size == 2, the two sampled ranges are either identical or
	// perfectly disjoint single bytes — never a partial overlap — so the
	// byte multiset is conserved regardless of which seed lands where.
	// This exercises the overlap-safe copy path without depending on any
	// particular draw from the PRNG.
	for seed := int64(0); seed < 50; seed++ {
		in := corpus.NewInput([]byte{0xAA, 0xBB})
		st := newTestState(1024)
		rnd := randsrc.New(seed)
		res, err := BytesSwap().Mutate(rnd, st, in, 0)
		require.NoError(t, err)
		require.Equal(t, Mutated, res, "seed %d", seed)
		require.ElementsMatch(t, []byte{0xAA, 0xBB}, in.Bytes(), "seed %d", seed)
	}
}

func TestDeterministicGivenSameSeed(t *testing.T) {
	run := func() []byte {
		in := corpus.NewInput([]byte("0123456789ABCDEF"))
		st := newTestState(1024)
		rnd := randsrc.New(123)
		sm := NewScheduledMutator(BitFlip(), ByteFlip(), ByteAdd(), WordInteresting(), BytesSet())
		for i := 0; i < 20; i++ {
			_, _ = sm.Mutate(rnd, st, in, i)
		}
		return in.Bytes()
	}
	require.Equal(t, run(), run())
}
