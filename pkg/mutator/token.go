// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"github.com/fuzzforge/fuzzforge/pkg/corpus"
	"github.com/fuzzforge/fuzzforge/pkg/randsrc"
	"github.com/fuzzforge/fuzzforge/pkg/state"
	"github.com/fuzzforge/fuzzforge/pkg/tokens"
)

func lookupTokens(st *state.State) (*tokens.Tokens, bool) {
	v, ok := st.GetMetadata(tokens.MetadataTag)
	if !ok {
		return nil, false
	}
	t, ok := v.(*tokens.Tokens)
	return t, ok && t.Len() > 0
}

type tokenInsert struct{}

// TokenInsert inserts a uniformly chosen dictionary token at a random
// offset, clamped by max_size.
func TokenInsert() Mutator { return tokenInsert{} }

func (tokenInsert) Name() string { return "TokenInsert" }

func (tokenInsert) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	toks, ok := lookupTokens(st)
	if !ok {
		return Skipped, nil
	}
	tok := toks.Get(rnd.Choose(toks.Len()))

	b := in.Bytes()
	maxSize := st.MaxSize
	length := len(tok)
	if len(b)+length > maxSize {
		length = maxSize - len(b)
	}
	if length <= 0 {
		return Skipped, nil
	}
	off := rnd.Choose(len(b) + 1)
	out := make([]byte, 0, len(b)+length)
	out = append(out, b[:off]...)
	out = append(out, tok[:length]...)
	out = append(out, b[off:]...)
	in.SetBytes(out)
	return Mutated, nil
}

type tokenReplace struct{}

// TokenReplace overwrites up to a token's length, starting at a random
// offset, with dictionary bytes.
func TokenReplace() Mutator { return tokenReplace{} }

func (tokenReplace) Name() string { return "TokenReplace" }

func (tokenReplace) Mutate(rnd *randsrc.Source, st *state.State, in *corpus.Input, stageIdx int) (Result, error) {
	toks, ok := lookupTokens(st)
	if !ok {
		return Skipped, nil
	}
	b := in.Bytes()
	if len(b) == 0 {
		return Skipped, nil
	}
	tok := toks.Get(rnd.Choose(toks.Len()))
	off := rnd.Choose(len(b))
	n := len(tok)
	if rem := len(b) - off; n > rem {
		n = rem
	}
	copy(b[off:off+n], tok[:n])
	return Mutated, nil
}
