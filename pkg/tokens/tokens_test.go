// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromReaderGrammar(t *testing.T) {
	src := `# comment

token1="A\x41A"
token2="B"
"A\AA"
`
	toks, err := FromReader(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("AAA"), []byte("B")}, toks.List())
}

func TestFromReaderRejectsUnterminatedQuote(t *testing.T) {
	_, err := FromReader(strings.NewReader(`token="unterminated`))
	require.Error(t, err)
}

func TestFromReaderSkipsEmptyQuotedString(t *testing.T) {
	toks, err := FromReader(strings.NewReader(`empty=""`))
	require.NoError(t, err)
	require.Equal(t, 0, toks.Len())
}

func TestRoundTripDistinctTokensNoDuplicates(t *testing.T) {
	var sb strings.Builder
	want := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	for _, w := range want {
		sb.WriteString(`"` + string(w) + "\"\n")
	}
	sb.WriteString(`"alpha"` + "\n") // duplicate, must not reappear

	toks, err := FromReader(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Equal(t, want, toks.List())
}

func TestHexEscapeCaseInsensitive(t *testing.T) {
	b, err := strDecode(`\x4a\X4A`)
	require.NoError(t, err)
	require.Equal(t, []byte("JJ"), b)
}
