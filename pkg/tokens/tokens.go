// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package tokens parses AFL-style dictionary files into the
// deduplicated token list TokenInsert/TokenReplace draw from. Grounded
// on original_source libafl/src/mutators/token_mutations.rs's
// Tokens::from_tokens_file and its str_decode helper.
package tokens

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/fuzzforge/fuzzforge/pkg/ferr"
)

// MetadataTag is the state.State metadata key TokenInsert/TokenReplace
// look up their dictionary under.
const MetadataTag = "tokens"

// Tokens is a deduplicated ordered list of dictionary entries.
type Tokens struct {
	list [][]byte
	seen map[string]bool
}

// New returns an empty token list.
func New() *Tokens {
	return &Tokens{seen: make(map[string]bool)}
}

// Add appends tok unless an identical token was already present.
func (t *Tokens) Add(tok []byte) {
	if len(tok) == 0 {
		return
	}
	key := string(tok)
	if t.seen[key] {
		return
	}
	t.seen[key] = true
	t.list = append(t.list, tok)
}

// List returns the tokens in the order they were first added.
func (t *Tokens) List() [][]byte { return t.list }

// Len returns the number of distinct tokens.
func (t *Tokens) Len() int { return len(t.list) }

// Get returns the token at idx.
func (t *Tokens) Get(idx int) []byte { return t.list[idx] }

// FromFile parses path in the documented one-token-per-line format.
func FromFile(path string) (*Tokens, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferr.Wrap(ferr.ErrFile, "open token file "+path)
	}
	defer f.Close()
	return FromReader(f)
}

// FromReader parses the token file grammar from r: blank lines and
// lines starting with '#' are ignored; an optional "name = " prefix may
// precede the quoted string; the quoted string is decoded with
// strDecode and, if non-empty, added to the result.
func FromReader(r io.Reader) (*Tokens, error) {
	toks := New()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		quoted := trimmed
		if eq := strings.Index(trimmed, "="); eq >= 0 {
			// Only treat "=" as a name separator if it precedes the
			// opening quote; a quoted string may itself contain '='.
			if q := strings.Index(trimmed, "\""); q < 0 || eq < q {
				quoted = strings.TrimSpace(trimmed[eq+1:])
			}
		}
		if len(quoted) < 2 || quoted[0] != '"' || quoted[len(quoted)-1] != '"' {
			return nil, ferr.Wrap(ferr.ErrIllegalArgument, "unterminated quoted token: "+line)
		}
		decoded, err := strDecode(quoted[1 : len(quoted)-1])
		if err != nil {
			return nil, err
		}
		toks.Add(decoded)
	}
	if err := sc.Err(); err != nil {
		return nil, ferr.Wrap(ferr.ErrFile, "read token file")
	}
	return toks, nil
}

// strDecode decodes the body of a quoted token string: \xNN hex
// escapes, \\ and \" literals. Any other backslash escape silently
// drops the backslash and keeps the following character verbatim,
// rather than rejecting it, matching AFL's str_decode.
func strDecode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		if i+1 >= len(s) {
			return nil, ferr.Wrap(ferr.ErrIllegalArgument, "trailing backslash in token")
		}
		next := s[i+1]
		switch next {
		case 'x', 'X':
			if i+3 >= len(s) {
				return nil, ferr.Wrap(ferr.ErrIllegalArgument, "truncated \\x escape in token")
			}
			hi, ok1 := hexVal(s[i+2])
			lo, ok2 := hexVal(s[i+3])
			if !ok1 || !ok2 {
				return nil, ferr.Wrap(ferr.ErrIllegalArgument, "invalid hex escape in token")
			}
			out = append(out, hi<<4|lo)
			i += 3
		case '\\', '"':
			out = append(out, next)
			i++
		default:
			// Drop the backslash, keep next verbatim.
			out = append(out, next)
			i++
		}
	}
	return out, nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
