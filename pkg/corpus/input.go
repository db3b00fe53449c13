// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package corpus holds the evolutionary state the fuzzer drives towards
// interesting inputs: the byte-string Input/Testcase model, the ordered
// Corpus abstraction with its InMemory and OnDisk variants, and the
// scheduler that decides which testcase to mutate next.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/fuzzforge/fuzzforge/pkg/ferr"
)

// Input is a variable-length byte sequence. Its identity for on-disk
// storage is the hex-encoded SHA-256 of its content, so two byte-for-byte
// identical inputs always collide onto the same filename.
type Input struct {
	bytes []byte
}

// NewInput copies b into a new Input.
func NewInput(b []byte) *Input {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Input{bytes: cp}
}

// Bytes returns the input's content. Callers must not mutate the
// returned slice in place; use Clone to get an independent copy first.
func (in *Input) Bytes() []byte { return in.bytes }

// Len returns len(Bytes()).
func (in *Input) Len() int { return len(in.bytes) }

// Clone returns a deep copy, safe for a mutator to modify in place.
func (in *Input) Clone() *Input {
	return NewInput(in.bytes)
}

// SetBytes replaces the content in place.
func (in *Input) SetBytes(b []byte) { in.bytes = b }

// Hash returns the hex-encoded SHA-256 content hash, used as the
// deterministic on-disk filename.
func (in *Input) Hash() string {
	sum := sha256.Sum256(in.bytes)
	return hex.EncodeToString(sum[:])
}

// WriteFile writes the input's bytes to path, creating or truncating it.
func (in *Input) WriteFile(path string) error {
	if err := os.WriteFile(path, in.bytes, 0o644); err != nil {
		return ferr.Wrap(ferr.ErrFile, "write input "+path)
	}
	return nil
}

// LoadInput reads an Input back from path.
func LoadInput(path string) (*Input, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ferr.Wrap(ferr.ErrFile, "read input "+path)
	}
	return &Input{bytes: b}, nil
}

// Truncate clamps the input to maxSize bytes in place, the bounded-size
// contract every mutator must also respect on its own output.
func (in *Input) Truncate(maxSize int) {
	if len(in.bytes) > maxSize {
		in.bytes = in.bytes[:maxSize]
	}
}
