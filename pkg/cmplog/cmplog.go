// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package cmplog records the operand pairs seen at comparison
// instructions during one execution, the table the input-to-state
// mutator (pkg/mutator's I2SRandReplace) replays against. Grounded on
// original_source libafl/src/state/mod.rs's Tokens/metadata storage
// pattern generalized from token storage to compare-operand storage.
package cmplog

// MetadataTag is the state.State metadata key TracingStage attaches its
// captured comparison table under, and I2SRandReplace reads it from.
const MetadataTag = "cmplog"

// Kind tags the operand width/type of one recorded comparison, mirroring
// libafl_targets' CMPLOG_MAP_W/CMPLOG_KIND constants.
type Kind uint8

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindU64
	KindBytes
)

// Value is one side of a recorded comparison.
type Value struct {
	Kind Kind
	U    uint64 // populated for KindU8..KindU64
	B    []byte // populated for KindBytes
}

// CmpValues is one recorded comparison instruction: the two operands
// compared and the PC of the comparison site. It records no input
// offset; I2SRandReplace searches the input for the operand bytes.
type CmpValues struct {
	PC       uint64
	Lhs, Rhs Value
}

// Metadata is the table of every comparison recorded by a
// CompareLogObserver during one execution, keyed by the PC that
// produced it so later lookups don't have to linear-scan.
type Metadata struct {
	entries map[uint64][]CmpValues
}

// NewMetadata returns an empty comparison table.
func NewMetadata() *Metadata {
	return &Metadata{entries: make(map[uint64][]CmpValues)}
}

// Record appends a comparison observed at pc.
func (m *Metadata) Record(pc uint64, lhs, rhs Value) {
	const maxPerPC = 32 // libafl caps per-PC entries to bound replay cost
	list := m.entries[pc]
	if len(list) >= maxPerPC {
		return
	}
	m.entries[pc] = append(list, CmpValues{PC: pc, Lhs: lhs, Rhs: rhs})
}

// All returns every recorded comparison across all PCs, for mutators
// that pick a random one rather than targeting a specific site.
func (m *Metadata) All() []CmpValues {
	var out []CmpValues
	for _, list := range m.entries {
		out = append(out, list...)
	}
	return out
}

// Len returns the total number of recorded comparisons.
func (m *Metadata) Len() int {
	n := 0
	for _, list := range m.entries {
		n += len(list)
	}
	return n
}

// Reset empties the table for reuse across executions.
func (m *Metadata) Reset() {
	for k := range m.entries {
		delete(m.entries, k)
	}
}

// AsBytes renders a Value's operand as a little-endian byte slice
// suitable for a literal find-and-replace against the input buffer.
func (v Value) AsBytes() []byte {
	if v.Kind == KindBytes {
		return v.B
	}
	n := 0
	switch v.Kind {
	case KindU8:
		n = 1
	case KindU16:
		n = 2
	case KindU32:
		n = 4
	case KindU64:
		n = 8
	}
	b := make([]byte, n)
	u := v.U
	for i := 0; i < n; i++ {
		b[i] = byte(u)
		u >>= 8
	}
	return b
}
